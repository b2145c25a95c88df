// gazeshm-peek reads the region published by gazeshm and prints it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mrzor/gazeshm/internal/config"
	"github.com/mrzor/gazeshm/internal/device/replay"
	"github.com/mrzor/gazeshm/internal/frame"
	"github.com/mrzor/gazeshm/internal/publish"
	"github.com/mrzor/gazeshm/internal/shm"
)

type options struct {
	region    string
	regionDir string
	interval  time.Duration
	count     int
	retries   int
	asJSON    bool
	layout    bool
	record    string
	compress  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	var o options
	flagSet := pflag.NewFlagSet("gazeshm-peek", pflag.ContinueOnError)
	flagSet.StringVarP(&o.region, "region", "r", config.DefaultRegionName, "shared memory region name")
	flagSet.StringVar(&o.regionDir, "region-dir", "", "directory holding the region file (unix only)")
	flagSet.DurationVarP(&o.interval, "interval", "i", 0, "print repeatedly at this interval, 0 prints once")
	flagSet.IntVarP(&o.count, "count", "n", 0, "stop after this many prints when --interval is set, 0 means forever")
	flagSet.IntVar(&o.retries, "retries", publish.DefaultReadRetries, "re-reads allowed when a write is caught in progress")
	flagSet.BoolVar(&o.asJSON, "json", false, "print snapshots as JSON lines")
	flagSet.StringVar(&o.record, "record", "", "write every printed snapshot to this file for the replay provider")
	flagSet.BoolVar(&o.compress, "compress", false, "zstd-compress the --record file")
	flagSet.BoolVar(&o.layout, "layout", false, "print the region binary layout as YAML and exit")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return &o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if o.layout {
		return printLayout(out)
	}

	var regionOpts []shm.Option
	if o.regionDir != "" {
		regionOpts = append(regionOpts, shm.WithDir(o.regionDir))
	}
	reader, err := publish.Attach(o.region, o.retries, regionOpts...)
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.record == "" {
		return peek(ctx, reader, o, out, nil)
	}

	var recorded []frame.Snapshot
	err = peek(ctx, reader, o, out, func(s *frame.Snapshot) {
		recorded = append(recorded, *s)
	})
	return errors.Join(err, writeRecording(o.record, o.compress, recorded))
}

// writeRecording saves snapshots in the format read by the replay provider.
func writeRecording(path string, compress bool, snapshots []frame.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	if err := replay.WriteRecording(f, compress, snapshots); err != nil {
		_ = f.Close() //nolint:errcheck // Best-effort cleanup in error path
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing recording: %w", err)
	}
	return nil
}

func peek(ctx context.Context, reader *publish.Reader, o *options, out io.Writer, record func(*frame.Snapshot)) error {
	var snap frame.Snapshot
	var lastFrame int64 = -1

	for printed := 0; ; {
		if err := reader.Read(&snap); err != nil {
			return err
		}
		if snap.FrameNumber() != lastFrame || o.interval == 0 {
			if err := printSnapshot(out, &snap, o.asJSON); err != nil {
				return err
			}
			if record != nil {
				record(&snap)
			}
			lastFrame = snap.FrameNumber()
			printed++
		}

		if o.interval == 0 || (o.count > 0 && printed >= o.count) {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(o.interval):
		}
	}
}

func printSnapshot(out io.Writer, s *frame.Snapshot, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(s)
	}
	g, e := &s.Gaze, &s.Eyes
	_, err := fmt.Fprintf(out,
		"frame=%d t=%d status=%s left=%s right=%s gaze=(%.4f, %.4f, %.4f) focus=%.3f ipd=%.1fmm open=%.2f/%.2f\n",
		g.FrameNumber, g.CaptureTime, g.Status, g.LeftStatus, g.RightStatus,
		g.Gaze.Forward.X, g.Gaze.Forward.Y, g.Gaze.Forward.Z, g.FocusDistance,
		e.InterPupillaryDistance, e.LeftEyeOpenness, e.RightEyeOpenness,
	)
	return err
}

func printLayout(out io.Writer) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{
		"size":   frame.Size,
		"fields": frame.Layout(),
	}); err != nil {
		return err
	}
	return enc.Close()
}
