// gazeshm publishes eye-tracking frames into a named shared memory region.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	"github.com/mrzor/gazeshm/internal/acquisition"
	"github.com/mrzor/gazeshm/internal/attributes"
	"github.com/mrzor/gazeshm/internal/config"
	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/device/replay"
	"github.com/mrzor/gazeshm/internal/device/sim"
	"github.com/mrzor/gazeshm/internal/device/varjo"
	"github.com/mrzor/gazeshm/internal/logging"
	"github.com/mrzor/gazeshm/internal/metrics"
	"github.com/mrzor/gazeshm/internal/otel"
	"github.com/mrzor/gazeshm/internal/shm"
	"github.com/mrzor/gazeshm/internal/stopkey"
)

// Version information injected at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK                 = 0
	exitConfig             = 1
	exitSessionUnavailable = 2
	exitGazeInitFailed     = 3
	exitRegionCreateFailed = 4
	exitPublishingAborted  = 5
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, device.ErrSessionUnavailable):
		return exitSessionUnavailable
	case errors.Is(err, device.ErrGazeInitFailed):
		return exitGazeInitFailed
	case errors.Is(err, shm.ErrRegionCreateFailed):
		return exitRegionCreateFailed
	case errors.Is(err, acquisition.ErrPublishingAborted):
		return exitPublishingAborted
	default:
		return exitConfig
	}
}

func run() error {
	environ := env.ToMap(os.Environ())

	cfg, opts, err := config.Load("gazeshm", os.Args[1:], environ)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		fmt.Printf("gazeshm %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	tracer, cleanupOTEL, err := setupOTEL(environ, logger)
	if err != nil {
		return err
	}
	defer cleanupOTEL()

	evaluator, err := attributes.NewEvaluator(cfg.CustomAttributes, logger.With("component", "attributes"))
	if err != nil {
		return err
	}

	minQuality, err := cfg.MinCalibrationQuality()
	if err != nil {
		return err
	}

	ctx, cancel := setupStop(cfg, logger)
	defer cancel()

	var regionOpts []shm.Option
	if cfg.Region.Dir != "" {
		regionOpts = append(regionOpts, shm.WithDir(cfg.Region.Dir))
	}

	loop := acquisition.New(
		acquisition.Config{
			ProviderName:          cfg.Provider.Kind,
			RegionName:            cfg.Region.Name,
			StatsInterval:         cfg.StatsInterval,
			MinCalibrationQuality: minQuality,
		},
		setupProvider(cfg),
		acquisition.RegionOpener(regionOpts...),
		acquisition.WithLogger(logger.With("component", "acquisition")),
		acquisition.WithTracer(tracer),
		acquisition.WithAttributes(evaluator, environ),
	)

	cleanupMetrics, err := setupMetrics(cfg, loop, logger.With("component", "metrics"))
	if err != nil {
		return err
	}
	defer cleanupMetrics()

	outcome, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	if outcome == acquisition.OutcomePermissionDenied {
		fmt.Println("Gaze tracking is not allowed! Please enable it in the Varjo Base!")
	}
	return nil
}

// setupProvider builds the configured gaze source.
func setupProvider(cfg *config.Config) device.Provider {
	switch cfg.Provider.Kind {
	case config.ProviderSim:
		return sim.New(
			sim.WithRate(cfg.Provider.Sim.Rate),
			sim.WithGazeAllowed(cfg.Provider.Sim.GazeAllowed),
			sim.WithSeed(cfg.Provider.Sim.Seed),
		)
	case config.ProviderReplay:
		return replay.New(cfg.Provider.Replay.Path,
			replay.WithLoop(cfg.Provider.Replay.Loop),
			replay.WithRealtime(cfg.Provider.Replay.Realtime),
		)
	default:
		var opts []varjo.Option
		if cfg.Provider.Varjo.Library != "" {
			opts = append(opts, varjo.WithLibrary(cfg.Provider.Varjo.Library))
		}
		return varjo.New(opts...)
	}
}

// setupOTEL initializes the OTEL provider and returns a tracer and cleanup function.
func setupOTEL(environ map[string]string, logger *slog.Logger) (trace.Tracer, func(), error) {
	otelCfg, err := config.ParseOTELConfig(environ)
	if err != nil {
		return nil, nil, err
	}

	tp, err := otel.InitProvider(otelCfg, version, logger.With("component", "otel"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(shutdownCtx, tp); err != nil {
			logger.Warn("shutting down OTEL provider", "error", err)
		}
	}

	return otel.Tracer(tp), cleanup, nil
}

// setupMetrics serves loop counters when a metrics address is configured.
func setupMetrics(cfg *config.Config, loop *acquisition.Loop, logger *slog.Logger) (func(), error) {
	if cfg.Metrics.Addr == "" {
		return func() {}, nil
	}

	exporter := metrics.NewExporter(cfg.Metrics.Addr)
	if err := exporter.Register(metrics.NewCollector(loop, cfg.Provider.Kind, cfg.Region.Name)); err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	ln, err := exporter.Listen()
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	logger.Info("serving metrics", "addr", ln.Addr().String())

	go func() {
		if err := exporter.Serve(ln); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exporter.Shutdown(ctx); err != nil {
			logger.Warn("shutting down metrics server", "error", err)
		}
	}, nil
}

// setupStop returns a context canceled by SIGINT, SIGTERM or, on an
// interactive terminal, the Enter key.
func setupStop(cfg *config.Config, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if !cfg.StopOnEnter || !term.IsTerminal(int(os.Stdin.Fd())) {
		return ctx, stopSignals
	}

	ctx, cancel := context.WithCancel(ctx)
	stopkey.Watch(ctx, os.Stdin, cancel)
	logger.Info("press Enter to stop")
	return ctx, func() {
		cancel()
		stopSignals()
	}
}
