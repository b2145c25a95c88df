package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/mrzor/gazeshm/internal/frame"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	// Shared, stateless-per-call codecs. EncodeAll and DecodeAll are safe
	// for concurrent use.
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("replay: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("replay: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("replay: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("replay: zstd decoder initialization failed: " + err.Error())
	}
}

// WriteRecording writes snapshots to w as a CBOR sequence, zstd-compressed
// when compress is set.
func WriteRecording(w io.Writer, compress bool, snapshots []frame.Snapshot) error {
	var buf bytes.Buffer
	enc := encMode.NewEncoder(&buf)
	for i := range snapshots {
		if err := enc.Encode(&snapshots[i]); err != nil {
			return fmt.Errorf("encoding snapshot %d: %w", i, err)
		}
	}

	data := buf.Bytes()
	if compress {
		data = zstdEncoder.EncodeAll(data, nil)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing recording: %w", err)
	}
	return nil
}

// ReadRecording decodes a recording produced by WriteRecording. The zstd
// framing is detected from the leading magic number.
func ReadRecording(r io.Reader) ([]frame.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		data, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing recording: %w", err)
		}
	}

	var out []frame.Snapshot
	dec := decMode.NewDecoder(bytes.NewReader(data))
	for {
		var s frame.Snapshot
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding snapshot %d: %w", len(out), err)
		}
		out = append(out, s)
	}
	return out, nil
}
