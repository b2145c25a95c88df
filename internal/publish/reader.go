package publish

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mrzor/gazeshm/internal/frame"
	"github.com/mrzor/gazeshm/internal/shm"
)

// ErrTornRead means every attempt caught the producer mid-write.
var ErrTornRead = errors.New("region changed while reading")

// DefaultReadRetries is the number of extra attempts Read makes.
const DefaultReadRetries = 8

// Reader is a consumer-side view of a published region.
type Reader struct {
	view    *shm.View
	name    string
	data    []byte
	retries int
	a, b    [frame.Size]byte
}

// Attach maps the named region read-only.
func Attach(name string, retries int, opts ...shm.Option) (*Reader, error) {
	view, err := shm.Attach(name, frame.Size, opts...)
	if err != nil {
		return nil, err
	}
	return &Reader{view: view, name: view.Name(), data: view.Bytes(), retries: max(retries, 0)}, nil
}

// Read decodes the current snapshot into dst. A copy is accepted only
// when two back-to-back copies are identical and both halves of the
// snapshot name the same frame. It returns ErrTornRead once the retries
// are used up, leaving dst untouched.
func (r *Reader) Read(dst *frame.Snapshot) error {
	for attempt := 0; attempt <= r.retries; attempt++ {
		copy(r.a[:], r.data)
		copy(r.b[:], r.data)
		if !bytes.Equal(r.a[:], r.b[:]) {
			continue
		}
		var s frame.Snapshot
		if err := s.UnmarshalBinary(r.a[:]); err != nil {
			return err
		}
		if !s.Consistent() {
			continue
		}
		*dst = s
		return nil
	}
	return fmt.Errorf("%s: %w after %d attempts", r.name, ErrTornRead, r.retries+1)
}

// Close unmaps the region.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}
	return r.view.Close()
}
