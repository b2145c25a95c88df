// Package publish writes gaze snapshots into the shared region and reads
// them back on the consumer side.
//
// The region holds exactly one frame.Size-byte record at offset zero.
// Each Publish overwrites it in place with no lock; readers always see
// the latest frame, or a torn mix of two frames if they race the writer.
package publish

import (
	"errors"
	"fmt"

	"github.com/mrzor/gazeshm/internal/frame"
	"github.com/mrzor/gazeshm/internal/shm"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Publisher owns a shared region sized for one snapshot. It has a single
// writer and is not safe for concurrent use; Publish takes no lock.
type Publisher struct {
	region *shm.Region
}

// Open creates the named region. Failures wrap shm.ErrRegionCreateFailed.
func Open(name string, opts ...shm.Option) (*Publisher, error) {
	region, err := shm.Create(name, frame.Size, opts...)
	if err != nil {
		return nil, err
	}
	return &Publisher{region: region}, nil
}

// Publish encodes s into the region at offset zero.
func (p *Publisher) Publish(s *frame.Snapshot) error {
	if p.region == nil {
		return ErrClosed
	}
	if err := s.MarshalTo(p.region.Bytes()); err != nil {
		return fmt.Errorf("encoding frame %d into %s: %w", s.FrameNumber(), p.region.Name(), err)
	}
	return nil
}

// Close removes the region. It is safe to call more than once.
func (p *Publisher) Close() error {
	if p == nil || p.region == nil {
		return nil
	}
	name := p.region.Name()
	err := p.region.Close()
	p.region = nil
	if err != nil {
		return fmt.Errorf("closing region %s: %w", name, err)
	}
	return nil
}
