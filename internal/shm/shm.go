// Package shm creates and maps fixed-size named shared memory regions.
//
// A Region is created by exactly one producer, written in place, and
// removed on Close. Consumers map the same name read-only with Attach.
// There is no synchronization between writer and readers.
//
// On Unix a region is a file in a tmpfs directory (/dev/shm by default)
// mapped MAP_SHARED. On Windows it is a named, pagefile-backed file
// mapping that disappears when its last handle closes.
package shm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRegionCreateFailed wraps every failure of Create.
	ErrRegionCreateFailed = errors.New("shared region creation failed")
	// ErrRegionExists means a region with the requested name is already
	// present, typically left behind by an unclean shutdown.
	ErrRegionExists = errors.New("shared region already exists")
	// ErrRegionNotFound means Attach found no region with that name.
	ErrRegionNotFound = errors.New("shared region not found")
)

const maxNameLen = 255

type options struct {
	dir string
}

// Option configures Create, Attach and Exists.
type Option func(*options)

// WithDir places Unix regions in dir instead of the default tmpfs
// directory. It has no effect on Windows.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.dir == "" {
		o.dir = defaultDir()
	}
	return o
}

// ValidateName checks that name can identify a region on every platform.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("region name is empty")
	case len(name) > maxNameLen:
		return fmt.Errorf("region name is longer than %d bytes", maxNameLen)
	case name == "." || name == "..":
		return fmt.Errorf("invalid region name %q", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("region name %q contains a path separator or NUL", name)
	}
	return nil
}

// Region is a writable shared memory region owned by its creator.
type Region struct {
	name   string
	size   int
	data   []byte
	handle platformHandle
}

// Create creates a new named region of exactly size bytes, zero-filled.
// It fails if a region with that name already exists.
func Create(name string, size int, opts ...Option) (*Region, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegionCreateFailed, err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrRegionCreateFailed, size)
	}

	data, handle, err := createRegion(name, size, buildOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRegionCreateFailed, name, err)
	}
	return &Region{name: name, size: size, data: data, handle: handle}, nil
}

// Name returns the region name.
func (r *Region) Name() string { return r.name }

// Size returns the region size in bytes.
func (r *Region) Size() int { return r.size }

// Bytes returns the mapped memory. The slice is valid until Close.
func (r *Region) Bytes() []byte { return r.data }

// Close unmaps and removes the region. It is safe to call more than once.
func (r *Region) Close() error {
	if r == nil || r.data == nil {
		return nil
	}
	err := closeRegion(r.data, r.handle, true)
	r.data = nil
	return err
}

// View is a read-only mapping of a region created by another process.
type View struct {
	name   string
	data   []byte
	handle platformHandle
}

// Attach maps an existing region read-only. size is the number of bytes
// to map; it must not exceed the region size.
func Attach(name string, size int, opts ...Option) (*View, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %d", size)
	}
	data, handle, err := attachRegion(name, size, buildOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("attaching %s: %w", name, err)
	}
	return &View{name: name, data: data, handle: handle}, nil
}

// Name returns the region name.
func (v *View) Name() string { return v.name }

// Bytes returns the mapped memory. The producer may overwrite it at any
// time, so callers should copy before decoding.
func (v *View) Bytes() []byte { return v.data }

// Close unmaps the view. The region itself is left in place.
func (v *View) Close() error {
	if v == nil || v.data == nil {
		return nil
	}
	err := closeRegion(v.data, v.handle, false)
	v.data = nil
	return err
}

// Exists reports whether a region with the given name is present.
func Exists(name string, opts ...Option) bool {
	if ValidateName(name) != nil {
		return false
	}
	return regionExists(name, buildOptions(opts))
}
