//go:build unix

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type platformHandle struct {
	fd   int
	path string
}

func defaultDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

func createRegion(name string, size int, o options) ([]byte, platformHandle, error) {
	path := filepath.Join(o.dir, name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o644)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, platformHandle{}, fmt.Errorf("%w: %s", ErrRegionExists, path)
		}
		return nil, platformHandle{}, fmt.Errorf("opening %s: %w", path, err)
	}

	// From here on the file exists, so every failure must remove it.
	fail := func(err error) ([]byte, platformHandle, error) {
		_ = unix.Close(fd)    //nolint:errcheck // Best-effort cleanup in error path
		_ = unix.Unlink(path) //nolint:errcheck // Best-effort cleanup in error path
		return nil, platformHandle{}, err
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return fail(fmt.Errorf("truncating region: %w", err))
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fail(fmt.Errorf("memory-mapping region: %w", err))
	}

	return data, platformHandle{fd: fd, path: path}, nil
}

func attachRegion(name string, size int, o options) ([]byte, platformHandle, error) {
	path := filepath.Join(o.dir, name)

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, platformHandle{}, fmt.Errorf("%w: %s", ErrRegionNotFound, path)
		}
		return nil, platformHandle{}, fmt.Errorf("opening %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		_ = unix.Close(fd) //nolint:errcheck // Best-effort cleanup in error path
		return nil, platformHandle{}, fmt.Errorf("stating region: %w", err)
	}
	if stat.Size < int64(size) {
		_ = unix.Close(fd) //nolint:errcheck // Best-effort cleanup in error path
		return nil, platformHandle{}, fmt.Errorf("region is %d bytes, want at least %d", stat.Size, size)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd) //nolint:errcheck // Best-effort cleanup in error path
		return nil, platformHandle{}, fmt.Errorf("memory-mapping region: %w", err)
	}

	return data, platformHandle{fd: fd, path: path}, nil
}

func closeRegion(data []byte, h platformHandle, remove bool) error {
	var errs []error

	if err := unix.Munmap(data); err != nil {
		errs = append(errs, fmt.Errorf("unmapping region: %w", err))
	}
	if err := unix.Close(h.fd); err != nil {
		errs = append(errs, fmt.Errorf("closing region fd: %w", err))
	}
	if remove {
		if err := unix.Unlink(h.path); err != nil && !errors.Is(err, unix.ENOENT) {
			errs = append(errs, fmt.Errorf("removing %s: %w", h.path, err))
		}
	}

	return errors.Join(errs...)
}

func regionExists(name string, o options) bool {
	_, err := os.Stat(filepath.Join(o.dir, name))
	return err == nil
}
