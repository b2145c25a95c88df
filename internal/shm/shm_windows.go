//go:build windows

package shm

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procOpenFileMappingW = windows.NewLazySystemDLL("kernel32.dll").NewProc("OpenFileMappingW")

type platformHandle struct {
	mapping windows.Handle
	addr    uintptr
}

func defaultDir() string { return "" }

func createRegion(name string, size int, _ options) ([]byte, platformHandle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, platformHandle{}, err
	}

	//nolint:gosec // size is a small positive int checked by Create
	mapping, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, uint32(size), namePtr)
	if err != nil {
		if mapping != 0 {
			_ = windows.CloseHandle(mapping) //nolint:errcheck // Best-effort cleanup in error path
		}
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			return nil, platformHandle{}, fmt.Errorf("%w: %s", ErrRegionExists, name)
		}
		return nil, platformHandle{}, fmt.Errorf("creating file mapping: %w", err)
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(mapping) //nolint:errcheck // Best-effort cleanup in error path
		return nil, platformHandle{}, fmt.Errorf("mapping view: %w", err)
	}

	return viewBytes(addr, size), platformHandle{mapping: mapping, addr: addr}, nil
}

func openMapping(name string, access uint32) (windows.Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	r, _, callErr := procOpenFileMappingW.Call(uintptr(access), 0, uintptr(unsafe.Pointer(namePtr)))
	if r == 0 {
		if errors.Is(callErr, windows.ERROR_FILE_NOT_FOUND) {
			return 0, fmt.Errorf("%w: %s", ErrRegionNotFound, name)
		}
		return 0, fmt.Errorf("opening file mapping: %w", callErr)
	}
	return windows.Handle(r), nil
}

func attachRegion(name string, size int, _ options) ([]byte, platformHandle, error) {
	mapping, err := openMapping(name, windows.FILE_MAP_READ)
	if err != nil {
		return nil, platformHandle{}, err
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(mapping) //nolint:errcheck // Best-effort cleanup in error path
		return nil, platformHandle{}, fmt.Errorf("mapping view: %w", err)
	}

	return viewBytes(addr, size), platformHandle{mapping: mapping, addr: addr}, nil
}

// closeRegion releases the view and the handle. The named mapping is
// destroyed by the OS once no handle refers to it, so remove is implied.
func closeRegion(_ []byte, h platformHandle, _ bool) error {
	var errs []error
	if err := windows.UnmapViewOfFile(h.addr); err != nil {
		errs = append(errs, fmt.Errorf("unmapping view: %w", err))
	}
	if err := windows.CloseHandle(h.mapping); err != nil {
		errs = append(errs, fmt.Errorf("closing file mapping: %w", err))
	}
	return errors.Join(errs...)
}

func regionExists(name string, _ options) bool {
	mapping, err := openMapping(name, windows.FILE_MAP_READ)
	if err != nil {
		return false
	}
	_ = windows.CloseHandle(mapping) //nolint:errcheck // Existence check only
	return true
}

func viewBytes(addr uintptr, size int) []byte {
	//nolint:gosec // addr is a live view returned by MapViewOfFile
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
