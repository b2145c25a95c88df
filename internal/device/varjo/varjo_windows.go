//go:build windows

package varjo

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

var (
	_ [nativeGazeSize]byte = [unsafe.Sizeof(frame.GazeSample{})]byte{}
	_ [nativeEyesSize]byte = [unsafe.Sizeof(frame.EyeMeasurements{})]byte{}
)

type procs struct {
	isAvailable        *windows.LazyProc
	sessionInit        *windows.LazyProc
	sessionShutDown    *windows.LazyProc
	gazeInit           *windows.LazyProc
	getError           *windows.LazyProc
	getErrorDesc       *windows.LazyProc
	isGazeAllowed      *windows.LazyProc
	getGazeData        *windows.LazyProc
	requestCalibration *windows.LazyProc
	syncProperties     *windows.LazyProc
	getPropertyBool    *windows.LazyProc
	getPropertyInt     *windows.LazyProc
}

var loaded sync.Map // library name -> *loadResult

type loadResult struct {
	once  sync.Once
	procs *procs
	err   error
}

func load(library string) (*procs, error) {
	v, _ := loaded.LoadOrStore(library, &loadResult{})
	res := v.(*loadResult) //nolint:forcetypeassert // Only *loadResult is stored
	res.once.Do(func() {
		dll := windows.NewLazyDLL(library)
		if err := dll.Load(); err != nil {
			res.err = fmt.Errorf("loading %s: %w", library, err)
			return
		}
		p := &procs{
			isAvailable:        dll.NewProc("varjo_IsAvailable"),
			sessionInit:        dll.NewProc("varjo_SessionInit"),
			sessionShutDown:    dll.NewProc("varjo_SessionShutDown"),
			gazeInit:           dll.NewProc("varjo_GazeInit"),
			getError:           dll.NewProc("varjo_GetError"),
			getErrorDesc:       dll.NewProc("varjo_GetErrorDesc"),
			isGazeAllowed:      dll.NewProc("varjo_IsGazeAllowed"),
			getGazeData:        dll.NewProc("varjo_GetGazeData"),
			requestCalibration: dll.NewProc("varjo_RequestGazeCalibration"),
			syncProperties:     dll.NewProc("varjo_SyncProperties"),
			getPropertyBool:    dll.NewProc("varjo_GetPropertyBool"),
			getPropertyInt:     dll.NewProc("varjo_GetPropertyInt"),
		}
		for _, proc := range []*windows.LazyProc{
			p.isAvailable, p.sessionInit, p.sessionShutDown, p.gazeInit,
			p.getError, p.getErrorDesc, p.isGazeAllowed, p.getGazeData,
			p.requestCalibration, p.syncProperties, p.getPropertyBool, p.getPropertyInt,
		} {
			if err := proc.Find(); err != nil {
				res.err = fmt.Errorf("resolving %s in %s: %w", proc.Name, library, err)
				return
			}
		}
		res.procs = p
	})
	return res.procs, res.err
}

// Native bools are one byte; the upper bits of the return register are
// undefined.
func boolResult(r uintptr) bool {
	return r&0xff != 0
}

func (p *Provider) runtime() *procs {
	// SessionInit loaded the library before any handle existed.
	pr, _ := load(p.library) //nolint:errcheck // Cached from SessionInit
	return pr
}

// SessionInit loads the runtime and opens a session.
func (p *Provider) SessionInit() (device.Handle, error) {
	pr, err := load(p.library)
	if err != nil {
		return 0, err
	}
	r, _, _ := pr.isAvailable.Call()
	if !boolResult(r) {
		return 0, errors.New("varjo system is not available")
	}
	h, _, _ := pr.sessionInit.Call()
	if h == 0 {
		return 0, errors.New("varjo_SessionInit returned a null session")
	}
	return device.Handle(h), nil
}

func (p *Provider) SessionShutdown(h device.Handle) {
	_, _, _ = p.runtime().sessionShutDown.Call(uintptr(h))
}

func (p *Provider) IsGazeAllowed(h device.Handle) bool {
	r, _, _ := p.runtime().isGazeAllowed.Call(uintptr(h))
	return boolResult(r)
}

// GazeInit has no return value natively; failures surface through
// varjo_GetError.
func (p *Provider) GazeInit(h device.Handle) error {
	pr := p.runtime()
	_, _, _ = pr.gazeInit.Call(uintptr(h))
	return lastError(pr, h)
}

func lastError(pr *procs, h device.Handle) error {
	code, _, _ := pr.getError.Call(uintptr(h))
	if int32(code) == 0 { //nolint:gosec // Native int
		return nil
	}
	desc, _, _ := pr.getErrorDesc.Call(code)
	msg := "unknown error"
	if desc != 0 {
		msg = windows.BytePtrToString((*byte)(unsafe.Pointer(desc))) //nolint:govet // Pointer owned by the runtime
	}
	return fmt.Errorf("varjo error %d: %s", int32(code), msg) //nolint:gosec // Native int
}

func (p *Provider) SyncProperties(h device.Handle) {
	_, _, _ = p.runtime().syncProperties.Call(uintptr(h))
}

func (p *Provider) CalibrationQuality(h device.Handle) device.CalibrationQuality {
	pr := p.runtime()
	calibrated, _, _ := pr.getPropertyBool.Call(uintptr(h), propGazeCalibrated)
	if !boolResult(calibrated) {
		return device.CalibrationQuality{}
	}
	left, _, _ := pr.getPropertyInt.Call(uintptr(h), propGazeCalibrationQualityL)
	right, _, _ := pr.getPropertyInt.Call(uintptr(h), propGazeCalibrationQualityR)
	return device.CalibrationQuality{
		Left:  qualityFromInt(int64(int32(left))),  //nolint:gosec // Native int
		Right: qualityFromInt(int64(int32(right))), //nolint:gosec // Native int
	}
}

func (p *Provider) RequestCalibration(h device.Handle) {
	_, _, _ = p.runtime().requestCalibration.Call(uintptr(h))
}

func (p *Provider) GazeData(h device.Handle, gaze *frame.GazeSample, eyes *frame.EyeMeasurements) bool {
	r, _, _ := p.runtime().getGazeData.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(gaze)),
		uintptr(unsafe.Pointer(eyes)),
	)
	return boolResult(r)
}
