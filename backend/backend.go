package backend

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gpucontext"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or its runtime library cannot be loaded on this device.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrInvalidWindow is returned when the window is nil or has no native handle.
	ErrInvalidWindow = errors.New("backend: invalid window handle")

	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("backend: invalid dimensions")

	// ErrInvalidFrameSource is returned when the frame source does not fit
	// inside the backing memory.
	ErrInvalidFrameSource = errors.New("backend: frame source outside backing memory")

	// ErrDeviceCreationFailed is returned when the graphics device or its
	// resources could not be created.
	ErrDeviceCreationFailed = errors.New("backend: device creation failed")

	// ErrBusy is returned when a single frame or resize could not complete
	// because the device is busy. The caller may simply try again later.
	ErrBusy = errors.New("backend: device busy")

	// ErrDestroyed is returned when a context is used after Destroy.
	ErrDestroyed = errors.New("backend: context destroyed")
)

// Window is the externally owned drawable surface a context renders into.
// The context never owns the window and must not retain it past Destroy.
type Window interface {
	// NativeHandle returns the platform window handle.
	// Zero means the window is gone or was never created.
	NativeHandle() uintptr
}

// FramePresenter is implemented by windows that accept finished frames
// from the CPU side (software scan-out, GPU readback).
type FramePresenter interface {
	PresentFrame(frame *image.RGBA) error
}

// FrameSource locates the emulated framebuffer inside the backing memory.
// Pixels are RGBA8, tightly packed, Width*4 bytes per row.
type FrameSource struct {
	Offset int
	Width  int
	Height int
}

// Size returns the number of bytes covered by the frame source.
func (s FrameSource) Size() int {
	return s.Width * s.Height * 4
}

// DefaultFrameSource is a 320x240 framebuffer at 48 MiB into the address space.
var DefaultFrameSource = FrameSource{Offset: 48 << 20, Width: 320, Height: 240}

// Filter selects how the frame source is scaled onto the surface.
type Filter int

const (
	// FilterNearest picks the nearest source pixel.
	FilterNearest Filter = iota
	// FilterBilinear interpolates neighbouring source pixels.
	// GPU backends that cannot filter fall back to nearest.
	FilterBilinear
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	default:
		return fmt.Sprintf("Filter(%d)", int(f))
	}
}

// ParseFilter parses a filter name as produced by String.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "nearest", "":
		return FilterNearest, nil
	case "bilinear":
		return FilterBilinear, nil
	default:
		return FilterNearest, fmt.Errorf("backend: unknown filter %q", s)
	}
}

// CreateInfo carries everything a Factory needs to create a Context.
type CreateInfo struct {
	// Window is the surface to render into. Not owned.
	Window Window

	// Memory is the backing address space. The context may read it only
	// from inside Resize and RenderFrame; it is released after Destroy.
	Memory []byte

	// Width and Height are the initial surface dimensions.
	Width  int
	Height int

	Source FrameSource
	Filter Filter

	// FrameTimeout bounds how long a frame may wait on GPU backpressure
	// before it is reported as busy. Zero means DefaultFrameTimeout.
	FrameTimeout time.Duration
}

// DefaultFrameTimeout is the frame wait bound used when none is configured.
const DefaultFrameTimeout = 2 * time.Second

// Validate checks the create parameters shared by every backend.
func (info *CreateInfo) Validate() error {
	if info.Window == nil || info.Window.NativeHandle() == 0 {
		return ErrInvalidWindow
	}
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, info.Width, info.Height)
	}
	src := info.Source
	if src.Width <= 0 || src.Height <= 0 || src.Offset < 0 || src.Offset > len(info.Memory)-src.Size() {
		return fmt.Errorf("%w: offset=%d size=%dx%d memory=%d",
			ErrInvalidFrameSource, src.Offset, src.Width, src.Height, len(info.Memory))
	}
	return nil
}

// Factory creates render contexts for one backend kind.
//
// Factories are registered in a Registry, typically from an init() function
// in the backend package, and are consulted by the selector.
type Factory interface {
	// Kind returns the backend kind this factory creates.
	Kind() Kind

	// Available reports whether the backend's runtime can be loaded on
	// this device. It must not leave any device resources allocated.
	Available() bool

	// Create creates a render context. On failure no resources remain.
	Create(info CreateInfo) (Context, error)
}

// Context is an opaque backend rendering context: a device, a surface-sized
// render target and per-frame submission state.
//
// A Context is not safe for concurrent use; its owner serializes calls.
type Context interface {
	// Resize resizes the render target. Identical dimensions are a no-op.
	Resize(width, height int) error

	// RenderFrame performs one frame's submission. Transient busy states
	// are reported as errors wrapping ErrBusy.
	RenderFrame() error

	// Destroy releases all backend resources. Called exactly once.
	Destroy()

	// DeviceProvider exposes the device to host integrations such as a
	// UI renderer. The result is only valid until Destroy.
	DeviceProvider() gpucontext.DeviceProvider
}
