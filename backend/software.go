package backend

import (
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/sf64rca/rctx/internal/parallel"
)

// SoftwareFactory creates CPU scan-out contexts.
// It wraps golang.org/x/image/draw for scaling the emulated framebuffer
// onto the surface, in bands spread over a per-context worker pool.
type SoftwareFactory struct{}

// init registers the software backend on package import.
func init() {
	Register(SoftwareFactory{})
}

// Kind returns Software.
func (SoftwareFactory) Kind() Kind { return Software }

// Available always reports true: the software backend has no runtime library.
func (SoftwareFactory) Available() bool { return true }

// Create creates a software context.
func (SoftwareFactory) Create(info CreateInfo) (Context, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	c := &SoftwareContext{
		window: info.Window,
		memory: info.Memory,
		source: info.Source,
		scaler: scalerFor(info.Filter),
		pool:   parallel.NewPool(0),
	}
	c.frame = image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	Logger().Debug("software context created",
		"width", info.Width, "height", info.Height, "filter", info.Filter)
	return c, nil
}

func scalerFor(f Filter) draw.Scaler {
	if f == FilterBilinear {
		return draw.ApproxBiLinear
	}
	return draw.NearestNeighbor
}

// SoftwareContext scans the frame source out onto a surface-sized image
// and hands it to the window if the window is a FramePresenter.
type SoftwareContext struct {
	window Window
	memory []byte
	source FrameSource
	scaler draw.Scaler
	pool   *parallel.Pool
	frame  *image.RGBA

	frames    uint64
	destroyed bool
}

// Resize reallocates the frame image. Identical dimensions are a no-op.
func (c *SoftwareContext) Resize(width, height int) error {
	if c.destroyed {
		return ErrDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	b := c.frame.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return nil
	}
	c.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// RenderFrame scales the current framebuffer contents and presents them.
func (c *SoftwareContext) RenderFrame() error {
	if c.destroyed {
		return ErrDestroyed
	}
	src := c.sourceImage()
	parallel.Scale(c.pool, c.scaler, c.frame, src)
	c.frames++

	if p, ok := c.window.(FramePresenter); ok {
		if err := p.PresentFrame(c.frame); err != nil {
			return fmt.Errorf("software: present: %w", err)
		}
	}
	return nil
}

// sourceImage views the frame source region of the memory as an image.
// No pixels are copied.
func (c *SoftwareContext) sourceImage() *image.RGBA {
	s := c.source
	return &image.RGBA{
		Pix:    c.memory[s.Offset : s.Offset+s.Size() : s.Offset+s.Size()],
		Stride: s.Width * 4,
		Rect:   image.Rect(0, 0, s.Width, s.Height),
	}
}

// Destroy stops the worker pool and drops the frame and the references
// to window and memory.
func (c *SoftwareContext) Destroy() {
	c.pool.Close()
	c.frame = image.NewRGBA(image.Rectangle{})
	c.memory = nil
	c.window = nil
	c.destroyed = true
}

// Frame returns the most recently rendered frame.
func (c *SoftwareContext) Frame() *image.RGBA {
	return c.frame
}

// Frames returns the number of frames rendered.
func (c *SoftwareContext) Frames() uint64 {
	return c.frames
}

// DeviceProvider returns a provider with no GPU device.
func (c *SoftwareContext) DeviceProvider() gpucontext.DeviceProvider {
	return NullDeviceProvider{Format: gputypes.TextureFormatRGBA8Unorm}
}

// NullDeviceProvider is a DeviceProvider that provides nil implementations.
// Used for CPU-only rendering where no GPU is available.
type NullDeviceProvider struct {
	Format gputypes.TextureFormat
}

// Device returns nil for the null device.
func (NullDeviceProvider) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceProvider) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceProvider) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns the format of frames produced on the CPU.
func (p NullDeviceProvider) SurfaceFormat() gputypes.TextureFormat { return p.Format }

// Ensure NullDeviceProvider implements DeviceProvider.
var _ gpucontext.DeviceProvider = NullDeviceProvider{}
