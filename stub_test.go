package rctx

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/sf64rca/rctx/backend"
)

// testWindow is a window with a fixed native handle.
type testWindow struct {
	handle uintptr
}

func (w *testWindow) NativeHandle() uintptr { return w.handle }

func newTestWindow() *testWindow { return &testWindow{handle: 0xC0FFEE} }

type size struct{ w, h int }

// stubFactory is an instrumented backend.Factory. It records every context
// it creates so tests can inspect calls after the fact.
type stubFactory struct {
	kind      backend.Kind
	available bool
	createErr error
	nilCtx    bool // Create returns (nil, nil)

	mu       sync.Mutex
	creates  int
	infos    []backend.CreateInfo
	contexts []*stubContext
}

func (f *stubFactory) Kind() backend.Kind { return f.kind }
func (f *stubFactory) Available() bool    { return f.available }

func (f *stubFactory) Create(info backend.CreateInfo) (backend.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.nilCtx {
		return nil, nil
	}
	f.infos = append(f.infos, info)
	c := &stubContext{memory: info.Memory, width: info.Width, height: info.Height, dev: "hal-device"}
	f.contexts = append(f.contexts, c)
	return c, nil
}

func (f *stubFactory) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *stubFactory) last() *stubContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.contexts) == 0 {
		return nil
	}
	return f.contexts[len(f.contexts)-1]
}

// stubContext is an instrumented backend.Context. Each call records
// whether the context was still live and whether another call on it was in
// progress at the same time.
type stubContext struct {
	memory []byte

	resizeErr error
	renderErr error

	mu          sync.Mutex
	width       int
	height      int
	resizes     []size
	renders     int
	destroys    int
	deadCalls   int // calls made after Destroy
	overlapping int // calls that started while another was running

	inCall    atomic.Int32
	destroyed atomic.Bool

	// dev is what the provider hands out. Destroy clears it with a plain
	// write, as a GPU backend drops its device.
	dev any
}

// enter records validity and overlap for one call and returns its exit func.
func (c *stubContext) enter() func() {
	if c.inCall.Add(1) > 1 {
		c.mu.Lock()
		c.overlapping++
		c.mu.Unlock()
	}
	if c.destroyed.Load() {
		c.mu.Lock()
		c.deadCalls++
		c.mu.Unlock()
	}
	return func() { c.inCall.Add(-1) }
}

func (c *stubContext) Resize(width, height int) error {
	defer c.enter()()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resizes = append(c.resizes, size{width, height})
	if c.resizeErr != nil {
		return c.resizeErr
	}
	c.width, c.height = width, height
	return nil
}

func (c *stubContext) RenderFrame() error {
	defer c.enter()()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renders++
	// Touch the lent memory the way a real scan-out does.
	if len(c.memory) > 0 {
		_ = c.memory[len(c.memory)-1]
	}
	return c.renderErr
}

func (c *stubContext) Destroy() {
	defer c.enter()()
	c.mu.Lock()
	c.destroys++
	c.mu.Unlock()
	c.dev = nil
	c.destroyed.Store(true)
}

func (c *stubContext) DeviceProvider() gpucontext.DeviceProvider {
	return stubProvider{ctx: c}
}

func (c *stubContext) snapshot() (resizes []size, renders, destroys, dead, overlap int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]size(nil), c.resizes...), c.renders, c.destroys, c.deadCalls, c.overlapping
}

func (c *stubContext) setErrors(resizeErr, renderErr error) {
	c.mu.Lock()
	c.resizeErr, c.renderErr = resizeErr, renderErr
	c.mu.Unlock()
}

type stubDevice struct{}

func (stubDevice) Poll(bool) {}
func (stubDevice) Destroy()  {}

type stubQueue struct{}

// stubProvider hands out a device while its context is live.
type stubProvider struct {
	ctx *stubContext
}

func (p stubProvider) Device() gpucontext.Device {
	if p.ctx.dev == nil {
		return nil
	}
	return stubDevice{}
}
func (p stubProvider) Queue() gpucontext.Queue     { return stubQueue{} }
func (p stubProvider) Adapter() gpucontext.Adapter { return nil }
func (p stubProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}
func (p stubProvider) HalDevice() any { return p.ctx.dev }
func (p stubProvider) HalQueue() any  { return "hal-queue" }

// newStubManager returns a manager whose registry holds an available stub
// Vulkan factory and an available stub Software factory. It returns the
// Vulkan stub.
func newStubManager(t *testing.T, opts ...Option) (*Manager, *stubFactory) {
	t.Helper()
	reg := backend.NewRegistry()
	vk := &stubFactory{kind: backend.Vulkan, available: true}
	reg.Register(vk)
	reg.Register(&stubFactory{kind: backend.Software, available: true})

	all := append([]Option{WithRegistry(reg), WithCapacity(1 << 20)}, opts...)
	m := New(all...)
	t.Cleanup(m.Shutdown)
	return m, vk
}
