// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package rctx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sf64rca/rctx/backend"
)

// State is the lifecycle state of a Manager.
type State int

const (
	// Uninitialized means no render context and no backing memory exist.
	Uninitialized State = iota
	// Initialized means a render context and backing memory are live.
	Initialized
)

// String returns the state name.
func (s State) String() string {
	if s == Initialized {
		return "Initialized"
	}
	return "Uninitialized"
}

// Stats counts manager activity since creation. Counters survive
// Shutdown/Initialize cycles.
type Stats struct {
	Initializations uint64 // successful Initialize calls that created a context
	FramesRendered  uint64 // RenderFrame calls the backend completed
	FramesDropped   uint64 // RenderFrame calls while uninitialized
	FramesBusy      uint64 // RenderFrame calls the backend reported as busy
	FrameErrors     uint64 // other RenderFrame failures
	Resizes         uint64 // backend resize calls that succeeded
	ResizeErrors    uint64 // backend resize calls that failed
	Loads           uint64 // successful LoadData/LoadDataAt calls
	BytesLoaded     uint64
}

// Manager owns the handshake between a window surface and a render
// context: creation, resize, per-frame rendering, data loads and teardown.
//
// Every public method takes the same mutex for its full duration, so calls
// from an event loop goroutine and from lifecycle callbacks on other
// goroutines are totally ordered. No method is reentrant: calling back into
// the Manager from inside WithBackend deadlocks.
//
// The zero value is not usable; create managers with New.
type Manager struct {
	mu   sync.Mutex
	opts options
	reg  *backend.Registry

	initialized   bool
	width, height int
	selected      backend.Kind
	mem           *AddressSpace
	ctx           backend.Context
	window        backend.Window
	generation    uint64
	pendingResize bool
	stats         Stats

	// alloc allocates the backing memory. Tests replace it to observe the
	// AddressSpace of a failed Initialize.
	alloc func(capacity int) (*AddressSpace, error)
}

// New creates an uninitialized Manager.
func New(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	reg := o.registry
	if reg == nil {
		reg = backend.DefaultRegistry()
	}
	return &Manager{opts: o, reg: reg, alloc: Allocate}
}

// Initialize allocates the backing memory and creates a render context for
// window at width×height using the requested backend. backend.Auto runs
// backend.Select against the manager's registry.
//
// Calling Initialize while initialized returns nil without side effects,
// even if the arguments differ. On failure everything allocated is
// released and the manager stays uninitialized; the call may be retried.
func (m *Manager) Initialize(window backend.Window, width, height int, kind backend.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	log := Logger()

	if window == nil || window.NativeHandle() == 0 {
		return fmt.Errorf("rctx: initialize: %w", backend.ErrInvalidWindow)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("rctx: initialize: %w: %dx%d", backend.ErrInvalidDimensions, width, height)
	}

	factory, resolved, err := m.resolveFactory(kind)
	if err != nil {
		return fmt.Errorf("rctx: initialize: %w", err)
	}

	mem, err := m.alloc(m.opts.capacity)
	if err != nil {
		return fmt.Errorf("rctx: initialize: %w", err)
	}

	ctx, err := factory.Create(backend.CreateInfo{
		Window:       window,
		Memory:       mem.Bytes(),
		Width:        width,
		Height:       height,
		Source:       m.opts.source,
		Filter:       m.opts.filter,
		FrameTimeout: m.opts.frameTimeout,
	})
	if err != nil {
		mem.Release()
		log.Warn("rctx: context creation failed", "backend", resolved, "err", err)
		return fmt.Errorf("rctx: initialize %s: %w", resolved, err)
	}
	if ctx == nil {
		mem.Release()
		return fmt.Errorf("rctx: initialize %s: %w: factory returned no context",
			resolved, backend.ErrDeviceCreationFailed)
	}

	m.mem = mem
	m.ctx = ctx
	m.window = window
	m.width, m.height = width, height
	m.selected = resolved
	m.pendingResize = false
	m.generation++
	m.initialized = true
	m.stats.Initializations++

	log.Info("rctx: initialized",
		"backend", resolved, "width", width, "height", height,
		"capacity", mem.Capacity(), "generation", m.generation)
	return nil
}

// resolveFactory maps the requested kind to a registered, available factory.
func (m *Manager) resolveFactory(kind backend.Kind) (backend.Factory, backend.Kind, error) {
	requested := kind
	if kind == backend.Auto {
		kind = backend.Select(m.reg)
		Logger().Info("rctx: backend selected", "backend", kind)
	}
	f := m.reg.Get(kind)
	if f == nil {
		return nil, kind, fmt.Errorf("%w: %s not registered", backend.ErrBackendNotAvailable, kind)
	}
	// Auto already probed the preferred backend; the fallback is trusted.
	if requested != backend.Auto && !f.Available() {
		return nil, kind, fmt.Errorf("%w: %s", backend.ErrBackendNotAvailable, kind)
	}
	return f, kind, nil
}

// Resize records the new surface size and resizes the render context.
//
// It is a no-op when uninitialized or when the size is unchanged. The size
// is stored before the backend is called; if the backend fails the error is
// returned and the resize is retried before the next frame.
func (m *Manager) Resize(width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("rctx: resize: %w: %dx%d", backend.ErrInvalidDimensions, width, height)
	}
	if width == m.width && height == m.height {
		return nil
	}
	m.width, m.height = width, height
	return m.resizeBackend()
}

// resizeBackend pushes the stored size to the context. Caller holds mu.
func (m *Manager) resizeBackend() error {
	if err := m.ctx.Resize(m.width, m.height); err != nil {
		m.pendingResize = true
		m.stats.ResizeErrors++
		Logger().Warn("rctx: backend resize failed",
			"width", m.width, "height", m.height, "err", err)
		return fmt.Errorf("rctx: resize to %dx%d: %w", m.width, m.height, err)
	}
	m.pendingResize = false
	m.stats.Resizes++
	Logger().Debug("rctx: resized", "width", m.width, "height", m.height)
	return nil
}

// RenderFrame renders one frame. Calling it while uninitialized is a
// silently dropped frame. Backend errors, including busy frames, are
// returned and never change state.
func (m *Manager) RenderFrame() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		m.stats.FramesDropped++
		return nil
	}
	if m.pendingResize {
		if err := m.resizeBackend(); err != nil {
			if errors.Is(err, backend.ErrBusy) {
				m.stats.FramesBusy++
			} else {
				m.stats.FrameErrors++
			}
			return err
		}
	}
	if err := m.ctx.RenderFrame(); err != nil {
		if errors.Is(err, backend.ErrBusy) {
			m.stats.FramesBusy++
			Logger().Warn("rctx: frame busy", "err", err)
		} else {
			m.stats.FrameErrors++
			Logger().Warn("rctx: frame failed", "err", err)
		}
		return fmt.Errorf("rctx: render frame: %w", err)
	}
	m.stats.FramesRendered++
	return nil
}

// LoadData writes p at the start of the backing memory.
func (m *Manager) LoadData(p []byte) error {
	return m.LoadDataAt(0, p)
}

// LoadDataAt writes p into the backing memory at offset. It fails with
// ErrNotInitialized when there is no backing memory and with ErrOutOfRange
// when p does not fit; in both cases nothing is written or allocated.
func (m *Manager) LoadDataAt(offset int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return fmt.Errorf("rctx: load: %w", ErrNotInitialized)
	}
	if err := m.mem.Load(offset, p); err != nil {
		return fmt.Errorf("rctx: load: %w", err)
	}
	m.stats.Loads++
	m.stats.BytesLoaded += uint64(len(p))
	Logger().Debug("rctx: data loaded", "offset", offset, "bytes", len(p))
	return nil
}

// ReadData returns a copy of n bytes of backing memory starting at offset.
func (m *Manager) ReadData(offset, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("rctx: read: %w", ErrNotInitialized)
	}
	return m.mem.Read(offset, n)
}

// Shutdown destroys the render context, releases the backing memory and
// drops the window. It is a no-op when uninitialized. The manager can be
// initialized again afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}
	m.ctx.Destroy()
	m.ctx = nil
	m.mem.Release()
	m.mem = nil
	m.window = nil
	m.pendingResize = false
	m.initialized = false

	Logger().Info("rctx: shut down", "backend", m.selected, "generation", m.generation)
}

// IsInitialized reports whether a render context is live.
func (m *Manager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	if m.IsInitialized() {
		return Initialized
	}
	return Uninitialized
}

// SurfaceSize returns the last stored surface size.
func (m *Manager) SurfaceSize() (width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

// Backend returns the backend chosen by the last successful Initialize,
// or backend.Auto if there has been none.
func (m *Manager) Backend() backend.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Stats returns a snapshot of the activity counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// BackendHandle returns a handle to the live render context, or nil when
// uninitialized. The handle goes stale at the next Shutdown; fetch a new
// one rather than caching it across lifecycle changes.
func (m *Manager) BackendHandle() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handleLocked()
}

func (m *Manager) handleLocked() *Handle {
	if !m.initialized {
		return nil
	}
	return &Handle{
		m:        m,
		gen:      m.generation,
		kind:     m.selected,
		provider: m.ctx.DeviceProvider(),
	}
}

// WithBackend calls fn with a live handle while holding the manager lock,
// so the context cannot be shut down while fn runs. The handle's own
// accessors may be used inside fn; Manager methods must not.
func (m *Manager) WithBackend(fn func(h *Handle) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.handleLocked()
	if h == nil {
		return fmt.Errorf("rctx: with backend: %w", ErrNotInitialized)
	}
	h.held.Store(true)
	defer h.held.Store(false)
	return fn(h)
}
