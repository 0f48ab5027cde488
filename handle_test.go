package rctx

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/sf64rca/rctx/backend"
)

func TestBackendHandleUninitialized(t *testing.T) {
	m, _ := newStubManager(t)
	if h := m.BackendHandle(); h != nil {
		t.Errorf("BackendHandle() = %v, want nil", h)
	}
	var h *Handle
	if h.Valid() || h.Device() != nil || h.HalDevice() != nil {
		t.Error("nil handle should be invalid and return nil")
	}
}

func TestBackendHandleLive(t *testing.T) {
	m, _ := newStubManager(t)
	if err := m.Initialize(newTestWindow(), 10, 10, backend.Vulkan); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h := m.BackendHandle()
	if !h.Valid() {
		t.Fatal("fresh handle is not valid")
	}
	if h.Backend() != backend.Vulkan {
		t.Errorf("Backend() = %v, want vulkan", h.Backend())
	}
	if h.Device() == nil || h.Queue() == nil {
		t.Error("live handle should expose device and queue")
	}
	if h.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %v", h.SurfaceFormat())
	}
	if h.HalDevice() != "hal-device" || h.HalQueue() != "hal-queue" {
		t.Errorf("HalDevice/HalQueue = %v/%v", h.HalDevice(), h.HalQueue())
	}
}

func TestBackendHandleStaleAfterShutdown(t *testing.T) {
	m, _ := newStubManager(t)
	w := newTestWindow()
	if err := m.Initialize(w, 10, 10, backend.Vulkan); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	stale := m.BackendHandle()
	m.Shutdown()

	check := func() {
		t.Helper()
		if stale.Valid() {
			t.Error("handle still valid after Shutdown")
		}
		if stale.Device() != nil || stale.Queue() != nil || stale.Adapter() != nil {
			t.Error("stale handle returned a device object")
		}
		if stale.HalDevice() != nil || stale.HalQueue() != nil {
			t.Error("stale handle returned a HAL object")
		}
		if stale.SurfaceFormat() != gputypes.TextureFormatUndefined {
			t.Error("stale handle returned a surface format")
		}
	}
	check()

	// Re-initializing does not revive the old handle.
	if err := m.Initialize(w, 10, 10, backend.Vulkan); err != nil {
		t.Fatalf("re-Initialize: %v", err)
	}
	check()
	if !m.BackendHandle().Valid() {
		t.Error("new handle is not valid")
	}
}

func TestWithBackend(t *testing.T) {
	m, _ := newStubManager(t)

	err := m.WithBackend(func(*Handle) error { return nil })
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("WithBackend while uninitialized = %v, want ErrNotInitialized", err)
	}

	if err := m.Initialize(newTestWindow(), 10, 10, backend.Vulkan); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	called := false
	var kept *Handle
	err = m.WithBackend(func(h *Handle) error {
		called = true
		kept = h
		// Accessors run under the lock WithBackend already holds.
		if !h.Valid() || h.HalDevice() != "hal-device" {
			t.Error("handle passed to WithBackend is not usable")
		}
		return nil
	})
	if err != nil || !called {
		t.Errorf("WithBackend = %v, called %v", err, called)
	}
	if kept.HalDevice() != "hal-device" {
		t.Error("handle kept from WithBackend stopped working")
	}
	m.Shutdown()
	if kept.Valid() || kept.HalDevice() != nil {
		t.Error("handle kept from WithBackend survived Shutdown")
	}
	if err := m.Initialize(newTestWindow(), 10, 10, backend.Vulkan); err != nil {
		t.Fatalf("re-Initialize: %v", err)
	}

	sentinel := errors.New("bridge failed")
	if err := m.WithBackend(func(*Handle) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("WithBackend error = %v, want %v", err, sentinel)
	}
}

// Accessors run concurrently with Shutdown must see either the live device
// or nil, never a context in the middle of Destroy. Run with -race.
func TestBackendHandleConcurrentShutdown(t *testing.T) {
	m, vk := newStubManager(t)
	w := newTestWindow()

	for i := 0; i < 200; i++ {
		if err := m.Initialize(w, 10, 10, backend.Vulkan); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		h := m.BackendHandle()

		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if d := h.HalDevice(); d != nil && d != "hal-device" {
					t.Errorf("HalDevice() = %v", d)
					return
				}
				_ = h.Device()
				_ = h.SurfaceFormat()
			}
		}()
		m.Shutdown()
		if h.HalDevice() != nil {
			t.Error("HalDevice() after Shutdown is not nil")
		}
		close(stop)
		wg.Wait()
	}

	for _, c := range vk.contexts {
		if _, _, _, dead, overlap := c.snapshot(); dead != 0 || overlap != 0 {
			t.Errorf("context saw %d calls after Destroy, %d overlapping", dead, overlap)
		}
	}
}
