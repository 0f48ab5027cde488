// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package rctx

import (
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/sf64rca/rctx/backend"
)

// Handle gives a UI bridge access to the live render context's device.
// It is stamped with the generation of the context it was taken from;
// once that context is shut down every accessor returns nil (or
// TextureFormatUndefined) instead of a destroyed object.
//
// Every accessor takes the manager lock and calls into the backend while
// holding it, so Shutdown cannot destroy the context mid-call. Inside
// WithBackend the lock is already held and accessors use it as is.
//
// Handle implements gpucontext.DeviceProvider, plus HalDevice and HalQueue
// for integrations that need the raw HAL objects.
type Handle struct {
	m        *Manager
	gen      uint64
	kind     backend.Kind
	provider gpucontext.DeviceProvider

	// held is set while WithBackend holds m.mu on behalf of this handle.
	held atomic.Bool
}

var _ gpucontext.DeviceProvider = (*Handle)(nil)

// with runs fn under the manager lock if the handle's context is still
// live and reports whether it ran.
func (h *Handle) with(fn func()) bool {
	if h == nil || h.m == nil || h.gen == 0 {
		return false
	}
	if !h.held.Load() {
		h.m.mu.Lock()
		defer h.m.mu.Unlock()
	}
	if !h.m.initialized || h.m.generation != h.gen {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

// Valid reports whether the context the handle was taken from is still live.
func (h *Handle) Valid() bool {
	return h.with(nil)
}

// Generation returns the context generation the handle belongs to.
func (h *Handle) Generation() uint64 { return h.gen }

// Backend returns the backend kind of the context.
func (h *Handle) Backend() backend.Kind { return h.kind }

// Device returns the GPU device, or nil if stale or the backend has none.
func (h *Handle) Device() (d gpucontext.Device) {
	h.with(func() { d = h.provider.Device() })
	return d
}

// Queue returns the command queue, or nil if stale.
func (h *Handle) Queue() (q gpucontext.Queue) {
	h.with(func() { q = h.provider.Queue() })
	return q
}

// Adapter returns the GPU adapter, or nil if stale.
func (h *Handle) Adapter() (a gpucontext.Adapter) {
	h.with(func() { a = h.provider.Adapter() })
	return a
}

// SurfaceFormat returns the format of presented frames.
func (h *Handle) SurfaceFormat() gputypes.TextureFormat {
	f := gputypes.TextureFormatUndefined
	h.with(func() { f = h.provider.SurfaceFormat() })
	return f
}

// halProvider is implemented by backends that expose hal.Device and hal.Queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// HalDevice returns the backend's hal.Device, or nil if stale or the
// backend is not GPU based.
func (h *Handle) HalDevice() (d any) {
	h.with(func() {
		if hp, ok := h.provider.(halProvider); ok {
			d = hp.HalDevice()
		}
	})
	return d
}

// HalQueue returns the backend's hal.Queue, or nil if stale or the backend
// is not GPU based.
func (h *Handle) HalQueue() (q any) {
	h.with(func() {
		if hp, ok := h.provider.(halProvider); ok {
			q = hp.HalQueue()
		}
	})
	return q
}
