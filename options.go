// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package rctx

import (
	"time"

	"github.com/sf64rca/rctx/backend"
)

// Option configures a Manager during creation.
//
// Example:
//
//	// Defaults: 64 MiB of backing memory, the default backend registry.
//	m := rctx.New()
//
//	// 8 MiB of memory and a bilinear software scan-out.
//	m := rctx.New(rctx.WithCapacity(8<<20), rctx.WithFilter(backend.FilterBilinear))
type Option func(*options)

// options holds optional configuration for Manager creation.
type options struct {
	capacity     int
	registry     *backend.Registry
	source       backend.FrameSource
	filter       backend.Filter
	frameTimeout time.Duration
}

// defaultOptions returns the default manager options.
func defaultOptions() options {
	return options{
		capacity:     DefaultCapacity,
		registry:     nil, // Resolved to backend.DefaultRegistry() in New
		source:       backend.DefaultFrameSource,
		filter:       backend.FilterNearest,
		frameTimeout: backend.DefaultFrameTimeout,
	}
}

// WithCapacity sets the size of the AddressSpace allocated on Initialize.
// Invalid capacities are reported by Initialize, not here.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithRegistry sets the backend registry used for selection and creation.
// Tests use this to inject stub factories without touching the default
// registry.
func WithRegistry(r *backend.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithFrameSource sets where the emulated framebuffer lives in memory.
func WithFrameSource(s backend.FrameSource) Option {
	return func(o *options) {
		o.source = s
	}
}

// WithFilter sets the scan-out filter. Backends that cannot honor it fall
// back to nearest-neighbour.
func WithFilter(f backend.Filter) Option {
	return func(o *options) {
		o.filter = f
	}
}

// WithFrameTimeout bounds how long RenderFrame waits on the GPU before
// reporting the frame as busy.
func WithFrameTimeout(d time.Duration) Option {
	return func(o *options) {
		o.frameTimeout = d
	}
}
