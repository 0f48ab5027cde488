// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/sf64rca/rctx/backend"

	// Import Vulkan HAL so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// InstanceCreator creates HAL instances. The registered Vulkan HAL backend
// satisfies it, as does the wgpu noop API used in tests.
type InstanceCreator interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Factory creates Vulkan render contexts.
//
// The zero value uses the Vulkan HAL backend registered with wgpu.
// Factory is safe for concurrent use.
type Factory struct {
	// API overrides the HAL used to create instances.
	API InstanceCreator

	probeOnce sync.Once
	probeOK   bool
}

// init registers the vulkan backend on package import.
// This enables automatic selection by backend.SelectBackend.
func init() {
	backend.Register(&Factory{})
}

// NewFactory creates a factory that uses api instead of the registered
// Vulkan HAL backend.
func NewFactory(api InstanceCreator) *Factory {
	return &Factory{API: api}
}

// Kind returns backend.Vulkan.
func (f *Factory) Kind() backend.Kind { return backend.Vulkan }

// api returns the HAL used to create instances.
func (f *Factory) api() (InstanceCreator, error) {
	if f.API != nil {
		return f.API, nil
	}
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan HAL not registered", backend.ErrBackendNotAvailable)
	}
	return b, nil
}

// Available reports whether the Vulkan loader can be opened and exposes at
// least one adapter. The probe instance is destroyed immediately and the
// result is cached.
func (f *Factory) Available() bool {
	f.probeOnce.Do(func() {
		f.probeOK = f.probe()
	})
	return f.probeOK
}

func (f *Factory) probe() bool {
	log := backend.Logger()
	api, err := f.api()
	if err != nil {
		log.Debug("vulkan probe failed", "err", err)
		return false
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		log.Debug("vulkan probe failed", "err", err)
		return false
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	log.Debug("vulkan probe", "adapters", len(adapters))
	return len(adapters) > 0
}

// Create creates a Vulkan context: instance, adapter, device, queue,
// scan-out pipeline and surface-sized buffers. On failure everything
// created so far is released.
func (f *Factory) Create(info backend.CreateInfo) (backend.Context, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	api, err := f.api()
	if err != nil {
		return nil, err
	}

	c := newContext(info)
	if err := c.setup(api, info.Width, info.Height); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}
