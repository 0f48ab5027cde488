// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// deviceRef adapts the HAL device to gpucontext.Device. The context owns
// the device, so Destroy through the provider is a no-op.
type deviceRef struct {
	ctx *Context
}

// Poll is a no-op: frames are waited on synchronously by RenderFrame.
func (d deviceRef) Poll(bool) {}

// Destroy is a no-op; the owning Context releases the device.
func (d deviceRef) Destroy() {}

// deviceProvider implements gpucontext.DeviceProvider and exposes the raw
// HAL objects through HalDevice and HalQueue.
type deviceProvider struct {
	ctx *Context
}

var _ gpucontext.DeviceProvider = (*deviceProvider)(nil)

func (p *deviceProvider) Device() gpucontext.Device {
	if p.ctx.device == nil {
		return nil
	}
	return deviceRef{ctx: p.ctx}
}

func (p *deviceProvider) Queue() gpucontext.Queue {
	if p.ctx.queue == nil {
		return nil
	}
	return p.ctx.queue
}

func (p *deviceProvider) Adapter() gpucontext.Adapter { return p.ctx.adapter }

// SurfaceFormat is the layout of frames handed to the presenter.
func (p *deviceProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// HalDevice returns the hal.Device, or nil after Destroy.
func (p *deviceProvider) HalDevice() any {
	if p.ctx.device == nil {
		return nil
	}
	return p.ctx.device
}

// HalQueue returns the hal.Queue, or nil after Destroy.
func (p *deviceProvider) HalQueue() any {
	if p.ctx.queue == nil {
		return nil
	}
	return p.ctx.queue
}
