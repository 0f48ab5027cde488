// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"encoding/binary"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/sf64rca/rctx/backend"
)

// paramsSize is the size of the Params uniform in scanoutShaderWGSL.
const paramsSize = 16

// inflightFrame is a submitted frame whose fence wait timed out. Its command
// buffer and fence stay alive until the GPU signals the fence.
type inflightFrame struct {
	fence hal.Fence
	cmd   hal.CommandBuffer
}

// Context is a Vulkan render context. It implements backend.Context.
//
// Context is not safe for concurrent use; the lifecycle manager serializes
// all calls.
type Context struct {
	window  backend.Window
	memory  []byte
	source  backend.FrameSource
	timeout time.Duration

	// GPU resources
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  gpucontext.Adapter
	gpuName  string

	// Scan-out pipeline
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	// Buffers. srcBuf is sized by the frame source, the rest by the surface.
	paramsBuf  hal.Buffer
	srcBuf     hal.Buffer
	dstBuf     hal.Buffer
	stagingBuf hal.Buffer
	bindGroup  hal.BindGroup

	width   int
	height  int
	frame   *image.RGBA
	pending *inflightFrame

	frames    uint64
	destroyed bool
}

var _ backend.Context = (*Context)(nil)

func newContext(info backend.CreateInfo) *Context {
	timeout := info.FrameTimeout
	if timeout <= 0 {
		timeout = backend.DefaultFrameTimeout
	}
	if info.Filter != backend.FilterNearest {
		backend.Logger().Debug("vulkan: filter not supported on GPU, using nearest", "filter", info.Filter)
	}
	return &Context{
		window:  info.Window,
		memory:  info.Memory,
		source:  info.Source,
		timeout: timeout,
	}
}

// setup creates every GPU resource in order. The caller destroys the
// context on error; each Destroy step is nil-checked for partial cleanup.
func (c *Context) setup(api InstanceCreator, width, height int) error {
	// Step 1: Create Instance
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", backend.ErrBackendNotAvailable, err)
	}
	c.instance = instance

	// Step 2: Pick an adapter (prefer a real GPU)
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("%w: %w", backend.ErrBackendNotAvailable, ErrNoAdapter)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	c.gpuName = selected.Info.Name

	// Step 3: Open device and queue
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("%w: open device: %w", backend.ErrDeviceCreationFailed, err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue
	c.adapter = selected.Adapter

	// Step 4: Scan-out pipeline
	if err := c.createPipeline(); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrDeviceCreationFailed, err)
	}

	// Step 5: Buffers
	if err := c.createSourceBuffers(); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrDeviceCreationFailed, err)
	}
	if err := c.ensureTargets(width, height); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrDeviceCreationFailed, err)
	}

	backend.Logger().Info("vulkan context created",
		"gpu", c.gpuName, "width", width, "height", height)
	return nil
}

func (c *Context) createPipeline() error {
	spirv, err := scanoutShader()
	if err != nil {
		return err
	}

	shader, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "rctx_scanout",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create scan-out shader: %w", err)
	}
	c.shader = shader

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "rctx_scanout_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "rctx_scanout_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout

	pipeline, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "rctx_scanout_pipeline", Layout: c.pipeLayout,
		Compute: hal.ComputeState{Module: c.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	c.pipeline = pipeline
	return nil
}

func (c *Context) createSourceBuffers() error {
	paramsBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rctx_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	c.paramsBuf = paramsBuf

	srcBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rctx_framebuffer", Size: uint64(c.source.Size()), //nolint:gosec // validated positive
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create framebuffer buffer: %w", err)
	}
	c.srcBuf = srcBuf
	return nil
}

// ensureTargets (re)creates the surface-sized buffers and bind group.
// Identical dimensions are a no-op. The new targets are built before the
// old ones are released, so a failure leaves the current targets in place.
func (c *Context) ensureTargets(width, height int) error {
	if c.width == width && c.height == height && c.dstBuf != nil {
		return nil
	}

	size := uint64(width) * uint64(height) * 4 //nolint:gosec // validated positive

	dstBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rctx_surface", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create surface buffer: %w", err)
	}

	stagingBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rctx_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		c.device.DestroyBuffer(dstBuf)
		return fmt.Errorf("create staging buffer: %w", err)
	}

	bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "rctx_scanout_bind", Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: c.paramsBuf.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: c.srcBuf.NativeHandle(), Offset: 0, Size: uint64(c.source.Size())}}, //nolint:gosec // validated positive
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dstBuf.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		c.device.DestroyBuffer(stagingBuf)
		c.device.DestroyBuffer(dstBuf)
		return fmt.Errorf("create bind group: %w", err)
	}

	c.destroyTargets()
	c.dstBuf, c.stagingBuf, c.bindGroup = dstBuf, stagingBuf, bindGroup

	c.queue.WriteBuffer(c.paramsBuf, 0, c.paramsBytes(width, height))
	c.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	c.width = width
	c.height = height
	return nil
}

func (c *Context) paramsBytes(width, height int) []byte {
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(c.source.Width))  //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(b[4:], uint32(c.source.Height)) //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(b[8:], uint32(width))           //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(b[12:], uint32(height))         //nolint:gosec // validated positive
	return b
}

// Resize recreates the surface-sized buffers. Identical dimensions are a
// no-op. If a previous frame is still on the GPU the resize is reported
// as busy and nothing changes.
func (c *Context) Resize(width, height int) error {
	if c.destroyed {
		return backend.ErrDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", backend.ErrInvalidDimensions, width, height)
	}
	if c.width == width && c.height == height {
		return nil
	}
	if err := c.retire(); err != nil {
		return err
	}
	if err := c.ensureTargets(width, height); err != nil {
		return fmt.Errorf("vulkan: resize to %dx%d: %w", width, height, err)
	}
	backend.Logger().Debug("vulkan context resized", "width", width, "height", height)
	return nil
}

// RenderFrame uploads the framebuffer, dispatches the scan-out pass, waits
// for the GPU within the frame timeout and presents the read-back frame.
func (c *Context) RenderFrame() error {
	if c.destroyed {
		return backend.ErrDestroyed
	}
	if err := c.retire(); err != nil {
		return err
	}
	if c.bindGroup == nil {
		return ErrNoSurfaceTargets
	}

	s := c.source
	c.queue.WriteBuffer(c.srcBuf, 0, c.memory[s.Offset:s.Offset+s.Size()])

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "rctx_frame_encoder"})
	if err != nil {
		return fmt.Errorf("vulkan: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("rctx_frame"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("vulkan: begin encoding: %w", err)
	}

	w, h := uint32(c.width), uint32(c.height) //nolint:gosec // dimensions always fit uint32
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "rctx_scanout_pass"})
	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, c.bindGroup, nil)
	pass.Dispatch((w+scanoutWorkgroupSize-1)/scanoutWorkgroupSize, (h+scanoutWorkgroupSize-1)/scanoutWorkgroupSize, 1)
	pass.End()

	size := uint64(w) * uint64(h) * 4
	encoder.CopyBufferToBuffer(c.dstBuf, c.stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("vulkan: end encoding: %w", err)
	}

	fence, err := c.device.CreateFence()
	if err != nil {
		c.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("vulkan: create fence: %w", err)
	}
	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		c.device.DestroyFence(fence)
		c.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("vulkan: submit: %w", err)
	}

	ok, err := c.device.Wait(fence, 1, c.timeout)
	if err != nil {
		c.pending = &inflightFrame{fence: fence, cmd: cmdBuf}
		return fmt.Errorf("vulkan: wait for GPU: %w", err)
	}
	if !ok {
		c.pending = &inflightFrame{fence: fence, cmd: cmdBuf}
		return fmt.Errorf("%w: frame not finished within %v", backend.ErrBusy, c.timeout)
	}
	c.device.DestroyFence(fence)
	c.device.FreeCommandBuffer(cmdBuf)
	c.frames++

	p, ok := c.window.(backend.FramePresenter)
	if !ok {
		return nil
	}
	if err := c.queue.ReadBuffer(c.stagingBuf, 0, c.frame.Pix); err != nil {
		return fmt.Errorf("vulkan: readback: %w", err)
	}
	if err := p.PresentFrame(c.frame); err != nil {
		return fmt.Errorf("vulkan: present: %w", err)
	}
	return nil
}

// retire waits once more for a frame that previously timed out and frees
// it. It reports ErrBusy if the GPU still has not finished.
func (c *Context) retire() error {
	if c.pending == nil {
		return nil
	}
	ok, err := c.device.Wait(c.pending.fence, 1, c.timeout)
	if err != nil {
		return fmt.Errorf("vulkan: wait for previous frame: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: previous frame still in flight", backend.ErrBusy)
	}
	c.releasePending()
	return nil
}

func (c *Context) releasePending() {
	if c.pending == nil {
		return
	}
	c.device.DestroyFence(c.pending.fence)
	c.device.FreeCommandBuffer(c.pending.cmd)
	c.pending = nil
}

// Destroy releases all GPU resources in reverse order of creation.
// A frame still in flight is given one more frame timeout to finish.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	if c.device != nil {
		if c.pending != nil {
			if ok, err := c.device.Wait(c.pending.fence, 1, c.timeout); err != nil || !ok {
				backend.Logger().Warn("vulkan: destroying context with frame in flight", "err", err)
			}
			c.releasePending()
		}
		c.destroyTargets()
		c.destroySourceBuffers()
		c.destroyPipeline()
		c.device.Destroy()
		c.device = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	c.queue = nil
	c.adapter = nil
	c.window = nil
	c.memory = nil
	c.frame = nil

	backend.Logger().Info("vulkan context destroyed", "gpu", c.gpuName, "frames", c.frames)
}

// destroyTargets releases the surface-sized buffers and bind group.
func (c *Context) destroyTargets() {
	if c.bindGroup != nil {
		c.device.DestroyBindGroup(c.bindGroup)
		c.bindGroup = nil
	}
	if c.stagingBuf != nil {
		c.device.DestroyBuffer(c.stagingBuf)
		c.stagingBuf = nil
	}
	if c.dstBuf != nil {
		c.device.DestroyBuffer(c.dstBuf)
		c.dstBuf = nil
	}
	c.width, c.height = 0, 0
}

func (c *Context) destroySourceBuffers() {
	if c.srcBuf != nil {
		c.device.DestroyBuffer(c.srcBuf)
		c.srcBuf = nil
	}
	if c.paramsBuf != nil {
		c.device.DestroyBuffer(c.paramsBuf)
		c.paramsBuf = nil
	}
}

func (c *Context) destroyPipeline() {
	if c.pipeline != nil {
		c.device.DestroyComputePipeline(c.pipeline)
		c.pipeline = nil
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		c.device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
	if c.shader != nil {
		c.device.DestroyShaderModule(c.shader)
		c.shader = nil
	}
}

// Size returns the current surface size.
func (c *Context) Size() (width, height int) {
	return c.width, c.height
}

// Frames returns the number of frames that completed on the GPU.
func (c *Context) Frames() uint64 {
	return c.frames
}

// GPUName returns the name of the adapter in use.
func (c *Context) GPUName() string {
	return c.gpuName
}

// DeviceProvider exposes the HAL device and queue to host integrations.
// The provider must not be used after Destroy.
func (c *Context) DeviceProvider() gpucontext.DeviceProvider {
	return &deviceProvider{ctx: c}
}
