// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vulkan provides the GPU rendering backend for rctx using the
// gogpu/wgpu hardware abstraction layer.
//
// The backend registers itself with the default backend registry on import:
//
//	import _ "github.com/sf64rca/rctx/backend/vulkan"
//
// Each Context owns a HAL instance, device and queue. Frames are produced by
// a compute pass that scales the emulated framebuffer (read from the backing
// memory) into a surface-sized storage buffer; the result is read back and
// handed to windows that implement backend.FramePresenter.
//
// The scan-out shader is WGSL compiled to SPIR-V with gogpu/naga once per
// process. Only nearest-neighbour filtering is implemented on the GPU.
package vulkan
