// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import "errors"

// Package errors for the vulkan backend.
var (
	// ErrNoAdapter is returned when the instance exposes no GPU adapter.
	ErrNoAdapter = errors.New("vulkan: no GPU adapter found")

	// ErrShaderCompilation is returned when the scan-out shader fails to compile.
	ErrShaderCompilation = errors.New("vulkan: shader compilation failed")

	// ErrNoSurfaceTargets is returned by RenderFrame when the context has
	// no surface buffers to render into.
	ErrNoSurfaceTargets = errors.New("vulkan: no surface targets")
)
