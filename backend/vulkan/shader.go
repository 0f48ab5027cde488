// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// scanoutWorkgroupSize matches @workgroup_size in scanoutShaderWGSL.
const scanoutWorkgroupSize = 8

// scanoutShaderWGSL scales the source framebuffer onto the surface with
// nearest-neighbour sampling. One invocation per destination pixel; pixels
// are RGBA8 packed into u32 words, so byte order is preserved.
const scanoutShaderWGSL = `
struct Params {
    src_width: u32,
    src_height: u32,
    dst_width: u32,
    dst_height: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<u32>;
@group(0) @binding(2) var<storage, read_write> dst: array<u32>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.dst_width || gid.y >= params.dst_height) {
        return;
    }
    let sx = gid.x * params.src_width / params.dst_width;
    let sy = gid.y * params.src_height / params.dst_height;
    dst[gid.y * params.dst_width + gid.x] = src[sy * params.src_width + sx];
}
`

var (
	scanoutOnce  sync.Once
	scanoutSPIRV []uint32
	scanoutErr   error
)

// scanoutShader returns the compiled scan-out shader, compiling it on first use.
func scanoutShader() ([]uint32, error) {
	scanoutOnce.Do(func() {
		scanoutSPIRV, scanoutErr = compileToSPIRV(scanoutShaderWGSL)
	})
	return scanoutSPIRV, scanoutErr
}

// compileToSPIRV compiles WGSL source to SPIR-V words.
func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompilation, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V length %d is not word aligned", ErrShaderCompilation, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
