// Package backend defines the boundary between the renderer lifecycle
// manager and the rendering backends.
//
// A backend is a Factory that creates Contexts. A Context bundles a device,
// a surface-sized render target and per-frame submission state; it scans the
// emulated framebuffer (a FrameSource inside the backing memory) out onto the
// window surface.
//
// # Backend Registration
//
// Backends register a Factory from init(). The software backend is
// registered by this package; the GPU backend registers on import:
//
//	import _ "github.com/sf64rca/rctx/backend/vulkan"
//
// # Backend Selection
//
// Select picks the preferred backend (Vulkan) when its runtime library can be
// loaded and falls back to Software otherwise:
//
//	kind := backend.SelectBackend()
//
// Selection never fails; an unavailable GPU only changes the result.
//
// # Available Backends
//
//   - "vulkan": gogpu/wgpu Vulkan HAL, compute scan-out (preferred)
//   - "software": CPU scaling via golang.org/x/image/draw (always available)
package backend
