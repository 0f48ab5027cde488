// Package rctx manages the lifecycle of a render context bound to a window
// surface.
//
// # Overview
//
// A Manager owns two resources: an AddressSpace (the emulated machine's
// memory) and a backend render context that scans a framebuffer region of
// that memory out to the window. It coordinates creation, resize,
// per-frame rendering, data loads and teardown when these are requested
// concurrently from an event loop goroutine and from lifecycle callbacks.
//
// # Quick Start
//
//	import (
//	    "github.com/sf64rca/rctx"
//	    "github.com/sf64rca/rctx/backend"
//	    _ "github.com/sf64rca/rctx/backend/vulkan" // register the GPU backend
//	)
//
//	m := rctx.New()
//	if err := m.Initialize(window, 1280, 720, backend.Auto); err != nil {
//	    return err
//	}
//	defer m.Shutdown()
//
//	_ = m.LoadData(rom)
//	for running {
//	    _ = m.RenderFrame()
//	}
//
// # Concurrency
//
// Every Manager method holds one mutex for its whole duration, so the
// calls observed by a single Manager are totally ordered. RenderFrame may
// block on GPU backpressure, bounded by the frame timeout.
//
// # Handles
//
// BackendHandle returns a generation-stamped Handle for UI bridges. A
// Handle taken before a Shutdown returns nil from every accessor
// afterwards. WithBackend runs a function while the context is guaranteed
// to stay alive.
//
// # Errors
//
// Errors wrap package sentinels and can be classified with KindOf into
// configuration errors, resource exhaustion, out-of-range loads, transient
// backend busy states and invalid-state calls.
package rctx

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
