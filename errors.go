// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package rctx

import (
	"errors"

	"github.com/sf64rca/rctx/backend"
)

// Sentinel errors returned by the manager and AddressSpace.
var (
	// ErrNotInitialized is returned by operations that need a live render
	// context when the manager has none.
	ErrNotInitialized = errors.New("rctx: not initialized")

	// ErrOutOfRange is returned when a load does not fit the AddressSpace.
	ErrOutOfRange = errors.New("rctx: out of range")

	// ErrInvalidCapacity is returned for a non-positive AddressSpace size.
	ErrInvalidCapacity = errors.New("rctx: invalid capacity")

	// ErrCapacityExceeded is returned when the requested capacity is above MaxCapacity.
	ErrCapacityExceeded = errors.New("rctx: capacity exceeded")

	// ErrReleased is returned by operations on a released AddressSpace.
	ErrReleased = errors.New("rctx: address space released")

	// ErrUnknownToken is returned when resolving a token that is not bound.
	ErrUnknownToken = errors.New("rctx: unknown binding token")
)

// ErrorKind classifies errors by how a caller should react to them.
type ErrorKind int

const (
	// Unknown is any error not covered below.
	Unknown ErrorKind = iota

	// ConfigurationError is a caller error: invalid window, invalid
	// dimensions or an explicitly requested backend that is unavailable.
	// Not retryable without changing inputs.
	ConfigurationError

	// ResourceExhaustion is a failure to allocate backing memory or create
	// the device. Retryable.
	ResourceExhaustion

	// OutOfRange is a load that does not fit the backing memory.
	OutOfRange

	// TransientBackendBusy is a single frame or resize the backend could not
	// complete. The loop should continue.
	TransientBackendBusy

	// InvalidState is an operation that needs an initialized manager.
	InvalidState
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case ResourceExhaustion:
		return "ResourceExhaustion"
	case OutOfRange:
		return "OutOfRange"
	case TransientBackendBusy:
		return "TransientBackendBusy"
	case InvalidState:
		return "InvalidState"
	default:
		return "Unknown"
	}
}

// KindOf classifies err. A nil error is Unknown.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, backend.ErrInvalidWindow),
		errors.Is(err, backend.ErrInvalidDimensions),
		errors.Is(err, backend.ErrInvalidFrameSource),
		errors.Is(err, backend.ErrBackendNotAvailable),
		errors.Is(err, ErrInvalidCapacity):
		return ConfigurationError
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, backend.ErrDeviceCreationFailed):
		return ResourceExhaustion
	case errors.Is(err, ErrOutOfRange):
		return OutOfRange
	case errors.Is(err, backend.ErrBusy):
		return TransientBackendBusy
	case errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrReleased),
		errors.Is(err, backend.ErrDestroyed):
		return InvalidState
	default:
		return Unknown
	}
}

// IsRetryable reports whether retrying the same call may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ResourceExhaustion, TransientBackendBusy:
		return true
	default:
		return false
	}
}
