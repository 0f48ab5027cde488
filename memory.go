// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package rctx

import "fmt"

const (
	// DefaultCapacity is the backing memory size used when no WithCapacity
	// option is given: 64 MiB.
	DefaultCapacity = 64 << 20

	// MaxCapacity is the largest AddressSpace that can be allocated: 1 GiB.
	MaxCapacity = 1 << 30
)

// AddressSpace is the fixed-capacity, zero-initialized buffer standing in
// for the emulated machine's memory. It is owned by exactly one Manager and
// lent to the render context for the duration of delegated calls.
//
// AddressSpace is not safe for concurrent use; the Manager serializes access.
type AddressSpace struct {
	buf []byte
}

// Allocate returns a zeroed AddressSpace of the given capacity in bytes.
func Allocate(capacity int) (*AddressSpace, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, capacity, MaxCapacity)
	}
	return &AddressSpace{buf: make([]byte, capacity)}, nil
}

// Capacity returns the size of the space in bytes, or 0 once released.
func (a *AddressSpace) Capacity() int {
	return len(a.buf)
}

// Load copies data into the space starting at offset. If the region does
// not fit, nothing is written and the error wraps ErrOutOfRange.
func (a *AddressSpace) Load(offset int, data []byte) error {
	if a.buf == nil {
		return ErrReleased
	}
	if offset < 0 || offset > len(a.buf) || len(data) > len(a.buf)-offset {
		return fmt.Errorf("%w: %d bytes at offset %d, capacity %d",
			ErrOutOfRange, len(data), offset, len(a.buf))
	}
	copy(a.buf[offset:], data)
	return nil
}

// Read returns a copy of n bytes starting at offset.
func (a *AddressSpace) Read(offset, n int) ([]byte, error) {
	if a.buf == nil {
		return nil, ErrReleased
	}
	if offset < 0 || n < 0 || offset > len(a.buf) || n > len(a.buf)-offset {
		return nil, fmt.Errorf("%w: %d bytes at offset %d, capacity %d",
			ErrOutOfRange, n, offset, len(a.buf))
	}
	out := make([]byte, n)
	copy(out, a.buf[offset:])
	return out, nil
}

// Bytes returns the backing slice. Callers must not retain it beyond the
// operation they were handed it for.
func (a *AddressSpace) Bytes() []byte {
	return a.buf
}

// Release drops the buffer. Releasing twice is a no-op.
func (a *AddressSpace) Release() {
	a.buf = nil
}

// Released reports whether Release has been called.
func (a *AddressSpace) Released() bool {
	return a.buf == nil
}
