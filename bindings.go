// Copyright 2026 The rctx Authors
// SPDX-License-Identifier: BSD-3-Clause

package rctx

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Token is an opaque registration token handed to code that must call back
// into a Manager from outside the component tree that owns it, such as a
// platform callback or a file watcher.
type Token uuid.UUID

// String returns the canonical UUID form of the token.
func (t Token) String() string { return uuid.UUID(t).String() }

// ParseToken parses a token previously produced by Token.String.
func ParseToken(s string) (Token, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrUnknownToken, err)
	}
	return Token(u), nil
}

// Bindings maps tokens to managers. Callbacks resolve their token on every
// invocation, so a manager that was unbound (torn down and replaced) is
// never reached through a stale pointer.
//
// Bindings is safe for concurrent use.
type Bindings struct {
	mu       sync.RWMutex
	managers map[Token]*Manager
}

// NewBindings creates an empty binding table.
func NewBindings() *Bindings {
	return &Bindings{managers: make(map[Token]*Manager)}
}

// Bind registers m and returns its token.
func (b *Bindings) Bind(m *Manager) Token {
	t := Token(uuid.New())
	b.mu.Lock()
	b.managers[t] = m
	b.mu.Unlock()
	return t
}

// Resolve returns the manager bound to t.
func (b *Bindings) Resolve(t Token) (*Manager, error) {
	b.mu.RLock()
	m, ok := b.managers[t]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, t)
	}
	return m, nil
}

// Unbind removes t. Unbinding an unknown token is a no-op.
func (b *Bindings) Unbind(t Token) {
	b.mu.Lock()
	delete(b.managers, t)
	b.mu.Unlock()
}

// Len returns the number of bound managers.
func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.managers)
}
