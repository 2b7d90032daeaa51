// Package store persists custom-translation overrides for translate.Service.
package store

import (
	"context"
	"sync"

	"github.com/tsxcorp/go-regform/pkg/translate"
)

// Memory keeps overrides in process memory.
type Memory struct {
	mu        sync.Mutex
	overrides translate.Overrides
	saves     int
}

// NewMemory returns a store seeded with a copy of initial.
func NewMemory(initial translate.Overrides) *Memory {
	if initial == nil {
		initial = translate.Overrides{}
	}
	return &Memory{overrides: initial.Clone()}
}

// Load implements translate.OverrideStore.
func (m *Memory) Load(ctx context.Context) (translate.Overrides, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overrides.Clone(), nil
}

// Save implements translate.OverrideStore.
func (m *Memory) Save(ctx context.Context, overrides translate.Overrides) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = overrides.Clone()
	m.saves++
	return nil
}

// Saves counts successful Save calls.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
