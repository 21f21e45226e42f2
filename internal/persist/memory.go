package persist

import (
	"sync"

	"github.com/dshills/slidevault/internal/engine/checkpoint"
)

// Memory is an in-process adapter.
type Memory struct {
	mu    sync.Mutex
	state *checkpoint.State
	saves int
}

// NewMemory creates an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns a copy of the last saved state, or nil.
func (m *Memory) Load() (*checkpoint.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	s := m.state.Clone()
	return &s, nil
}

// Save stores a copy of state.
func (m *Memory) Save(state checkpoint.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := state.Clone()
	m.state = &s
	m.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
