package store

import (
	"sync"

	"github.com/ppiankov/cipherscore/internal/model"
)

// Memory is the in-memory store. Records are copied on the way in and
// out so callers never alias stored state.
type Memory struct {
	mu   sync.RWMutex
	recs map[model.RecordKey]EncryptedRecord
	caps map[model.RecordKey]bool
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		recs: make(map[model.RecordKey]EncryptedRecord),
		caps: make(map[model.RecordKey]bool),
	}
}

// Create writes a new record; fails with ErrExists if the key is taken.
func (m *Memory) Create(rec *EncryptedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.Key]; ok {
		return ErrExists
	}
	m.recs[rec.Key] = *rec
	return nil
}

// Get returns a copy of the record for the key.
func (m *Memory) Get(key model.RecordKey) (*EncryptedRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, false, nil
	}
	out := rec
	return &out, true, nil
}

// Update overwrites an existing record.
func (m *Memory) Update(rec *EncryptedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Key] = *rec
	return nil
}

// SetCapability sets the capability boolean for the key.
func (m *Memory) SetCapability(key model.RecordKey, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caps[key] = granted
	return nil
}

// Capability returns the capability boolean, false for absent keys.
func (m *Memory) Capability(key model.RecordKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.caps[key], nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
