// Package store persists encrypted records and capability grants, keyed
// by the (subject, requester) pair. Two implementations: an in-memory
// map for tests and scenario runs, and a goleveldb-backed store for the
// CLI state directory.
package store

import (
	"errors"

	"github.com/ppiankov/cipherscore/internal/model"
)

// ErrExists is returned by Create when a record already exists for the
// key. The core maps it to the lifecycle error taxonomy.
var ErrExists = errors.New("store: record already exists for key")

// RecordStore holds at most one EncryptedRecord per (subject, requester)
// pair.
type RecordStore interface {
	// Create writes a new record; fails with ErrExists if the key is taken.
	Create(rec *EncryptedRecord) error
	// Get returns the record for the key, and whether it exists.
	Get(key model.RecordKey) (*EncryptedRecord, bool, error)
	// Update overwrites an existing record.
	Update(rec *EncryptedRecord) error
}

// CapabilityStore holds the per-pair capability boolean, defaulting to
// false for absent keys.
type CapabilityStore interface {
	SetCapability(key model.RecordKey, granted bool) error
	Capability(key model.RecordKey) (bool, error)
}

// Store is the full persistence surface the core wires against.
type Store interface {
	RecordStore
	CapabilityStore
	Close() error
}
