// Package capability mediates every read of an encrypted score. The
// authorization boundary of the whole system lives here, at read time;
// computation is deliberately permissionless.
package capability

import (
	"fmt"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/store"
)

// Manager tracks which requester may obtain a usable handle to which
// subject's score, keeping the capability boolean and the engine's
// per-ciphertext access list in sync.
type Manager struct {
	records store.RecordStore
	caps    store.CapabilityStore
	acl     fhe.AccessList
}

// New creates a Manager over the given stores and engine access list.
func New(records store.RecordStore, caps store.CapabilityStore, acl fhe.AccessList) *Manager {
	return &Manager{records: records, caps: caps, acl: acl}
}

// Grant authorizes the requester to read the subject's score. Requires a
// computed record: a grant is meaningful only once a score exists. The
// engine access list is updated in the same invocation — the boolean
// alone would leave the handle functionally inert for the requester.
func (m *Manager) Grant(subject, requester model.Identity) error {
	key := model.RecordKey{Subject: subject, Requester: requester}
	rec, ok, err := m.records.Get(key)
	if err != nil {
		return fmt.Errorf("capability: grant %s: %w", key, err)
	}
	if !ok || !rec.Computed {
		return fmt.Errorf("capability: grant %s: %w", key, model.ErrScoreNotComputed)
	}
	if err := m.caps.SetCapability(key, true); err != nil {
		return fmt.Errorf("capability: grant %s: %w", key, err)
	}
	if err := m.acl.MarkUsableBy(rec.Score, requester); err != nil {
		return fmt.Errorf("capability: grant %s: mark usable: %w", key, err)
	}
	return nil
}

// Revoke unconditionally clears the capability boolean. Revoking a grant
// that was never made is a defined no-op, not an error — the asymmetry
// with Grant is intentional. The engine-side mark is not withdrawn; the
// read path consults the boolean first, so a revoked requester is turned
// away before the handle is ever resolved.
func (m *Manager) Revoke(subject, requester model.Identity) error {
	key := model.RecordKey{Subject: subject, Requester: requester}
	if err := m.caps.SetCapability(key, false); err != nil {
		return fmt.Errorf("capability: revoke %s: %w", key, err)
	}
	return nil
}

// Access returns the stored score handle if the caller is the subject, or
// the requester holding a live capability. Read-only: no state mutation,
// no new capability.
func (m *Manager) Access(caller, subject, requester model.Identity) (fhe.Handle, error) {
	key := model.RecordKey{Subject: subject, Requester: requester}
	rec, ok, err := m.records.Get(key)
	if err != nil {
		return fhe.Zero, fmt.Errorf("capability: access %s: %w", key, err)
	}
	if !ok || !rec.Computed {
		return fhe.Zero, fmt.Errorf("capability: access %s: %w", key, model.ErrScoreNotComputed)
	}

	if caller == subject {
		return rec.Score, nil
	}
	if caller == requester {
		granted, err := m.caps.Capability(key)
		if err != nil {
			return fhe.Zero, fmt.Errorf("capability: access %s: %w", key, err)
		}
		if granted {
			return rec.Score, nil
		}
	}
	return fhe.Zero, fmt.Errorf("capability: access %s by %s: %w", key, caller, model.ErrNotAuthorized)
}
