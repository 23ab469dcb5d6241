package capability

import (
	"errors"
	"testing"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/store"
)

// fakeACL records MarkUsableBy calls without an engine.
type fakeACL struct {
	marks map[fhe.Handle]map[model.Identity]bool
}

func newFakeACL() *fakeACL {
	return &fakeACL{marks: make(map[fhe.Handle]map[model.Identity]bool)}
}

func (f *fakeACL) MarkUsableBySelf(h fhe.Handle) error {
	return f.MarkUsableBy(h, "core")
}

func (f *fakeACL) MarkUsableBy(h fhe.Handle, id model.Identity) error {
	if f.marks[h] == nil {
		f.marks[h] = make(map[model.Identity]bool)
	}
	f.marks[h][id] = true
	return nil
}

func (f *fakeACL) UsableBy(h fhe.Handle, id model.Identity) bool {
	return f.marks[h][id]
}

func computedRecord(s *store.Memory, subject, requester model.Identity) *store.EncryptedRecord {
	hs := make([]fhe.Handle, model.AttributeCount)
	for i := range hs {
		hs[i] = fhe.Handle("ct-attr")
	}
	attrs, _ := store.AttributesFromHandles(hs)
	rec := &store.EncryptedRecord{
		Key:       model.RecordKey{Subject: subject, Requester: requester},
		Attrs:     attrs,
		Score:     "ct-score",
		Submitted: true,
		Computed:  true,
	}
	if err := s.Create(rec); err != nil {
		panic(err)
	}
	return rec
}

func TestGrantRequiresComputedRecord(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())

	// no record at all
	if err := m.Grant("alice", "insurer-1"); !errors.Is(err, model.ErrScoreNotComputed) {
		t.Errorf("expected ErrScoreNotComputed, got %v", err)
	}

	// submitted but not computed
	rec := computedRecord(s, "bob", "insurer-1")
	rec.Computed = false
	if err := s.Update(rec); err != nil {
		t.Fatal(err)
	}
	if err := m.Grant("bob", "insurer-1"); !errors.Is(err, model.ErrScoreNotComputed) {
		t.Errorf("expected ErrScoreNotComputed, got %v", err)
	}
}

func TestGrantSyncsEngineACL(t *testing.T) {
	s := store.NewMemory()
	acl := newFakeACL()
	m := New(s, s, acl)
	rec := computedRecord(s, "alice", "insurer-1")

	if err := m.Grant("alice", "insurer-1"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	granted, _ := s.Capability(rec.Key)
	if !granted {
		t.Error("capability boolean not set")
	}
	if !acl.UsableBy(rec.Score, "insurer-1") {
		t.Error("score handle not marked usable by requester")
	}
}

func TestRevokeWithoutGrantIsNoOp(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())

	if err := m.Revoke("alice", "insurer-1"); err != nil {
		t.Errorf("revoke on nonexistent grant must be a no-op, got %v", err)
	}
}

func TestAccessBySubjectAlwaysSucceedsOnceComputed(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())
	rec := computedRecord(s, "alice", "insurer-1")

	// capability false: subject still reads
	h, err := m.Access("alice", "alice", "insurer-1")
	if err != nil {
		t.Fatalf("subject access: %v", err)
	}
	if h != rec.Score {
		t.Errorf("expected score handle %s, got %s", rec.Score, h)
	}
}

func TestAccessByRequesterRequiresCapability(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())
	rec := computedRecord(s, "alice", "insurer-1")

	if _, err := m.Access("insurer-1", "alice", "insurer-1"); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized before grant, got %v", err)
	}

	if err := m.Grant("alice", "insurer-1"); err != nil {
		t.Fatal(err)
	}
	h, err := m.Access("insurer-1", "alice", "insurer-1")
	if err != nil {
		t.Fatalf("requester access after grant: %v", err)
	}
	if h != rec.Score {
		t.Errorf("expected score handle %s, got %s", rec.Score, h)
	}
}

func TestGrantRevokeRoundTrip(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())
	computedRecord(s, "alice", "insurer-1")

	if err := m.Grant("alice", "insurer-1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Revoke("alice", "insurer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Access("insurer-1", "alice", "insurer-1"); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized after revoke, got %v", err)
	}
	// subject unaffected by revoke
	if _, err := m.Access("alice", "alice", "insurer-1"); err != nil {
		t.Errorf("subject access after revoke: %v", err)
	}
}

func TestAccessByStrangerFails(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())
	computedRecord(s, "alice", "insurer-1")

	if err := m.Grant("alice", "insurer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Access("mallory", "alice", "insurer-1"); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for stranger, got %v", err)
	}
}

func TestAccessBeforeComputeFails(t *testing.T) {
	s := store.NewMemory()
	m := New(s, s, newFakeACL())
	rec := computedRecord(s, "alice", "insurer-1")
	rec.Computed = false
	if err := s.Update(rec); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Access("alice", "alice", "insurer-1"); !errors.Is(err, model.ErrScoreNotComputed) {
		t.Errorf("expected ErrScoreNotComputed, got %v", err)
	}
}
