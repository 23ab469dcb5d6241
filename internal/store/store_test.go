package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
)

func testRecord(subject, requester model.Identity) *EncryptedRecord {
	hs := make([]fhe.Handle, model.AttributeCount)
	for i := range hs {
		hs[i] = fhe.Handle("ct-" + string(subject) + "-" + model.AttributeNames[i])
	}
	attrs, _ := AttributesFromHandles(hs)
	return &EncryptedRecord{
		Key:       model.RecordKey{Subject: subject, Requester: requester},
		Attrs:     attrs,
		Score:     "ct-zero",
		Submitted: true,
	}
}

// openStores returns one store of each implementation backed by fresh state.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	lvl, err := OpenLevel(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	t.Cleanup(func() { lvl.Close() })
	return map[string]Store{"memory": NewMemory(), "leveldb": lvl}
}

func TestCreateGetUpdate(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			rec := testRecord("alice", "insurer-1")
			if err := s.Create(rec); err != nil {
				t.Fatalf("create: %v", err)
			}

			got, ok, err := s.Get(rec.Key)
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if got.Attrs.Height != rec.Attrs.Height || got.Score != "ct-zero" {
				t.Errorf("record did not round trip: %+v", got)
			}
			if got.State() != model.StateSubmitted {
				t.Errorf("expected submitted state, got %s", got.State().Label())
			}

			got.Computed = true
			got.Score = "ct-final"
			if err := s.Update(got); err != nil {
				t.Fatalf("update: %v", err)
			}
			again, _, _ := s.Get(rec.Key)
			if !again.Computed || again.Score != "ct-final" {
				t.Errorf("update not persisted: %+v", again)
			}
		})
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			rec := testRecord("alice", "insurer-1")
			if err := s.Create(rec); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := s.Create(rec); !errors.Is(err, ErrExists) {
				t.Errorf("expected ErrExists, got %v", err)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(model.RecordKey{Subject: "nobody", Requester: "noone"})
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if ok {
				t.Error("missing record reported as present")
			}
		})
	}
}

func TestCapabilityDefaultsFalse(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			key := model.RecordKey{Subject: "alice", Requester: "insurer-1"}
			granted, err := s.Capability(key)
			if err != nil {
				t.Fatalf("capability: %v", err)
			}
			if granted {
				t.Error("absent capability must default to false")
			}

			if err := s.SetCapability(key, true); err != nil {
				t.Fatalf("set: %v", err)
			}
			if granted, _ = s.Capability(key); !granted {
				t.Error("capability not set")
			}
			if err := s.SetCapability(key, false); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if granted, _ = s.Capability(key); granted {
				t.Error("capability not cleared")
			}
		})
	}
}

func TestKeyIsolation(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ax := testRecord("a", "x")
			ay := testRecord("a", "y")
			bx := testRecord("b", "x")
			for _, rec := range []*EncryptedRecord{ax, ay, bx} {
				if err := s.Create(rec); err != nil {
					t.Fatalf("create %s: %v", rec.Key, err)
				}
			}

			got, _, _ := s.Get(ax.Key)
			got.Computed = true
			got.Score = "ct-mutated"
			if err := s.Update(got); err != nil {
				t.Fatal(err)
			}
			if err := s.SetCapability(ax.Key, true); err != nil {
				t.Fatal(err)
			}

			for _, other := range []*EncryptedRecord{ay, bx} {
				rec, _, _ := s.Get(other.Key)
				if rec.Computed || rec.Score != "ct-zero" {
					t.Errorf("operation on %s leaked into %s", ax.Key, other.Key)
				}
				if granted, _ := s.Capability(other.Key); granted {
					t.Errorf("capability on %s leaked into %s", ax.Key, other.Key)
				}
			}
		})
	}
}

func TestLevelReopenPreservesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	lvl, err := OpenLevel(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := testRecord("alice", "insurer-1")
	if err := lvl.Create(rec); err != nil {
		t.Fatal(err)
	}
	if err := lvl.SetCapability(rec.Key, true); err != nil {
		t.Fatal(err)
	}
	if err := lvl.Close(); err != nil {
		t.Fatal(err)
	}

	lvl, err = OpenLevel(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lvl.Close()

	got, ok, err := lvl.Get(rec.Key)
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if got.Attrs.Gender != rec.Attrs.Gender {
		t.Error("record lost across reopen")
	}
	if granted, _ := lvl.Capability(rec.Key); !granted {
		t.Error("capability lost across reopen")
	}
}

func TestAttributesFromHandlesWrongCount(t *testing.T) {
	if _, err := AttributesFromHandles(make([]fhe.Handle, 11)); err == nil {
		t.Error("expected error for 11 handles")
	}
}
