// Package core ties registry, proof verification, the arithmetic engine,
// the stores, the scoring pipeline, and the capability manager into the
// five invocations: submit, compute, grant, revoke, access. Each
// invocation validates before any write; per-key mutexes serialize
// mutating invocations on the same (subject, requester) pair so the
// write-once invariants hold under a concurrent runtime.
package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/cipherscore/internal/audit"
	"github.com/ppiankov/cipherscore/internal/capability"
	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/registry"
	"github.com/ppiankov/cipherscore/internal/scoring"
	"github.com/ppiankov/cipherscore/internal/store"
)

// Core is the scoring control plane.
type Core struct {
	engine   fhe.Engine
	registry *registry.Registry
	store    store.Store
	pipeline *scoring.Pipeline
	caps     *capability.Manager

	log        *audit.Log
	configHash string

	mu    sync.Mutex
	locks map[model.RecordKey]*sync.Mutex
}

// New creates a Core. cfg nil means default scoring config.
func New(engine fhe.Engine, reg *registry.Registry, st store.Store, cfg *scoring.Config) *Core {
	return &Core{
		engine:   engine,
		registry: reg,
		store:    st,
		pipeline: scoring.New(engine, cfg),
		caps:     capability.New(st, st, engine),
		locks:    make(map[model.RecordKey]*sync.Mutex),
	}
}

// WithAudit attaches an audit log; configHash is recorded on compute
// events so a score can be tied to the factor table that produced it.
func (c *Core) WithAudit(log *audit.Log, configHash string) *Core {
	c.log = log
	c.configHash = configHash
	return c
}

// lockKey returns the mutex serializing mutations on one key.
func (c *Core) lockKey(key model.RecordKey) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// emit records one audit entry for an invocation outcome. A nil log is
// a no-op so tests and embedded use need no audit file.
func (c *Core) emit(event string, actor model.Identity, key model.RecordKey, err error) error {
	if c.log == nil {
		return nil
	}
	if err != nil {
		event = model.EventRejected
	}
	return c.log.Record(audit.Entry{
		Event:      event,
		Actor:      string(actor),
		Subject:    string(key.Subject),
		Requester:  string(key.Requester),
		Outcome:    model.ErrorCode(err),
		ConfigHash: c.configHash,
	})
}

// Submit accepts the twelve attribute ciphertexts and their proof for a
// fresh (subject, requester) pair. All twelve handles and an initial
// encrypted zero score are written atomically with the transition to
// Submitted.
func (c *Core) Submit(subject, requester model.Identity, raw [][]byte, proofBytes []byte) error {
	key := model.RecordKey{Subject: subject, Requester: requester}
	err := c.submit(key, raw, proofBytes)
	if aerr := c.emit(model.EventSubmitted, subject, key, err); aerr != nil {
		return aerr
	}
	return err
}

func (c *Core) submit(key model.RecordKey, raw [][]byte, proofBytes []byte) error {
	if !c.registry.IsRegistered(key.Requester) {
		return fmt.Errorf("core: submit %s: %w", key, model.ErrNotRegistered)
	}

	l := c.lockKey(key)
	l.Lock()
	defer l.Unlock()

	if _, exists, err := c.store.Get(key); err != nil {
		return fmt.Errorf("core: submit %s: %w", key, err)
	} else if exists {
		return fmt.Errorf("core: submit %s: %w", key, model.ErrAlreadySubmitted)
	}

	handles, err := c.engine.VerifyAndImport(raw, proofBytes)
	if err != nil {
		return fmt.Errorf("core: submit %s: %w", key, err)
	}
	attrs, err := store.AttributesFromHandles(handles)
	if err != nil {
		return fmt.Errorf("core: submit %s: %w", key, err)
	}
	zero, err := c.engine.EncryptScalar(0)
	if err != nil {
		return fmt.Errorf("core: submit %s: encrypt zero score: %w", key, err)
	}

	rec := &store.EncryptedRecord{
		Key:       key,
		Attrs:     attrs,
		Score:     zero,
		Submitted: true,
	}
	if err := c.store.Create(rec); err != nil {
		if errors.Is(err, store.ErrExists) {
			return fmt.Errorf("core: submit %s: %w", key, model.ErrAlreadySubmitted)
		}
		return fmt.Errorf("core: submit %s: %w", key, err)
	}
	return nil
}

// Compute derives the encrypted composite score for a submitted record.
// Permissionless by design: any caller may trigger computation for any
// existing submitted record — the authorization boundary lives entirely
// at read time.
func (c *Core) Compute(caller, subject, requester model.Identity) error {
	key := model.RecordKey{Subject: subject, Requester: requester}
	err := c.compute(key)
	if aerr := c.emit(model.EventComputed, caller, key, err); aerr != nil {
		return aerr
	}
	return err
}

func (c *Core) compute(key model.RecordKey) error {
	if !c.registry.IsRegistered(key.Requester) {
		return fmt.Errorf("core: compute %s: %w", key, model.ErrNotRegistered)
	}

	l := c.lockKey(key)
	l.Lock()
	defer l.Unlock()

	rec, ok, err := c.store.Get(key)
	if err != nil {
		return fmt.Errorf("core: compute %s: %w", key, err)
	}
	if !ok || !rec.Submitted {
		return fmt.Errorf("core: compute %s: %w", key, model.ErrNoDataSubmitted)
	}
	if rec.Computed {
		return fmt.Errorf("core: compute %s: %w", key, model.ErrAlreadyComputed)
	}

	score, err := c.pipeline.ComputeScore(rec.Attrs)
	if err != nil {
		return fmt.Errorf("core: compute %s: %w", key, err)
	}
	// The engine independently tracks who may act on a ciphertext; the
	// score must be usable by the core for later re-exposure and by the
	// subject for their own read path.
	if err := c.engine.MarkUsableBySelf(score); err != nil {
		return fmt.Errorf("core: compute %s: %w", key, err)
	}
	if err := c.engine.MarkUsableBy(score, key.Subject); err != nil {
		return fmt.Errorf("core: compute %s: %w", key, err)
	}

	rec.Score = score
	rec.Computed = true
	if err := c.store.Update(rec); err != nil {
		return fmt.Errorf("core: compute %s: %w", key, err)
	}
	return nil
}

// Grant authorizes the requester to read the subject's computed score.
func (c *Core) Grant(subject, requester model.Identity) error {
	key := model.RecordKey{Subject: subject, Requester: requester}

	l := c.lockKey(key)
	l.Lock()
	err := c.caps.Grant(subject, requester)
	l.Unlock()

	if aerr := c.emit(model.EventGranted, subject, key, err); aerr != nil {
		return aerr
	}
	return err
}

// Revoke withdraws a capability; a no-op when none was granted.
func (c *Core) Revoke(subject, requester model.Identity) error {
	key := model.RecordKey{Subject: subject, Requester: requester}

	l := c.lockKey(key)
	l.Lock()
	err := c.caps.Revoke(subject, requester)
	l.Unlock()

	if aerr := c.emit(model.EventRevoked, subject, key, err); aerr != nil {
		return aerr
	}
	return err
}

// Access returns the stored score handle for an authorized caller. Read
// only; no lock is taken and no state changes.
func (c *Core) Access(caller, subject, requester model.Identity) (fhe.Handle, error) {
	key := model.RecordKey{Subject: subject, Requester: requester}
	h, err := c.caps.Access(caller, subject, requester)
	if aerr := c.emit(model.EventAccessed, caller, key, err); aerr != nil {
		return fhe.Zero, aerr
	}
	return h, err
}

// State reports the lifecycle state for a key.
func (c *Core) State(subject, requester model.Identity) (model.State, error) {
	rec, ok, err := c.store.Get(model.RecordKey{Subject: subject, Requester: requester})
	if err != nil {
		return model.StateNotSubmitted, err
	}
	if !ok {
		return model.StateNotSubmitted, nil
	}
	return rec.State(), nil
}
