package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/cipherscore/internal/audit"
	"github.com/ppiankov/cipherscore/internal/core"
	"github.com/ppiankov/cipherscore/internal/fhe/lattice"
	"github.com/ppiankov/cipherscore/internal/registry"
	"github.com/ppiankov/cipherscore/internal/scoring"
	"github.com/ppiankov/cipherscore/internal/store"
)

// State directory layout.
func keysDir(state string) string     { return filepath.Join(state, "keys") }
func ctsDir(state string) string      { return filepath.Join(state, "cts") }
func dbDir(state string) string       { return filepath.Join(state, "db") }
func rosterPath(state string) string  { return filepath.Join(state, "registry.yaml") }
func scoringPath(state string) string { return filepath.Join(state, "scoring.yaml") }
func auditPath(state string) string   { return filepath.Join(state, "audit.log") }

// stack is everything a command needs, opened from the state directory.
type stack struct {
	core   *core.Core
	engine *lattice.Engine
	store  *store.Level
	log    *audit.Log
}

// openStack loads keys, roster, scoring config, record store, and audit
// log from the state directory. Every mutating command goes through the
// audited core returned here.
func openStack(state string) (*stack, error) {
	km, err := lattice.LoadKeys(keysDir(state))
	if err != nil {
		return nil, fmt.Errorf("load keys (run 'cipherscore init' first?): %w", err)
	}
	engine, err := lattice.NewPersistent(km, "core", ctsDir(state))
	if err != nil {
		return nil, err
	}

	reg, err := registry.Load(rosterPath(state))
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	cfg, cfgHash, err := scoring.LoadConfigWithHash(scoringPath(state))
	if err != nil {
		return nil, fmt.Errorf("load scoring config: %w", err)
	}

	st, err := store.OpenLevel(dbDir(state))
	if err != nil {
		return nil, err
	}
	log, err := audit.Open(auditPath(state))
	if err != nil {
		st.Close()
		return nil, err
	}

	return &stack{
		core:   core.New(engine, reg, st, cfg).WithAudit(log, cfgHash),
		engine: engine,
		store:  st,
		log:    log,
	}, nil
}

func (s *stack) close() {
	s.log.Close()
	s.store.Close()
}

// initialized reports whether the state directory holds key material.
func initialized(state string) bool {
	_, err := os.Stat(keysDir(state))
	return err == nil
}
