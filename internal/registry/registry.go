// Package registry resolves the RegisteredRequester predicate. The core
// only reads the predicate; roster CRUD belongs to whoever maintains the
// yaml file.
package registry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cipherscore/internal/model"
)

// Entry is one requester in the roster file.
type Entry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// Roster is the yaml shape of the requester roster.
type Roster struct {
	Requesters []Entry `yaml:"requesters"`
}

// Registry answers IsRegistered for requester identities. Safe for
// concurrent use; Replace swaps the roster atomically on hot reload.
type Registry struct {
	mu  sync.RWMutex
	ids map[model.Identity]bool
}

// New creates a Registry from a list of requester identities.
func New(ids ...model.Identity) *Registry {
	r := &Registry{ids: make(map[model.Identity]bool, len(ids))}
	for _, id := range ids {
		r.ids[id] = true
	}
	return r
}

// IsRegistered reports whether the identity exists in the roster.
func (r *Registry) IsRegistered(id model.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ids[id]
}

// Replace swaps the roster for a freshly loaded one.
func (r *Registry) Replace(roster Roster) {
	ids := make(map[model.Identity]bool, len(roster.Requesters))
	for _, e := range roster.Requesters {
		if e.ID != "" {
			ids[model.Identity(e.ID)] = true
		}
	}
	r.mu.Lock()
	r.ids = ids
	r.mu.Unlock()
}

// Len returns the number of registered requesters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Load reads a roster file into a Registry. A missing file yields an
// empty registry (nobody registered). Invalid yaml is an error.
func Load(path string) (*Registry, error) {
	r := New()
	roster, err := LoadRoster(path)
	if err != nil {
		return nil, err
	}
	r.Replace(roster)
	return r, nil
}

// LoadRoster reads and parses a roster file. Missing file → empty roster.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Roster{}, nil
		}
		return Roster{}, fmt.Errorf("registry: read roster: %w", err)
	}
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("registry: parse roster: %w", err)
	}
	return roster, nil
}

// Save writes a roster file.
func Save(path string, roster Roster) error {
	data, err := yaml.Marshal(roster)
	if err != nil {
		return fmt.Errorf("registry: marshal roster: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("registry: write roster: %w", err)
	}
	return nil
}
