package modules

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/osint-brain/backend/internal/investigation"
)

// Module is the evidence-module adapter contract. Implementations wrap
// external collaborators (username probes, breach indexes, DNS intel) and are
// treated as pluggable, independently failing units. Probe errors should be
// classified with investigation.Transientf / Permanentf so the orchestrator
// can apply its retry policy.
type Module interface {
	ID() string
	Capabilities() []investigation.Capability
	Probe(ctx context.Context, target investigation.Target) ([]investigation.Signal, error)
}

// Registry holds the registered modules, indexed by capability tag.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Module
	byCap map[investigation.Capability][]string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]Module),
		byCap: make(map[investigation.Capability][]string),
	}
}

func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID()]; exists {
		return fmt.Errorf("module %q already registered", m.ID())
	}

	r.byID[m.ID()] = m
	for _, c := range m.Capabilities() {
		r.byCap[c] = append(r.byCap[c], m.ID())
	}
	return nil
}

func (r *Registry) Get(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

// ByCapability returns the modules declaring any of the given capability
// tags, each at most once, in stable ID order.
func (r *Registry) ByCapability(caps []investigation.Capability) []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	var ids []string
	for _, c := range caps {
		for _, id := range r.byCap[c] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]Module, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
