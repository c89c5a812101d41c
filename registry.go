package ruleengine

import (
	"fmt"
	"sort"
	"sync"
)

// ActionRegistry holds the set of registered ActionProviders and dispatches
// ActionDefinition.Type to the first provider (in descending-priority,
// registration-order-tie-broken order) whose Supports returns true.
//
// Registration is a build-time operation; dispatch is the hot path and
// must be safe to call concurrently once the build phase is over (§5).
// Sorting is lazy: Register only marks the order stale, and the next
// CreateAction call re-sorts before dispatching, mirroring the
// "sort at dispatch time, not on insertion" guidance for priority-ranked
// polymorphic dispatch.
type ActionRegistry struct {
	mu        sync.RWMutex
	providers []ActionProvider
	dirty     bool
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{}
}

// Register adds a provider. Safe to call only during the build phase,
// before any CreateAction call from a concurrent execution.
func (r *ActionRegistry) Register(p ActionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
	r.dirty = true
}

func (r *ActionRegistry) ensureSorted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return
	}
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority() > r.providers[j].Priority()
	})
	r.dirty = false
}

// CreateAction finds the first provider supporting def.Type and delegates
// instantiation to it. Returns an *ActionCreationError wrapping
// "unsupported action type" if no provider matches.
func (r *ActionRegistry) CreateAction(def ActionDefinition) (Action, error) {
	r.ensureSorted()

	r.mu.RLock()
	providers := make([]ActionProvider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	for _, p := range providers {
		if p.Supports(def.Type) {
			action, err := p.CreateAction(def)
			if err != nil {
				return nil, &ActionCreationError{ActionID: def.ActionID, Type: def.Type, Err: err}
			}
			return action, nil
		}
	}
	return nil, &ActionCreationError{
		ActionID: def.ActionID,
		Type:     def.Type,
		Err:      fmt.Errorf("no provider supports action type %q", def.Type),
	}
}

// Providers returns a snapshot of the registered providers in their
// current dispatch order (sorting, if stale, happens first).
func (r *ActionRegistry) Providers() []ActionProvider {
	r.ensureSorted()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ActionProvider, len(r.providers))
	copy(out, r.providers)
	return out
}
