package method

import (
	"fmt"
	"sync"
)

// variant pairs a concrete implementation with its optional availability
// probe (spec.md §4.3: "architecture-specific SIMD implementation followed
// by a portable fallback").
type variant struct {
	impl      Method
	available func() bool
}

// Registry binds configured method names to an ordered list of candidate
// implementations, picking the first whose probe passes.
type Registry struct {
	mu       sync.RWMutex
	variants map[string][]variant
	override map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{variants: make(map[string][]variant)}
}

// Register adds impl as a candidate for name, at the back of the
// preference order (earlier registrations are tried first). available may
// be nil, meaning the implementation is always usable.
func (r *Registry) Register(name string, impl Method, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[name] = append(r.variants[name], variant{impl: impl, available: available})
}

// Override forces name to resolve to the variant at the given index,
// bypassing availability probing — the configuration hook spec.md §4.3
// allows.
func (r *Registry) Override(name string, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.override == nil {
		r.override = make(map[string]int)
	}
	r.override[name] = index
}

// Lookup resolves name to its chosen implementation: the override index if
// one was set, otherwise the first variant whose probe returns true (or
// has no probe).
func (r *Registry) Lookup(name string) (Method, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs, ok := r.variants[name]
	if !ok || len(vs) == 0 {
		return nil, fmt.Errorf("method: unknown or unavailable method %q", name)
	}

	if idx, ok := r.override[name]; ok {
		if idx < 0 || idx >= len(vs) {
			return nil, fmt.Errorf("method: override index %d out of range for %q", idx, name)
		}
		return vs[idx].impl, nil
	}

	for _, v := range vs {
		if v.available == nil || v.available() {
			return v.impl, nil
		}
	}
	return nil, fmt.Errorf("method: unknown or unavailable method %q", name)
}

// Names returns every registered construction name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.variants))
	for name := range r.variants {
		out = append(out, name)
	}
	return out
}
