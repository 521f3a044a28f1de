package provider

import "fmt"

// Registry maps provider names to adapters. It is populated once at startup
// and only read afterwards, so it carries no lock.
type Registry struct {
	byName  map[string]CliProvider
	primary string
	order   []string
}

// NewRegistry returns an empty registry whose Default prefers primary.
func NewRegistry(primary string) *Registry {
	if primary == "" {
		primary = ProviderClaude
	}
	return &Registry{byName: make(map[string]CliProvider), primary: primary}
}

// Register adds p. Registering a name twice keeps the first adapter and
// returns false.
func (r *Registry) Register(p CliProvider) bool {
	name := p.Descriptor().Name
	if _, ok := r.byName[name]; ok {
		return false
	}
	r.byName[name] = p
	r.order = append(r.order, name)
	return true
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (CliProvider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// List returns every adapter in registration order.
func (r *Registry) List() []CliProvider {
	out := make([]CliProvider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// ListAvailable returns the adapters whose binary currently resolves.
func (r *Registry) ListAvailable() []CliProvider {
	var out []CliProvider
	for _, p := range r.List() {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// Default returns the primary adapter if registered, otherwise the first
// one registered. It returns nil for an empty registry.
func (r *Registry) Default() CliProvider {
	if p, ok := r.byName[r.primary]; ok {
		return p
	}
	if len(r.order) == 0 {
		return nil
	}
	return r.byName[r.order[0]]
}

// Resolve returns the named adapter, or Default when name is empty.
func (r *Registry) Resolve(name string) (CliProvider, error) {
	if name == "" {
		if p := r.Default(); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("%w: no providers registered", ErrUnknownProvider)
	}
	return r.Get(name)
}
