package llm

import (
	"context"
	"fmt"
)

// Router selects a Provider at request time. Current behavior is a
// pass-through to the configured default.
type Router struct {
	providers       map[string]Provider
	defaultProvider string
}

// NewRouter creates a Router with an initial set of providers and a default key.
func NewRouter(providers map[string]Provider, defaultProvider string) *Router {
	// copy so the caller cannot mutate the internal map.
	ps := make(map[string]Provider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, defaultProvider: defaultProvider}
}

// Register adds (or replaces) a provider under the given key.
func (r *Router) Register(key string, p Provider) {
	r.providers[key] = p
}

// Route returns the provider for the current request.
func (r *Router) Route(_ context.Context) (Provider, error) {
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", r.defaultProvider, r.keys())
	}
	return p, nil
}

func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	return out
}
