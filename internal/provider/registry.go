// Package provider exposes the vitest engine to the test host's provider registry.
package provider

import (
	"context"
	"sort"

	"github.com/AndreyAkinshin/vitestprovider/internal/testparser"
)

// Provider runs test files for one runtime and reports a normalized summary.
// RunTests never fails: every failure mode is reported inside the summary.
type Provider interface {
	RunTests(ctx context.Context, files []string) testparser.RunnerSummary
}

// Registry looks providers up by runtime identifier. Get returns nil when
// no provider serves the runtime.
type Registry interface {
	Get(runtimeID string) Provider
}

// MapRegistry is a Registry backed by a fixed map of runtime identifiers.
type MapRegistry struct {
	providers map[string]Provider
}

// NewMapRegistry creates an empty registry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{providers: make(map[string]Provider)}
}

// Register adds or replaces the provider for a runtime.
func (r *MapRegistry) Register(runtimeID string, p Provider) {
	r.providers[runtimeID] = p
}

// Get returns the provider registered for runtimeID, or nil.
func (r *MapRegistry) Get(runtimeID string) Provider {
	if r == nil {
		return nil
	}
	p, ok := r.providers[runtimeID]
	if !ok {
		return nil
	}
	return p
}

// Runtimes returns the registered runtime identifiers in sorted order.
func (r *MapRegistry) Runtimes() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
