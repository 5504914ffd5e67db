// Package ring implements the provider ring of spec §4.6: an ordered
// set of available provider adapters with a rotating cursor. Grounded
// on the teacher's internal/infrastructure/llm/router.go failover shape
// (try in order, skip unavailable), simplified because §4.6 calls for no
// circuit-breaker reopening — ring membership is fixed at construction.
package ring

import (
	"github.com/alexwolson/ralph/internal/apperr"
	"github.com/alexwolson/ralph/internal/provider"
)

// Ring holds the providers known to be available on this system, in
// the order the candidates were given to New, plus a cursor into them.
type Ring struct {
	providers []provider.Adapter
	cursor    int
}

// New scans candidates and retains those whose Available() returns
// true, preserving their relative order. It returns a
// PROVIDER_AVAILABILITY apperr.AppError if no candidate is available.
func New(candidates []provider.Adapter) (*Ring, error) {
	var available []provider.Adapter
	for _, p := range candidates {
		if p.Available() {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return nil, apperr.New(apperr.CodeProviderAvailability, "no provider CLI found on PATH")
	}
	return &Ring{providers: available}, nil
}

// Current returns the provider at the cursor.
func (r *Ring) Current() provider.Adapter {
	return r.providers[r.cursor]
}

// Advance moves the cursor to the next provider, modulo the ring length,
// and returns the new current provider. With a single member the cursor
// does not move and the same provider is returned.
func (r *Ring) Advance() provider.Adapter {
	if len(r.providers) > 1 {
		r.cursor = (r.cursor + 1) % len(r.providers)
	}
	return r.Current()
}

// HasAlternates reports whether rotating would select a different provider.
func (r *Ring) HasAlternates() bool {
	return len(r.providers) > 1
}

// Len returns the number of available providers.
func (r *Ring) Len() int {
	return len(r.providers)
}

// Display returns the adapter's human-readable label.
func Display(p provider.Adapter) string {
	return p.DisplayName()
}
