package routing

import (
	"errors"
	"strings"
	"sync"

	"github.com/angeloszaimis/tcplb/internal/backend"
)

// ErrNoBackends is returned when the round-robin pool has no healthy member
// and no path route matched the request path.
var ErrNoBackends = errors.New("no healthy backends available")

// Router maps a request path to exactly one backend address. Path routes are
// checked first and win unconditionally; everything else is served by a
// round-robin rotation over the healthy, non-path-routed targets.
type Router struct {
	backends []backend.Backend
	routes   []backend.PathRoute
	excluded []bool // by backend ID: address is claimed by a path route
	registry *backend.Registry

	mutex  sync.Mutex
	cursor uint64
}

// NewRouter builds a router over the configured backends and path routes.
// A backend whose address appears in any path route is removed from the
// round-robin pool for the process lifetime, even while healthy.
func NewRouter(backends []backend.Backend, routes []backend.PathRoute, registry *backend.Registry) *Router {
	excluded := make([]bool, len(backends))
	for i, b := range backends {
		for _, route := range routes {
			if route.Address == b.Address {
				excluded[i] = true
				break
			}
		}
	}

	return &Router{
		backends: backends,
		routes:   routes,
		excluded: excluded,
		registry: registry,
	}
}

// Route returns the address to forward a connection with the given request
// path. Path routes match on literal prefix, first match wins, and are not
// health-filtered: a pinned prefix goes to its pinned address even when that
// address is down. Otherwise the healthy pool is consulted; ErrNoBackends is
// returned when it is empty.
func (r *Router) Route(path string) (string, error) {
	for _, route := range r.routes {
		if strings.HasPrefix(path, route.PathPrefix) {
			return route.Address, nil
		}
	}

	// The snapshot read, candidate build, and cursor increment happen under
	// one lock so two concurrent selections never interleave on the same
	// (set, index) pair. No I/O happens in this section.
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snapshot := r.registry.Snapshot()
	candidates := r.candidates(snapshot)
	if len(candidates) == 0 {
		return "", ErrNoBackends
	}

	id := candidates[r.cursor%uint64(len(candidates))]
	r.cursor++

	return r.backends[id].Address, nil
}

// candidates returns the IDs eligible for round-robin selection, preserving
// configuration order: healthy per the snapshot and not path-routed.
func (r *Router) candidates(snapshot []bool) []int {
	ids := make([]int, 0, len(r.backends))
	for _, b := range r.backends {
		if b.ID < len(snapshot) && snapshot[b.ID] && !r.excluded[b.ID] {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
