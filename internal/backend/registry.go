package backend

import "sync"

// Registry holds one boolean health judgment per configured backend, indexed
// by Backend.ID. It is the only mutable state shared between the health
// monitor and the routing engine; all access goes through the mutex and no
// method performs I/O while holding it.
type Registry struct {
	mutex   sync.RWMutex
	healthy []bool
}

// NewRegistry creates a registry for size backends, all marked healthy.
// Starting optimistic means traffic flows before the first probe tick
// completes instead of deadlocking an empty pool at startup.
func NewRegistry(size int) *Registry {
	healthy := make([]bool, size)
	for i := range healthy {
		healthy[i] = true
	}
	return &Registry{healthy: healthy}
}

// Size returns the number of tracked backends. The shape never changes.
func (r *Registry) Size() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.healthy)
}

// IsHealthy reports the most recently committed judgment for one backend.
func (r *Registry) IsHealthy(id int) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if id < 0 || id >= len(r.healthy) {
		return false
	}
	return r.healthy[id]
}

// Set updates a single backend's status and reports whether it changed.
func (r *Registry) Set(id int, healthy bool) (changed bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if id < 0 || id >= len(r.healthy) || r.healthy[id] == healthy {
		return false
	}

	r.healthy[id] = healthy
	return true
}

// Commit replaces the whole health map in one critical section so a reader
// never observes a probe tick partially applied. It returns the IDs whose
// status flipped, in ID order. A statuses slice of the wrong length is
// ignored; the registry's shape is fixed at construction.
func (r *Registry) Commit(statuses []bool) (changed []int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(statuses) != len(r.healthy) {
		return nil
	}

	for id, healthy := range statuses {
		if r.healthy[id] != healthy {
			changed = append(changed, id)
		}
		r.healthy[id] = healthy
	}

	return changed
}

// Snapshot returns a copy of the health map taken under the lock. Routing
// decisions consume a snapshot so a single selection sees one consistent
// instant, at most one probe interval stale.
func (r *Registry) Snapshot() []bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot := make([]bool, len(r.healthy))
	copy(snapshot, r.healthy)
	return snapshot
}

// HealthyCount returns how many backends are currently marked healthy.
func (r *Registry) HealthyCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	count := 0
	for _, h := range r.healthy {
		if h {
			count++
		}
	}
	return count
}
