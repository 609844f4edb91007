package usecases

import (
	"sync"
	"time"
)

// leaseRegistry grants per-store exclusive leases so two runs can never be
// open for the same store at once. A lease carries an owner and an expiry:
// if a holder dies without releasing, the lease becomes reclaimable once
// the expiry passes instead of wedging the store forever.
type leaseRegistry struct {
	mu     sync.Mutex
	leases map[string]lease
}

type lease struct {
	owner   string
	expires time.Time
}

func newLeaseRegistry() *leaseRegistry {
	return &leaseRegistry{leases: make(map[string]lease)}
}

func (r *leaseRegistry) acquire(key, owner string, ttl time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.leases[key]; ok && now.Before(current.expires) {
		return false
	}
	r.leases[key] = lease{owner: owner, expires: now.Add(ttl)}
	return true
}

// release frees the lease only if owner still holds it, so a crashed
// holder's expired lease reclaimed by someone else is never released from
// under the new holder.
func (r *leaseRegistry) release(key, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.leases[key]; ok && current.owner == owner {
		delete(r.leases, key)
	}
}
