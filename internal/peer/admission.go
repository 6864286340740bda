package peer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdmissionPolicy gates handshake Type 1 records per source address before
// any cryptographic work is spent on them (SPEC_FULL.md §4.9): one
// `golang.org/x/time/rate` token bucket per address, created lazily and
// swept when idle.
type AdmissionPolicy struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	buckets  map[string]*bucket
	idleTime time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewAdmissionPolicy returns a policy allowing ratePerSecond handshake
// attempts per address, with the given burst, discarding buckets unseen
// for idleTime.
func NewAdmissionPolicy(ratePerSecond float64, burst int, idleTime time.Duration) *AdmissionPolicy {
	return &AdmissionPolicy{
		limit:    rate.Limit(ratePerSecond),
		burst:    burst,
		buckets:  make(map[string]*bucket),
		idleTime: idleTime,
	}
}

// Allow reports whether a handshake attempt from addr should proceed. It
// never blocks — an exhausted bucket simply returns false, so the single
// event-loop goroutine (spec.md §5) can't be stalled by a flood.
func (a *AdmissionPolicy) Allow(addr string, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[addr]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(a.limit, a.burst)}
		a.buckets[addr] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Sweep discards buckets that have not been touched in idleTime, bounding
// the admission policy's own memory use under a distributed source flood.
func (a *AdmissionPolicy) Sweep(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for addr, b := range a.buckets {
		if now.Sub(b.lastSeen) > a.idleTime {
			delete(a.buckets, addr)
		}
	}
}
