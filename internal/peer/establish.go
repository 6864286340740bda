package peer

import (
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/handshake"
	"github.com/fhmqvtun/fhmqvtund/internal/method"
)

// Establish implements spec.md §4.5's establish() operation. sourceAddr is
// the address the handshake arrived from (already claimed by the caller
// via Manager.Claim); est carries the four public values and session
// secret computed by the handshake package; impl and opts select the
// AEAD construction. keepaliveInterval is SPEC_FULL.md §6's
// keepalive_interval option.
func (p *Peer) Establish(now time.Time, est *handshake.Established, impl method.Method, opts method.Options, keepaliveInterval time.Duration) {
	// Step 3: keep previous alive only if current is still valid and
	// previous is not already occupied by something still valid.
	if p.current != nil && p.current.state.SessionIsValid(now) && (p.previous == nil || !p.previous.state.SessionIsValid(now)) {
		freeSession(p.previous)
		p.previous = p.current
	} else {
		freeSession(p.current)
	}

	state := impl.SessionInit(est.SessionSecret, est.Initiator, now, opts)
	p.current = &session{state: state, handshakesCleaned: false, refreshing: false}

	p.Established = true
	p.LastSeen = now
	p.RearmKeepalive(now, keepaliveInterval)
}
