// Package peer implements spec.md §4.5–§4.7: address claiming and
// establish(), sender-key matching, and the send/receive path, plus
// SPEC_FULL.md §4.9's admission policy. It is the glue layer between the
// wire (internal/framing, internal/handshake) and the record layer
// (internal/method, internal/session) — the only package that knows both
// exist.
package peer

import (
	"errors"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/method"
)

// Errors returned by sender-key matching (spec.md §4.6) and address
// claiming (spec.md §4.5 step 1).
var (
	ErrSelfHandshake  = errors.New("peer: sender key equals local identity")
	ErrUnknownSender  = errors.New("peer: sender key matches no configured peer")
	ErrDynamicPending = errors.New("peer: sender matched a dynamic peer pending resolution")
	ErrAddressClaimed = errors.New("peer: address already claimed by a different fixed peer")
)

// session is one live cryptographic session (spec.md §3: "Session").
// handshakesCleaned/refreshing are deliberately unexported fields
// accessed only within this package — no external caller should poke at
// session internals directly, mirroring the teacher's internal-state
// pattern in internal/vl1/peer.go.
type session struct {
	state             method.State
	handshakesCleaned bool
	refreshing        bool
}

func freeSession(s *session) {
	if s == nil {
		return
	}
	s.state.Free()
}

// Peer is one configured or dynamically-matched remote endpoint.
type Peer struct {
	Name      string
	PublicKey [32]byte

	// Floating peers match a handshake sender key from any source
	// address. Dynamic peers match only once Address has been resolved
	// (spec.md §4.6).
	Floating bool
	Dynamic  bool

	// ConfiguredAddress is the unresolved address string for fixed and
	// dynamic peers; empty for floating peers with no expected address.
	ConfiguredAddress string

	// Address is the currently claimed/resolved remote address, as a
	// string in "host:port" form (the daemon resolves via
	// net.ResolveUDPAddr; this package stays net-agnostic so it can be
	// tested without a socket).
	Address string

	Established   bool
	LastSeen      time.Time
	NextHandshake time.Time // zero means none scheduled
	NextKeepalive time.Time

	current  *session
	previous *session
}

// Reset clears established state and scheduled timers (spec.md §5: "On
// peer reset, all scheduled per-peer timers are dropped"). Floating and
// dynamic peers also forget their claimed address, since it was only ever
// a claim, not configuration.
func (p *Peer) Reset() {
	freeSession(p.current)
	freeSession(p.previous)
	p.current = nil
	p.previous = nil
	p.Established = false
	p.NextHandshake = time.Time{}
	p.NextKeepalive = time.Time{}
	if p.Floating || p.Dynamic {
		p.Address = ""
	}
}

// ScheduleHandshake coalesces with any already-pending handshake for this
// peer (spec.md §5: "a new schedule_handshake(peer, delay) coalesces with
// any pending one") by only moving the deadline earlier.
func (p *Peer) ScheduleHandshake(now time.Time, delay time.Duration) {
	at := now.Add(delay)
	if p.NextHandshake.IsZero() || at.Before(p.NextHandshake) {
		p.NextHandshake = at
	}
}

// RearmKeepalive reschedules the next keepalive relative to now (spec.md
// §5: "always rescheduled relative to the most recent successful send or
// establishment").
func (p *Peer) RearmKeepalive(now time.Time, interval time.Duration) {
	p.NextKeepalive = now.Add(interval)
}
