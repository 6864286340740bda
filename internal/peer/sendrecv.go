package peer

import (
	"errors"
	"time"
)

// Errors returned by Send/Receive (spec.md §4.7, §7).
var (
	ErrNotEstablished = errors.New("peer: no established session")
	ErrNoValidSession = errors.New("peer: no session currently valid for send")
	ErrDecryptFailed  = errors.New("peer: decrypt failed on every candidate session")
)

// SendResult reports what Send decided, so the daemon can act on it
// (transmit the ciphertext, and separately trigger a rekey if asked).
type SendResult struct {
	Ciphertext   []byte
	WantsRefresh bool
}

// Send implements spec.md §4.7's send(peer, plaintext). It selects which
// session to encrypt on, encrypts, and re-arms the keepalive timer; it
// does not transmit — that is the transport layer's job.
func (p *Peer) Send(now time.Time, plaintext []byte, keepaliveInterval time.Duration) (*SendResult, error) {
	if !p.Established || p.current == nil {
		return nil, ErrNotEstablished
	}

	s := p.current
	// "Choose the previous session iff the local side is initiator of
	// current and !current.handshakes_cleaned" (spec.md §4.7): the
	// initiator keeps speaking on the old session until the responder
	// acknowledges the new one via a successful decrypt.
	if p.previous != nil && p.current.state.SessionIsInitiator() && !p.current.handshakesCleaned {
		s = p.previous
	}

	if !s.state.SessionIsValid(now) {
		return nil, ErrNoValidSession
	}

	ciphertext, err := s.state.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}

	p.RearmKeepalive(now, keepaliveInterval)
	return &SendResult{Ciphertext: ciphertext, WantsRefresh: p.current.state.SessionWantRefresh(now)}, nil
}

// ReceiveResult reports what Receive decided.
type ReceiveResult struct {
	// Plaintext is nil for a keepalive (zero-length decrypt) or when
	// nothing was delivered.
	Plaintext []byte
	// ConfirmDirection is set when this side is the initiator of the new
	// session and must send a zero-length packet to confirm it (spec.md
	// §4.7: "if local is initiator send a zero-length packet to confirm
	// the direction").
	ConfirmDirection bool
	WantsRefresh     bool
}

// Receive implements spec.md §4.7's receive(peer, ciphertext). When the
// peer is not yet established it schedules a handshake after
// scheduleHandshakeDelay and drops the packet, per spec.md's "schedule a
// handshake and drop".
func (p *Peer) Receive(now time.Time, ciphertext []byte, scheduleHandshakeDelay time.Duration) (*ReceiveResult, error) {
	if !p.Established || p.current == nil {
		p.ScheduleHandshake(now, scheduleHandshakeDelay)
		return nil, ErrNotEstablished
	}

	if p.previous != nil && p.previous.state.SessionIsValid(now) {
		if plaintext, err := p.previous.state.Decrypt(ciphertext); err == nil {
			p.LastSeen = now
			return deliverOrKeepalive(plaintext), nil
		}
	}

	plaintext, err := p.current.state.Decrypt(ciphertext)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	p.LastSeen = now

	result := deliverOrKeepalive(plaintext)
	if !p.current.handshakesCleaned {
		p.NextHandshake = time.Time{} // clear scheduled handshakes for this peer
		p.current.handshakesCleaned = true
		if p.current.state.SessionIsInitiator() {
			result.ConfirmDirection = true
		}
		freeSession(p.previous)
		p.previous = nil
	}
	result.WantsRefresh = p.current.state.SessionWantRefresh(now)
	return result, nil
}

func deliverOrKeepalive(plaintext []byte) *ReceiveResult {
	if len(plaintext) == 0 {
		return &ReceiveResult{Plaintext: nil}
	}
	return &ReceiveResult{Plaintext: plaintext}
}
