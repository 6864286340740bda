package daemon

import (
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/framing"
	"github.com/fhmqvtun/fhmqvtund/internal/handshake"
	"github.com/fhmqvtun/fhmqvtund/internal/peer"
	"github.com/fhmqvtun/fhmqvtund/internal/wire"
)

// outbound is one datagram the event loop must send, queued by a handler
// instead of written to the socket directly, so the core stays free of
// network types (spec.md §9's "core never touches a socket").
type outbound struct {
	to   string
	data []byte
}

// initiateHandshake builds and queues a Type 1 message for p (spec.md
// §4.4, initiator side). The local side's current handshake key is used
// as the ephemeral X.
func (c *Context) initiateHandshake(now time.Time) func(p *peer.Peer) *outbound {
	return func(p *peer.Peer) *outbound {
		if p.Address == "" {
			return nil
		}
		if err := c.Pool.Maintain(now, c.rng()); err != nil {
			c.Log.Warn("handshake key maintenance failed", "err", err)
			return nil
		}
		var recipient *[32]byte
		if p.PublicKey != ([32]byte{}) {
			k := p.PublicKey
			recipient = &k
		}
		reqID := c.nextRequestID()
		msg := handshake.BuildInit(reqID, c.Identity.Public, c.Pool.Current.Public, recipient)
		c.Metrics.HandshakesAttempted.Inc()
		return &outbound{to: p.Address, data: wire.Encode(wire.PacketHandshake, [2]byte{}, msg.Encode())}
	}
}

// handleHandshakePayload dispatches an inbound handshake TLV message
// (spec.md §4.4). sourceAddr is the UDP source address the datagram
// arrived from.
func (c *Context) handleHandshakePayload(now time.Time, sourceAddr string, payload []byte) *outbound {
	msg, err := framing.Decode(payload)
	if err != nil {
		c.Log.Debug("malformed handshake message", "from", sourceAddr, "err", err)
		return nil
	}
	typ, err := handshake.ParseType(msg)
	if err != nil {
		c.Log.Debug("malformed handshake message", "from", sourceAddr, "err", err)
		return nil
	}

	switch typ {
	case handshake.TypeInit:
		return c.handleInit(now, sourceAddr, msg)
	case handshake.TypeRespond:
		return c.handleRespond(now, sourceAddr, msg)
	case handshake.TypeFinish:
		return c.handleFinish(now, sourceAddr, msg)
	default:
		return nil
	}
}

func (c *Context) handleInit(now time.Time, sourceAddr string, msg *framing.Message) *outbound {
	in, err := handshake.ParseInit(msg)
	if err != nil {
		c.Log.Debug("malformed Type 1", "from", sourceAddr, "err", err)
		return nil
	}
	if in.RecipientKey != nil && *in.RecipientKey != c.Identity.Public {
		c.Log.Debug("Type 1 addressed to a different recipient", "from", sourceAddr)
		return nil
	}

	p, err := c.Peers.Match(sourceAddr, in.SenderKey)
	if err != nil {
		c.logMatchFailure(err, sourceAddr)
		return nil
	}
	if err := c.Peers.Claim(p, sourceAddr); err != nil {
		c.Log.Warn("address claim conflict", "peer", p.Name, "from", sourceAddr, "err", err)
		p.Reset()
		return nil
	}

	if err := c.Pool.Maintain(now, c.rng()); err != nil {
		c.Log.Warn("handshake key maintenance failed", "err", err)
		return nil
	}

	reply, _, err := handshake.Respond(in.RequestID, in, c.Identity.Secret, c.Identity.Public, c.Pool.Current)
	if err != nil {
		c.handshakeFailure(err)
		return nil
	}
	return &outbound{to: sourceAddr, data: wire.Encode(wire.PacketHandshake, [2]byte{}, reply.Encode())}
}

func (c *Context) handleRespond(now time.Time, sourceAddr string, msg *framing.Message) *outbound {
	in, err := handshake.ParseRespond(msg)
	if err != nil {
		c.Log.Debug("malformed Type 2", "from", sourceAddr, "err", err)
		return nil
	}
	if in.RecipientKey != c.Identity.Public {
		c.Log.Debug("Type 2 addressed to a different recipient", "from", sourceAddr)
		return nil
	}

	p, err := c.Peers.Match(sourceAddr, in.SenderKey)
	if err != nil {
		c.logMatchFailure(err, sourceAddr)
		return nil
	}
	ephemeralKey, ok := c.Pool.Find(in.RecipientHandshakeKey, now)
	if !ok {
		c.handshakeFailure(handshake.ErrNoHandshakeKey)
		return nil
	}
	if err := c.Peers.Claim(p, sourceAddr); err != nil {
		c.Log.Warn("address claim conflict", "peer", p.Name, "from", sourceAddr, "err", err)
		p.Reset()
		return nil
	}

	reply, established, err := handshake.Finish(in.RequestID, in, c.Identity.Secret, c.Identity.Public, ephemeralKey)
	if err != nil {
		c.handshakeFailure(err)
		return nil
	}

	impl, err := c.Registry.Lookup(c.MethodName)
	if err != nil {
		c.Log.Error("method lookup failed", "method", c.MethodName, "err", err)
		return nil
	}
	wasEstablished := p.Established
	p.Establish(now, established, impl, c.methodOptions(), c.KeepaliveInterval)
	c.Metrics.HandshakesSucceeded.Inc()
	if wasEstablished {
		c.Metrics.SessionsRekeyed.Inc()
	} else {
		c.Metrics.SessionsEstablished.Inc()
		c.Metrics.PeersEstablished.Inc()
	}

	return &outbound{to: sourceAddr, data: wire.Encode(wire.PacketHandshake, [2]byte{}, reply.Encode())}
}

func (c *Context) handleFinish(now time.Time, sourceAddr string, msg *framing.Message) *outbound {
	in, err := handshake.ParseFinish(msg)
	if err != nil {
		c.Log.Debug("malformed Type 3", "from", sourceAddr, "err", err)
		return nil
	}
	if in.RecipientKey != c.Identity.Public {
		c.Log.Debug("Type 3 addressed to a different recipient", "from", sourceAddr)
		return nil
	}

	p, err := c.Peers.Match(sourceAddr, in.SenderKey)
	if err != nil {
		c.logMatchFailure(err, sourceAddr)
		return nil
	}
	ephemeralKey, ok := c.Pool.Find(in.RecipientHandshakeKey, now)
	if !ok {
		c.handshakeFailure(handshake.ErrNoHandshakeKey)
		return nil
	}
	if err := c.Peers.Claim(p, sourceAddr); err != nil {
		c.Log.Warn("address claim conflict", "peer", p.Name, "from", sourceAddr, "err", err)
		p.Reset()
		return nil
	}

	established, err := handshake.HandleFinish(in, c.Identity.Secret, c.Identity.Public, ephemeralKey)
	if err != nil {
		c.handshakeFailure(err)
		return nil
	}

	impl, err := c.Registry.Lookup(c.MethodName)
	if err != nil {
		c.Log.Error("method lookup failed", "method", c.MethodName, "err", err)
		return nil
	}
	wasEstablished := p.Established
	p.Establish(now, established, impl, c.methodOptions(), c.KeepaliveInterval)
	c.Metrics.HandshakesSucceeded.Inc()
	if wasEstablished {
		c.Metrics.SessionsRekeyed.Inc()
	} else {
		c.Metrics.SessionsEstablished.Inc()
		c.Metrics.PeersEstablished.Inc()
	}

	// No handshake reply; the responder proves liveness with a zero-length
	// data packet on the new session (spec.md §4.5 step 6).
	keepalive, err := p.Send(now, nil, c.KeepaliveInterval)
	if err != nil {
		return nil
	}
	return &outbound{to: sourceAddr, data: wire.Encode(wire.PacketData, [2]byte{}, keepalive.Ciphertext)}
}

func (c *Context) logMatchFailure(err error, sourceAddr string) {
	c.Log.Debug("sender-key match failed", "from", sourceAddr, "err", err)
}

// handshakeFailure logs and records a failed handshake step. Disposition
// follows spec.md §7 exactly: a degenerate sigma is a silent drop, an HMAC
// mismatch is warn-level, everything else debug-level.
func (c *Context) handshakeFailure(err error) {
	reason := "other"
	switch err {
	case handshake.ErrDegenerate:
		reason = "degenerate_sigma"
	case handshake.ErrTagMismatch:
		reason = "tag_mismatch"
		c.Log.Warn("handshake HMAC verification failed", "err", err)
	case handshake.ErrNoHandshakeKey:
		reason = "no_handshake_key"
		c.Log.Debug("handshake failed", "err", err)
	default:
		c.Log.Debug("handshake failed", "err", err)
	}
	c.Metrics.RecordHandshakeFailure(reason)
}
