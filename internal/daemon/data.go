package daemon

import (
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/peer"
	"github.com/fhmqvtun/fhmqvtund/internal/wire"
)

// handleDataPayload implements spec.md §4.7's receive(peer, ciphertext)
// at the daemon's dispatch boundary: match the sender to a configured
// peer by source address, then hand the ciphertext to its session pair.
// On success the plaintext is returned for delivery to the TUN device;
// any reply datagram (a direction-confirming keepalive, or none) is
// returned alongside it.
func (c *Context) handleDataPayload(now time.Time, sourceAddr string, payload []byte) ([]byte, *outbound) {
	p := c.peerByAddress(sourceAddr)
	if p == nil {
		c.Log.Debug("data packet from unrecognized address", "from", sourceAddr)
		return nil, nil
	}

	result, err := p.Receive(now, payload, c.handshakeRetryDelay())
	if err != nil {
		switch err {
		case peer.ErrNotEstablished:
			c.Log.Debug("data from unestablished peer, handshake scheduled", "peer", p.Name)
		case peer.ErrDecryptFailed:
			c.Metrics.DecryptFailures.Inc()
			if p.Established {
				c.Log.Debug("decrypt failed on all sessions", "peer", p.Name)
			}
		}
		return nil, nil
	}

	var reply *outbound
	if result.ConfirmDirection {
		confirm, cerr := p.Send(now, nil, c.KeepaliveInterval)
		if cerr == nil {
			reply = &outbound{to: p.Address, data: wire.Encode(wire.PacketData, [2]byte{}, confirm.Ciphertext)}
		}
	}
	return result.Plaintext, reply
}

// handleTunPayload implements the core's outbound half of spec.md §4.7:
// a plaintext frame read off the TUN device is encrypted and sent to
// every established peer. A point-to-point deployment has exactly one
// established peer; fan-out is harmless and keeps the daemon usable with
// more than one configured peer without a routing table, which spec.md
// does not define.
func (c *Context) handleTunPayload(now time.Time, plaintext []byte) []*outbound {
	var out []*outbound
	for _, p := range c.Peers.Peers() {
		if !p.Established {
			continue
		}
		result, err := p.Send(now, plaintext, c.KeepaliveInterval)
		if err != nil {
			c.Log.Debug("send failed", "peer", p.Name, "err", err)
			continue
		}
		out = append(out, &outbound{to: p.Address, data: wire.Encode(wire.PacketData, [2]byte{}, result.Ciphertext)})
		if result.WantsRefresh && p.NextHandshake.IsZero() {
			p.ScheduleHandshake(now, 0)
		}
	}
	return out
}

func (c *Context) peerByAddress(addr string) *peer.Peer {
	for _, p := range c.Peers.Peers() {
		if p.Address == addr {
			return p
		}
	}
	return nil
}

// handshakeRetryDelay is the delay schedule_handshake uses when a data
// packet arrives for a peer with no established session.
func (c *Context) handshakeRetryDelay() time.Duration {
	return time.Second
}
