package peer

import (
	"time"
)

// Manager owns the configured peer set and the matching/claiming rules of
// spec.md §4.5/§4.6. It holds no network resources itself.
type Manager struct {
	LocalPublicKey [32]byte

	peers     []*Peer
	byAddress map[string]*Peer // fixed peers by configured address, floating/dynamic peers by claimed address
}

// NewManager returns a manager for the given local identity's public key.
func NewManager(localPublicKey [32]byte) *Manager {
	return &Manager{LocalPublicKey: localPublicKey, byAddress: make(map[string]*Peer)}
}

// Add registers a configured peer. Fixed peers (neither floating nor
// dynamic) are indexed by their configured address immediately.
func (m *Manager) Add(p *Peer) {
	m.peers = append(m.peers, p)
	if !p.Floating && !p.Dynamic && p.ConfiguredAddress != "" {
		p.Address = p.ConfiguredAddress
		m.byAddress[p.Address] = p
	}
}

// Peers returns every configured peer, for iteration by the daemon's
// timer sweep.
func (m *Manager) Peers() []*Peer { return m.peers }

// Match implements spec.md §4.6's sender-key matching for an inbound
// handshake record from sourceAddr carrying sender key senderKey.
func (m *Manager) Match(sourceAddr string, senderKey [32]byte) (*Peer, error) {
	if senderKey == m.LocalPublicKey {
		return nil, ErrSelfHandshake
	}

	if p, ok := m.byAddress[sourceAddr]; ok && p.PublicKey == senderKey {
		return p, nil
	}

	var dynamicPending *Peer
	for _, p := range m.peers {
		if p.PublicKey != senderKey {
			continue
		}
		if p.Floating {
			return p, nil
		}
		if p.Dynamic {
			if p.Address == sourceAddr {
				return p, nil
			}
			dynamicPending = p
		}
	}
	if dynamicPending != nil {
		return dynamicPending, ErrDynamicPending
	}
	return nil, ErrUnknownSender
}

// Claim binds sourceAddr to p (spec.md §4.5 step 1: "Bind the remote
// address to the peer"). A fixed peer whose configured address doesn't
// match sourceAddr, or any address already owned by a different fixed
// peer, fails the claim.
func (m *Manager) Claim(p *Peer, sourceAddr string) error {
	if !p.Floating && !p.Dynamic {
		if p.ConfiguredAddress != sourceAddr {
			return ErrAddressClaimed
		}
		return nil
	}
	if owner, ok := m.byAddress[sourceAddr]; ok && owner != p {
		if !owner.Floating && !owner.Dynamic {
			return ErrAddressClaimed
		}
		owner.Address = ""
	}
	if p.Address != "" && p.Address != sourceAddr {
		delete(m.byAddress, p.Address)
	}
	p.Address = sourceAddr
	m.byAddress[sourceAddr] = p
	return nil
}

// DueHandshakes returns every peer whose scheduled handshake deadline has
// passed, for the daemon's timer sweep to act on.
func (m *Manager) DueHandshakes(now time.Time) []*Peer {
	var due []*Peer
	for _, p := range m.peers {
		if !p.NextHandshake.IsZero() && !now.Before(p.NextHandshake) {
			due = append(due, p)
		}
	}
	return due
}

// DueKeepalives returns every established peer whose keepalive deadline
// has passed.
func (m *Manager) DueKeepalives(now time.Time) []*Peer {
	var due []*Peer
	for _, p := range m.peers {
		if p.Established && !p.NextKeepalive.IsZero() && !now.Before(p.NextKeepalive) {
			due = append(due, p)
		}
	}
	return due
}
