// Package session implements the record-layer common state spec.md §3/§4.2
// describes: nonce bookkeeping, the reorder window, and session validity —
// shared by every method implementation that embeds it.
package session

import "time"

// Common is the record-layer state embedded inside every method's session
// state (spec.md §4.2: "The record-layer common state (§3) is embedded
// inside each method's session state").
type Common struct {
	Initiator bool

	SendNonce    Nonce
	ReceiveNonce Nonce
	ReorderSeen  uint64 // bitmap of recently seen nonces below ReceiveNonce
	ReceiveLast  time.Time

	ValidTill    time.Time
	RefreshAfter time.Time

	exhausted bool // set once SendNonce would overflow the 48-bit space
}

// sendParity and receiveParity fix the low bit of send_nonce at session
// birth (spec.md §3): the initiator sends on the even counter and expects
// the responder's traffic on the odd one, or vice versa — what matters is
// that they never collide, not the specific starting values, which
// spec.md's prose and its own worked boundary example do not agree on
// digit-for-digit.
func sendParity(initiator bool) byte {
	if initiator {
		return 0
	}
	return 1
}

// NewCommon builds the record-layer state for a freshly established
// session. refreshIn is key_refresh minus the caller's rand(0,
// key_refresh_splay) draw (spec.md §3); it is ignored for responders,
// which never initiate a rekey.
func NewCommon(initiator bool, now time.Time, keyValid, refreshIn time.Duration) *Common {
	c := &Common{
		Initiator:    initiator,
		SendNonce:    NonceFromUint64(uint64(sendParity(initiator))),
		ReceiveNonce: NonceFromUint64(uint64(1 - sendParity(initiator))),
		ReceiveLast:  now,
		ValidTill:    now.Add(keyValid),
	}
	if initiator {
		c.RefreshAfter = now.Add(refreshIn)
	} else {
		// Only initiators drive rekeys (spec.md §4.2); give responders a
		// RefreshAfter far in the future so WantRefresh never fires.
		c.RefreshAfter = now.Add(keyValid)
	}
	return c
}

// IsValid reports whether the session is still usable for send/receive:
// not past expiry, and not exhausted by nonce-space overflow.
func (c *Common) IsValid(now time.Time) bool {
	return !c.exhausted && now.Before(c.ValidTill)
}

// WantRefresh reports whether the initiator should begin a rekey
// (spec.md §4.2: "returns true once now ≥ refresh_after and the local
// side is the initiator").
func (c *Common) WantRefresh(now time.Time) bool {
	return c.Initiator && !now.Before(c.RefreshAfter)
}

// NextSendNonce advances SendNonce by 2 (preserving parity) and returns
// the value to use for the packet about to be sent. If advancing would
// overflow the 48-bit nonce space the session is marked exhausted and the
// caller must not send; IsValid will report false from then on.
func (c *Common) NextSendNonce() (Nonce, bool) {
	cur := c.SendNonce.Uint64()
	next := cur + 2
	if next > MaxNonce {
		c.exhausted = true
		return Nonce{}, false
	}
	c.SendNonce = NonceFromUint64(next)
	return c.SendNonce, true
}

// AcceptNonce validates an inbound nonce against the reorder window and,
// if accepted, updates ReceiveNonce/ReorderSeen/ReceiveLast in place.
// Implements spec.md §4.2's is_nonce_valid + reorder_check as a single
// operation, since reorder_check is only ever invoked after
// is_nonce_valid accepts.
func (c *Common) AcceptNonce(candidate Nonce, now time.Time, reorderTime time.Duration, reorderCount int) bool {
	expectedParity := 1 - sendParity(c.Initiator)
	if candidate.Parity() != expectedParity {
		return false
	}

	recv := int64(c.ReceiveNonce.Uint64())
	cand := int64(candidate.Uint64())
	age := (recv - cand) / 2

	switch {
	case age < 0:
		if now.Sub(c.ReceiveLast) > reorderTime {
			return false
		}
		return c.acceptNewer(candidate, now, -age)
	case age == 0:
		return false // exact resend of the last accepted nonce
	default:
		if age > int64(reorderCount) {
			return false
		}
		return c.acceptReordered(uint64(age))
	}
}

// acceptNewer handles the "packet is newer than receive_nonce" branch.
// spec.md §4.2/§9 describes this as "shift the bitmap right by |age|, set
// bit 0 to mark the previous latest" and separately flags that wording as
// probably a typo for a left shift. Re-derived here from the invariant
// that every bit must keep referring to the same absolute nonce across the
// rebase: bit i means "receive_nonce - 2*(i+1) was seen". Rebasing
// receive_nonce forward by k = age steps moves every existing bit from
// position i to i+k, i.e. a LEFT shift by k, and the single nonce that
// just stopped being receive_nonce (the "previous latest") now sits at
// position k-1.
func (c *Common) acceptNewer(candidate Nonce, now time.Time, k int64) bool {
	if k < 64 {
		c.ReorderSeen <<= uint(k)
		c.ReorderSeen |= 1 << uint(k-1)
	} else {
		c.ReorderSeen = 0
	}
	c.ReceiveNonce = candidate
	c.ReceiveLast = now
	return true
}

// acceptReordered handles an older, in-window packet: duplicate if its
// bit is already set, otherwise mark it seen.
func (c *Common) acceptReordered(age uint64) bool {
	bit := uint64(1) << (age - 1)
	if c.ReorderSeen&bit != 0 {
		return false
	}
	c.ReorderSeen |= bit
	return true
}
