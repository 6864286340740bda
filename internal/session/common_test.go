package session

import (
	"testing"
	"time"
)

func TestNewCommonParitySeparatesDirections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	initiatorSide := NewCommon(true, now, time.Minute, 40*time.Second)
	responderSide := NewCommon(false, now, time.Minute, 40*time.Second)

	if initiatorSide.SendNonce.Parity() == initiatorSide.ReceiveNonce.Parity() {
		t.Error("initiator's send/receive parity must differ")
	}
	// The initiator's send parity must equal the responder's receive
	// parity: they're two views of the same session's two directions.
	if initiatorSide.SendNonce.Parity() != responderSide.ReceiveNonce.Parity() {
		t.Error("initiator send parity and responder receive parity disagree")
	}
}

func TestWantRefreshOnlyForInitiator(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, 5*time.Second)
	if c.WantRefresh(now) {
		t.Error("WantRefresh true before refresh_after")
	}
	if !c.WantRefresh(now.Add(6 * time.Second)) {
		t.Error("WantRefresh false after refresh_after")
	}

	responder := NewCommon(false, now, time.Minute, 5*time.Second)
	if responder.WantRefresh(now.Add(time.Hour)) {
		t.Error("responder must never request a refresh")
	}
}

func TestNextSendNonceOverflowExhaustsSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, time.Minute)
	c.SendNonce = NonceFromUint64(MaxNonce - 3)

	if !c.IsValid(now) {
		t.Fatal("session should be valid before nonce overflow")
	}
	if _, ok := c.NextSendNonce(); !ok {
		t.Fatal("NextSendNonce should still succeed one step before the ceiling")
	}
	if _, ok := c.NextSendNonce(); ok {
		t.Fatal("NextSendNonce should fail once it would cross the 48-bit ceiling")
	}
	if c.IsValid(now) {
		t.Error("session must report invalid once nonce space is exhausted")
	}
}

func TestAcceptNonceRejectsWrongParity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, time.Minute)
	wrongParity := NonceFromUint64(c.ReceiveNonce.Uint64() + 1) // flips the low bit
	if c.AcceptNonce(wrongParity, now, time.Second, 64) {
		t.Error("AcceptNonce accepted a nonce with the wrong parity")
	}
}

func TestAcceptNonceDuplicateExactResend(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, time.Minute)
	c.ReceiveLast = now

	next := NonceFromUint64(c.ReceiveNonce.Uint64() + 2)
	if !c.AcceptNonce(next, now, time.Second, 64) {
		t.Fatal("first acceptance of a fresh, newer nonce should succeed")
	}
	if c.AcceptNonce(next, now, time.Second, 64) {
		t.Error("AcceptNonce accepted an exact resend of the last accepted nonce")
	}
}

func TestAcceptNonceReorderWindowBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, time.Minute)
	c.ReceiveLast = now

	// Establish receive_nonce high enough that reorderCount positions
	// below it stay non-negative.
	base := c.ReceiveNonce.Uint64() + 2*200
	if !c.AcceptNonce(NonceFromUint64(base), now, time.Second, 64) {
		t.Fatal("failed to establish baseline receive_nonce")
	}

	atLimit := NonceFromUint64(base - 2*64)
	if !c.AcceptNonce(atLimit, now, time.Second, 64) {
		t.Error("AcceptNonce rejected a packet exactly reorder_count positions back")
	}

	pastLimit := NonceFromUint64(base - 2*65)
	if c.AcceptNonce(pastLimit, now, time.Second, 64) {
		t.Error("AcceptNonce accepted a packet reorder_count+1 positions back")
	}
}

func TestAcceptNonceReorderedThenDuplicateRejected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, time.Minute)
	c.ReceiveLast = now

	base := c.ReceiveNonce.Uint64() + 2*20
	if !c.AcceptNonce(NonceFromUint64(base), now, time.Second, 64) {
		t.Fatal("failed to establish baseline")
	}

	reordered := NonceFromUint64(base - 2*5)
	if !c.AcceptNonce(reordered, now, time.Second, 64) {
		t.Fatal("in-window reordered packet should be accepted once")
	}
	if c.AcceptNonce(reordered, now, time.Second, 64) {
		t.Error("AcceptNonce accepted the same reordered nonce twice")
	}
}

func TestAcceptNonceNewerRejectedOutsideReorderTime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommon(true, now, time.Minute, time.Minute)
	c.ReceiveLast = now

	stale := now.Add(2 * time.Second)
	newer := NonceFromUint64(c.ReceiveNonce.Uint64() + 2)
	if c.AcceptNonce(newer, stale, time.Second, 64) {
		t.Error("AcceptNonce accepted a newer nonce after receive_last exceeded reorder_time")
	}
}
