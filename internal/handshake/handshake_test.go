package handshake

import (
	"testing"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/identity"
)

func fixedRandom(seed byte) RandomSource {
	return func(n int, blocking bool) ([]byte, error) {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = seed + byte(i)
		}
		return buf, nil
	}
}

func TestCleanHandshakeEstablishesMatchingSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	initiator, err := identity.Generate()
	if err != nil {
		t.Fatalf("initiator identity: %v", err)
	}
	responder, err := identity.Generate()
	if err != nil {
		t.Fatalf("responder identity: %v", err)
	}

	initiatorPool := NewPool()
	if err := initiatorPool.Maintain(now, fixedRandom(0x01)); err != nil {
		t.Fatalf("initiator pool maintain: %v", err)
	}
	responderPool := NewPool()
	if err := responderPool.Maintain(now, fixedRandom(0x02)); err != nil {
		t.Fatalf("responder pool maintain: %v", err)
	}

	// Type 1: initiator -> responder.
	init := BuildInit(1, initiator.Public, initiatorPool.Current.Public, &responder.Public)
	parsedInit, err := ParseInit(init)
	if err != nil {
		t.Fatalf("ParseInit: %v", err)
	}

	// Type 2: responder computes and replies.
	respondMsg, _, err := Respond(1, parsedInit, responder.Secret, responder.Public, responderPool.Current)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	parsedRespond, err := ParseRespond(respondMsg)
	if err != nil {
		t.Fatalf("ParseRespond: %v", err)
	}

	// Type 3: initiator verifies, finishes, and establishes.
	ephemeralKey, ok := initiatorPool.Find(parsedRespond.RecipientHandshakeKey, now)
	if !ok {
		t.Fatalf("initiator could not find its own handshake key by echoed public value")
	}
	finishMsg, initEstablished, err := Finish(1, parsedRespond, initiator.Secret, initiator.Public, ephemeralKey)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if initEstablished == nil {
		t.Fatalf("Finish did not establish")
	}

	parsedFinish, err := ParseFinish(finishMsg)
	if err != nil {
		t.Fatalf("ParseFinish: %v", err)
	}

	// Responder handles Type 3 and establishes on its side.
	respEphemeralKey, ok := responderPool.Find(parsedFinish.RecipientHandshakeKey, now)
	if !ok {
		t.Fatalf("responder could not find its own handshake key by echoed public value")
	}
	respEstablished, err := HandleFinish(parsedFinish, responder.Secret, responder.Public, respEphemeralKey)
	if err != nil {
		t.Fatalf("HandleFinish: %v", err)
	}

	if initEstablished.SessionSecret != respEstablished.SessionSecret {
		t.Fatalf("session secrets disagree: initiator=%x responder=%x",
			initEstablished.SessionSecret, respEstablished.SessionSecret)
	}
	if !initEstablished.Initiator {
		t.Error("initiator's Established.Initiator should be true")
	}
	if respEstablished.Initiator {
		t.Error("responder's Established.Initiator should be false")
	}
}

func TestRespondRejectsDegenerateSigma(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	responder, err := identity.Generate()
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	pool := NewPool()
	if err := pool.Maintain(now, fixedRandom(0x03)); err != nil {
		t.Fatalf("pool maintain: %v", err)
	}

	// The encoding 0x01 00…00 is the identity point; with both A and X
	// set to it, d·A + X is the identity and so is sigma.
	badInit := &Init{SenderKey: [32]byte{1}, SenderHandshakeKey: [32]byte{1}}
	_, _, err = Respond(1, badInit, responder.Secret, responder.Public, pool.Current)
	if err != ErrDegenerate {
		t.Fatalf("Respond error = %v, want ErrDegenerate", err)
	}
}

func TestFinishRejectsTamperedTag(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	initiator, _ := identity.Generate()
	responder, _ := identity.Generate()

	initiatorPool := NewPool()
	_ = initiatorPool.Maintain(now, fixedRandom(0x04))
	responderPool := NewPool()
	_ = responderPool.Maintain(now, fixedRandom(0x05))

	init := BuildInit(1, initiator.Public, initiatorPool.Current.Public, &responder.Public)
	parsedInit, _ := ParseInit(init)

	respondMsg, _, err := Respond(1, parsedInit, responder.Secret, responder.Public, responderPool.Current)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	parsedRespond, _ := ParseRespond(respondMsg)
	parsedRespond.Tag[0] ^= 0xFF

	ephemeralKey, _ := initiatorPool.Find(parsedRespond.RecipientHandshakeKey, now)
	if _, _, err := Finish(1, parsedRespond, initiator.Secret, initiator.Public, ephemeralKey); err != ErrTagMismatch {
		t.Fatalf("Finish error = %v, want ErrTagMismatch", err)
	}
}

func TestPoolMaintainRotatesAfterPreferredWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pool := NewPool()
	if err := pool.Maintain(now, fixedRandom(0x10)); err != nil {
		t.Fatalf("maintain: %v", err)
	}
	first := pool.Current

	// Still within the 15s preferred window: no rotation.
	if err := pool.Maintain(now.Add(10*time.Second), fixedRandom(0x11)); err != nil {
		t.Fatalf("maintain: %v", err)
	}
	if pool.Current != first {
		t.Error("pool rotated before the preferred window elapsed")
	}

	// Past 15s: rotate. The old current becomes previous and stays valid
	// until 30s from its own creation.
	if err := pool.Maintain(now.Add(16*time.Second), fixedRandom(0x12)); err != nil {
		t.Fatalf("maintain: %v", err)
	}
	if pool.Current == first {
		t.Error("pool did not rotate after the preferred window elapsed")
	}
	if pool.Previous != first {
		t.Error("rotated-out key was not moved to Previous")
	}
	if _, ok := pool.Find(first.Public, now.Add(20*time.Second)); !ok {
		t.Error("previous key should still resolve within its 30s validity window")
	}
	if _, ok := pool.Find(first.Public, now.Add(31*time.Second)); ok {
		t.Error("previous key resolved past its 30s validity window")
	}
}
