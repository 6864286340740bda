// Package handshake implements the EC25519-FHMQVC three-message state
// machine of spec.md §4.4: the handshake-key pool, the responder's and
// initiator's FHMQV agreement computations, and TLV message
// construction/parsing. It is deliberately peer-agnostic — it knows
// nothing about peer matching, address claiming, or session storage
// (spec.md §4.5/§4.6); callers supply the local identity and any matched
// peer's long-term public key and get back a discriminated result.
package handshake

import (
	"errors"

	"github.com/fhmqvtun/fhmqvtund/internal/framing"
	"github.com/fhmqvtun/fhmqvtund/internal/primitive"
)

// ErrDegenerate is returned when the computed σ is the group identity —
// spec.md §4.4's small-subgroup/degenerate guard. Per spec.md §7 this is
// always a silent drop, never a reply.
var ErrDegenerate = errors.New("handshake: degenerate curve point")

// ErrTagMismatch is returned when a received HMAC tag fails verification.
var ErrTagMismatch = errors.New("handshake: tag verification failed")

// ErrNoHandshakeKey is returned when a recipient-handshake-key reference
// cannot be matched to a valid pool entry.
var ErrNoHandshakeKey = errors.New("handshake: no matching valid handshake key")

// Established carries everything establish() (spec.md §4.5) needs once a
// handshake completes, in the canonical initiator-X-first order.
type Established struct {
	X, Y, A, B    [32]byte
	SessionSecret [32]byte
	Initiator     bool
}

// Both the responder's T (Type 2) and the initiator's reciprocal T'
// (Type 3) are HMAC-SHA256_K(A || Y) — spec.md §9's resolved open
// question notes Type 3 does not transmit a tag distinct from Type 2's,
// so both sides recompute and verify the very same formula rather than
// the asymmetric B||X pairing spec.md §4.4's prose literally shows at the
// two verify steps, which does not agree with either side's own stated
// tag-construction formula and is treated here as a textual slip
// superseded by that design note. See DESIGN.md.

// Respond handles a parsed Type 1 message from the responder's side. The
// caller has already matched in.SenderKey to a configured peer.
// localSecretA is the local (responder) identity's sanitized secret
// scalar, localPublicA its public key (B in the exchange); ephemeralKey is
// the pool entry (current, post-maintain) supplying this exchange's y/Y.
func Respond(requestID byte, in *Init, localSecretA, localPublicA [32]byte, ephemeralKey *Key) (*framing.Message, *Established, error) {
	X := in.SenderHandshakeKey
	A := in.SenderKey
	Y := ephemeralKey.Public
	B := localPublicA

	secret, ok := responderAgreement(localSecretA, ephemeralKey.Secret, X, Y, A, B)
	if !ok {
		return nil, nil, ErrDegenerate
	}
	tag := primitive.HMACSHA256(secret[:], A[:], Y[:])

	reply := BuildRespond(requestID, B, A, Y, X, tag)
	return reply, nil, nil
}

// Finish handles a parsed Type 2 message from the initiator's side.
// ephemeralKey is the pool entry matching the message's
// recipient-handshake-key (located by the caller via Pool.Find, current
// then previous).
func Finish(requestID byte, in *Respond, localSecretA, localPublicA [32]byte, ephemeralKey *Key) (*framing.Message, *Established, error) {
	X := in.RecipientHandshakeKey
	Y := in.SenderHandshakeKey
	A := localPublicA
	B := in.SenderKey

	secret, ok := initiatorAgreement(localSecretA, ephemeralKey.Secret, X, Y, A, B)
	if !ok {
		return nil, nil, ErrDegenerate
	}

	if !primitive.HMACSHA256Verify(in.Tag, secret[:], A[:], Y[:]) {
		return nil, nil, ErrTagMismatch
	}

	reciprocal := primitive.HMACSHA256(secret[:], A[:], Y[:])
	reply := BuildFinish(requestID, A, B, X, Y, reciprocal)

	established := &Established{X: X, Y: Y, A: A, B: B, SessionSecret: secret, Initiator: true}
	return reply, established, nil
}

// HandleFinish handles a parsed Type 3 message from the responder's side.
// No reply is sent on success; the caller is expected to immediately send
// a zero-length encrypted keepalive once the session is established
// (spec.md §4.4).
func HandleFinish(in *Finish, localSecretA, localPublicA [32]byte, ephemeralKey *Key) (*Established, error) {
	X := in.SenderHandshakeKey
	Y := in.RecipientHandshakeKey
	A := in.SenderKey
	B := localPublicA

	secret, ok := responderAgreement(localSecretA, ephemeralKey.Secret, X, Y, A, B)
	if !ok {
		return nil, ErrDegenerate
	}

	if !primitive.HMACSHA256Verify(in.Tag, secret[:], A[:], Y[:]) {
		return nil, ErrTagMismatch
	}

	return &Established{X: X, Y: Y, A: A, B: B, SessionSecret: secret, Initiator: false}, nil
}
