package handshake

import "github.com/fhmqvtun/fhmqvtund/internal/primitive"

// deriveDE computes spec.md §4.4's shared scalars from the four public
// values, in the fixed order X, Y, A, B: hash, split in half, and force
// the top bit of each half so the result is always a valid, non-reduced
// scalar ("truncate-and-set-high-bit").
func deriveDE(X, Y, A, B [32]byte) (d, e primitive.Scalar) {
	h := primitive.SHA256(X[:], Y[:], A[:], B[:])

	var dHalf, eHalf [16]byte
	copy(dHalf[:], h[0:16])
	copy(eHalf[:], h[16:32])
	dHalf[15] |= 0x80
	eHalf[15] |= 0x80

	return primitive.ScalarFromWideHash(dHalf), primitive.ScalarFromWideHash(eHalf)
}

// sessionSecret hashes the agreed point in with the four public values,
// per spec.md §3/§4.4: K = SHA256(X‖Y‖A‖B‖σ).
func sessionSecret(X, Y, A, B [32]byte, sigma primitive.Point) [32]byte {
	sigmaBytes := primitive.PointEncode(sigma)
	return primitive.SHA256(X[:], Y[:], A[:], B[:], sigmaBytes[:])
}

// responderAgreement computes the FHMQV shared secret from the responder's
// side (spec.md §4.4 Type 2): s = e·b + y, σ = s·(d·A + X).
// bSecret is the responder's sanitized long-term scalar, ySecret its
// sanitized ephemeral scalar for this exchange.
func responderAgreement(bSecret, ySecret [32]byte, X, Y, A, B [32]byte) (secret [32]byte, ok bool) {
	d, e := deriveDE(X, Y, A, B)

	s := primitive.ScalarMulAdd(e, primitive.ScalarFromSanitized(bSecret), primitive.ScalarFromSanitized(ySecret))

	dA := primitive.ScalarMult(d, primitive.PointDecode(A))
	inner := primitive.PointAdd(dA, primitive.PointDecode(X))
	sigma := primitive.ScalarMult(s, inner)

	if primitive.PointIsIdentity(sigma) {
		return [32]byte{}, false
	}
	return sessionSecret(X, Y, A, B, sigma), true
}

// initiatorAgreement computes the FHMQV shared secret from the
// initiator's side (spec.md §4.4 Type 3): s = d·a + x, σ = s·(e·B + Y).
// aSecret is the initiator's sanitized long-term scalar, xSecret its
// sanitized ephemeral scalar for this exchange.
func initiatorAgreement(aSecret, xSecret [32]byte, X, Y, A, B [32]byte) (secret [32]byte, ok bool) {
	d, e := deriveDE(X, Y, A, B)

	s := primitive.ScalarMulAdd(d, primitive.ScalarFromSanitized(aSecret), primitive.ScalarFromSanitized(xSecret))

	eB := primitive.ScalarMult(e, primitive.PointDecode(B))
	inner := primitive.PointAdd(eB, primitive.PointDecode(Y))
	sigma := primitive.ScalarMult(s, inner)

	if primitive.PointIsIdentity(sigma) {
		return [32]byte{}, false
	}
	return sessionSecret(X, Y, A, B, sigma), true
}
