// Package primitive gives the rest of the core uniform, narrow names for
// the elliptic-curve group operations, hashing, and randomness the
// handshake and record layer are built from. Everything here is a thin
// wrapper over vetted implementations — crypto/sha256, crypto/hmac,
// crypto/rand, and filippo.io/edwards25519 — never a hand-rolled
// primitive.
package primitive

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"filippo.io/edwards25519"
)

// PointSize and ScalarSize are the wire and storage width of every group
// element and clamped secret scalar this package handles.
const (
	PointSize  = 32
	ScalarSize = 32
)

// Scalar is a group-order-reduced exponent.
type Scalar struct{ s *edwards25519.Scalar }

// Point is a group element.
type Point struct{ p *edwards25519.Point }

// SecretSanitize clamps a raw 32-byte scalar per RFC 7748: clear the low
// three bits, clear the top bit, set the second-highest bit. Idempotent —
// sanitizing an already-sanitized scalar returns it unchanged.
func SecretSanitize(raw [32]byte) [32]byte {
	out := raw
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	return out
}

// ScalarFromSanitized builds a group scalar from a secret that has already
// passed through SecretSanitize (identity keys, handshake keys).
func ScalarFromSanitized(sanitized [32]byte) Scalar {
	s := new(edwards25519.Scalar).SetBytesWithClamping(sanitized[:])
	return Scalar{s}
}

// ScalarFromWideHash builds a group scalar from one of the FHMQV
// truncate-and-set-high-bit hash halves (spec: d/e derivation). The input
// is treated as a little-endian integer, which is always < the group
// order because it is only 16 bytes wide with an extra high bit forced —
// so no reduction beyond zero-padding to 32 bytes is needed.
func ScalarFromWideHash(half [16]byte) Scalar {
	var buf [32]byte
	copy(buf[:16], half[:])
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(buf[:])
	if err != nil {
		// half is always < 2^128 < group order; canonical by construction.
		panic("primitive: wide-hash scalar not canonical: " + err.Error())
	}
	return Scalar{s}
}

// ScalarBaseMult computes scalar*G.
func ScalarBaseMult(s Scalar) Point {
	return Point{new(edwards25519.Point).ScalarBaseMult(s.s)}
}

// ScalarMult computes scalar*P.
func ScalarMult(s Scalar, p Point) Point {
	return Point{new(edwards25519.Point).ScalarMult(s.s, p.p)}
}

// ScalarMulAdd computes x*y + z over the scalar field, used to combine the
// FHMQV exponents (e.g. s = e*b + y).
func ScalarMulAdd(x, y, z Scalar) Scalar {
	return Scalar{new(edwards25519.Scalar).MultiplyAdd(x.s, y.s, z.s)}
}

// PointAdd computes p+q.
func PointAdd(p, q Point) Point {
	return Point{new(edwards25519.Point).Add(p.p, q.p)}
}

// PointIsIdentity reports whether p is the group identity element — the
// FHMQV degenerate-point guard (spec §4.4) checks this on sigma.
func PointIsIdentity(p Point) bool {
	return p.p.Equal(edwards25519.NewIdentityPoint()) == 1
}

// PointEncode serializes p to its 32-byte wire form.
func PointEncode(p Point) [32]byte {
	var out [32]byte
	copy(out[:], p.p.Bytes())
	return out
}

// PointDecode parses a 32-byte wire value. Decoding never fails: an
// invalid encoding yields the identity point, which later group
// operations propagate harmlessly and which PointIsIdentity will flag once
// the full FHMQV computation completes — exactly the behavior spec.md
// §4.1 calls for.
func PointDecode(raw [32]byte) Point {
	p, err := new(edwards25519.Point).SetBytes(raw[:])
	if err != nil {
		return Point{edwards25519.NewIdentityPoint()}
	}
	return Point{p}
}

// PointBase is the curve's base point G.
func PointBase() Point {
	return Point{edwards25519.NewGeneratorPoint()}
}

// SHA256 hashes data with SHA-256.
func SHA256(data ...[]byte) [32]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HMACSHA256 computes HMAC-SHA256(key, data...).
func HMACSHA256(key []byte, data ...[]byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// HMACSHA256Verify checks tag against HMAC-SHA256(key, data...) in
// constant time.
func HMACSHA256Verify(tag [32]byte, key []byte, data ...[]byte) bool {
	computed := HMACSHA256(key, data...)
	return subtle.ConstantTimeCompare(tag[:], computed[:]) == 1
}

// CSPRNG fills and returns n random bytes from the platform's CSPRNG.
// Go's crypto/rand is always backed by a blocking OS entropy source, so
// the `blocking` flag spec.md mentions (used only for long-term key
// generation in the reference design, to avoid minting keys before the
// kernel pool has seeded) is a no-op here; it is kept as a parameter so
// call sites document their intent.
func CSPRNG(n int, blocking bool) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
