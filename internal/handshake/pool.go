package handshake

import (
	"bytes"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/primitive"
)

// keyLifetime and keyRotateAfter are spec.md §4.4's handshake-key pool
// constants: a fresh key is preferred for 15s and stays valid (acceptable
// as a Type 3's recipient-handshake-key match) for 30s total, giving a
// ≥15s window to accept responses sent against the key just rotated out.
const (
	keyRotateAfter = 15 * time.Second
	keyLifetime    = 30 * time.Second
)

// Key is one ephemeral Curve25519 key pair in the pool.
type Key struct {
	Secret        [32]byte // sanitized scalar
	Public        [32]byte
	PreferredTill time.Time
	ValidTill     time.Time
}

func (k *Key) preferred(now time.Time) bool {
	return k != nil && now.Before(k.PreferredTill)
}

func (k *Key) valid(now time.Time) bool {
	return k != nil && now.Before(k.ValidTill)
}

// Pool holds exactly two handshake keys: the current one handed out to
// new Type 1/Type 2 messages, and the immediately previous one, kept
// alive only so in-flight responses against it still resolve.
type Pool struct {
	Current  *Key
	Previous *Key
}

// NewPool returns an empty pool; the first Maintain call populates it.
func NewPool() *Pool {
	return &Pool{}
}

// RandomSource matches primitive.CSPRNG's signature, accepted as a
// parameter so tests can supply a deterministic source.
type RandomSource func(n int, blocking bool) ([]byte, error)

// Maintain runs the lazy rotation step spec.md §4.4 describes: if the
// current key is no longer preferred, move current to previous and mint a
// fresh one.
func (p *Pool) Maintain(now time.Time, rng RandomSource) error {
	if p.Current.preferred(now) {
		return nil
	}

	raw, err := rng(32, false)
	if err != nil {
		return err
	}
	var secretBuf [32]byte
	copy(secretBuf[:], raw)
	secret := primitive.SecretSanitize(secretBuf)
	public := primitive.PointEncode(primitive.ScalarBaseMult(primitive.ScalarFromSanitized(secret)))

	if p.Previous != nil {
		p.Previous.Secret = [32]byte{}
	}
	p.Previous = p.Current
	p.Current = &Key{
		Secret:        secret,
		Public:        public,
		PreferredTill: now.Add(keyRotateAfter),
		ValidTill:     now.Add(keyLifetime),
	}
	return nil
}

// Find locates a still-valid key by its public half, searching current
// then previous (spec.md §4.4: "searching current then previous pool
// entries, rejecting if neither matches a valid entry").
func (p *Pool) Find(public [32]byte, now time.Time) (*Key, bool) {
	if p.Current.valid(now) && bytes.Equal(p.Current.Public[:], public[:]) {
		return p.Current, true
	}
	if p.Previous.valid(now) && bytes.Equal(p.Previous.Public[:], public[:]) {
		return p.Previous, true
	}
	return nil, false
}
