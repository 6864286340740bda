package method

import (
	"errors"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/fhmqvtun/fhmqvtund/internal/session"
)

// GenericPoly1305 is spec.md §4.8's "generic Poly1305 ... construction": a
// single AEAD (ChaCha20-Poly1305) keyed directly from the session secret,
// with the record layer's 6-byte nonce zero-extended to the AEAD's
// 12-byte nonce.
type GenericPoly1305 struct{}

// GenericPoly1305Name is this method's registry name.
const GenericPoly1305Name = "generic-poly1305"

func (GenericPoly1305) Name() string            { return GenericPoly1305Name }
func (GenericPoly1305) MinEncryptHeadSpace() int { return 6 + chacha20poly1305.Overhead }

func (GenericPoly1305) SessionInit(secret [32]byte, initiator bool, now time.Time, opts Options) State {
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		// chacha20poly1305.New only fails on a wrong key length, and
		// secret is always exactly 32 bytes.
		panic("method: generic-poly1305: " + err.Error())
	}
	return &aeadState{
		common: session.NewCommon(initiator, now, opts.KeyValid, opts.RefreshIn),
		opts:   opts,
		aead:   aead,
		name:   GenericPoly1305Name,
	}
}

// aeadState implements State for any stdlib cipher.AEAD construction keyed
// directly off the session secret (shared by GenericPoly1305 and
// GenericGMAC).
type aeadState struct {
	common *session.Common
	opts   Options
	aead   aeadCipher
	name   string
}

// aeadCipher is the subset of cipher.AEAD both constructions need.
type aeadCipher interface {
	NonceSize() int
	Overhead() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

func (s *aeadState) Common() *session.Common               { return s.common }
func (s *aeadState) SessionIsValid(now time.Time) bool     { return s.common.IsValid(now) }
func (s *aeadState) SessionIsInitiator() bool              { return s.common.Initiator }
func (s *aeadState) SessionWantRefresh(now time.Time) bool { return s.common.WantRefresh(now) }
func (s *aeadState) Free()                                 {}

func (s *aeadState) aeadNonce(n session.Nonce) []byte {
	nonce := make([]byte, s.aead.NonceSize())
	copy(nonce, n[:])
	return nonce
}

func (s *aeadState) Encrypt(plaintext []byte) ([]byte, error) {
	nonce, ok := s.common.NextSendNonce()
	if !ok {
		return nil, errors.New("method: " + s.name + ": session exhausted")
	}
	out := make([]byte, 6, 6+len(plaintext)+s.aead.Overhead())
	copy(out, nonce[:])
	return s.aead.Seal(out, s.aeadNonce(nonce), plaintext, nil), nil
}

func (s *aeadState) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 6 {
		return nil, errors.New("method: " + s.name + ": short packet")
	}
	var nonce session.Nonce
	copy(nonce[:], ciphertext[:6])
	if !s.common.AcceptNonce(nonce, s.opts.Now(), s.opts.ReorderTime, s.opts.ReorderCount) {
		return nil, errors.New("method: " + s.name + ": nonce rejected")
	}
	return s.aead.Open(nil, s.aeadNonce(nonce), ciphertext[6:], nil)
}
