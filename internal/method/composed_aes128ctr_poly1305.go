package method

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/poly1305"

	"github.com/fhmqvtun/fhmqvtund/internal/session"
)

// ComposedAES128CTRPoly1305 is spec.md §4.8's "composed cipher+MAC pairs"
// category: an independently-keyed stream cipher and MAC, the same shape
// as fastd's own default composed method. AES-128-CTR
// (`crypto/aes`+`crypto/cipher`) supplies confidentiality, Poly1305
// (`golang.org/x/crypto/poly1305`) supplies integrity. Poly1305 is a
// one-time MAC: its 32-byte key must never be reused across packets, so it
// is drawn fresh for every packet from the AES-CTR keystream at that
// packet's own nonce (the same construction as Poly1305-AES and
// chacha20poly1305's "block zero is the MAC key" convention), not from a
// single session-wide subkey.
type ComposedAES128CTRPoly1305 struct{}

// ComposedAES128CTRPoly1305Name is this method's registry name.
const ComposedAES128CTRPoly1305Name = "composed-aes128-ctr-poly1305"

const composedCipherKeyLen = 16 // AES-128

func (ComposedAES128CTRPoly1305) Name() string { return ComposedAES128CTRPoly1305Name }

func (ComposedAES128CTRPoly1305) MinEncryptHeadSpace() int { return 6 + poly1305.TagSize }

func (ComposedAES128CTRPoly1305) SessionInit(secret [32]byte, initiator bool, now time.Time, opts Options) State {
	kdf := hkdf.New(sha256.New, secret[:], nil, []byte("fhmqvtund composed-aes128-ctr-poly1305"))
	var cipherKey [composedCipherKeyLen]byte
	if _, err := io.ReadFull(kdf, cipherKey[:]); err != nil {
		panic("method: composed-aes128-ctr-poly1305: " + err.Error())
	}
	block, err := aes.NewCipher(cipherKey[:])
	if err != nil {
		panic("method: composed-aes128-ctr-poly1305: " + err.Error())
	}
	return &composedState{
		common: session.NewCommon(initiator, now, opts.KeyValid, opts.RefreshIn),
		opts:   opts,
		block:  block,
	}
}

type composedState struct {
	common *session.Common
	opts   Options
	block  cipher.Block
}

func (s *composedState) Common() *session.Common               { return s.common }
func (s *composedState) SessionIsValid(now time.Time) bool     { return s.common.IsValid(now) }
func (s *composedState) SessionIsInitiator() bool              { return s.common.Initiator }
func (s *composedState) SessionWantRefresh(now time.Time) bool { return s.common.WantRefresh(now) }
func (s *composedState) Free() {}

// packetMACKey draws this packet's one-time Poly1305 key from the first
// 32 bytes of the AES-CTR keystream at iv, leaving stream advanced past
// those bytes so the message keystream that follows never overlaps with
// key material.
func packetMACKey(stream cipher.Stream) [32]byte {
	var key [32]byte
	stream.XORKeyStream(key[:], key[:])
	return key
}

// ctrIV expands the 6-byte record nonce to a full 16-byte AES-CTR IV,
// zero-padded in the high bytes, mirroring the zero-extension the generic
// AEAD constructions apply to their nonces.
func ctrIV(n session.Nonce) [aes.BlockSize]byte {
	var iv [aes.BlockSize]byte
	copy(iv[:6], n[:])
	return iv
}

func (s *composedState) Encrypt(plaintext []byte) ([]byte, error) {
	nonce, ok := s.common.NextSendNonce()
	if !ok {
		return nil, errors.New("method: composed-aes128-ctr-poly1305: session exhausted")
	}

	iv := ctrIV(nonce)
	stream := cipher.NewCTR(s.block, iv[:])
	macKey := packetMACKey(stream)

	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)

	var tag [poly1305.TagSize]byte
	poly1305.Sum(&tag, append(append([]byte{}, nonce[:]...), ciphertext...), &macKey)

	out := make([]byte, 0, 6+len(ciphertext)+poly1305.TagSize)
	out = append(out, nonce[:]...)
	out = append(out, ciphertext...)
	out = append(out, tag[:]...)
	return out, nil
}

func (s *composedState) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 6+poly1305.TagSize {
		return nil, errors.New("method: composed-aes128-ctr-poly1305: short packet")
	}
	var nonce session.Nonce
	copy(nonce[:], ciphertext[:6])
	if !s.common.AcceptNonce(nonce, s.opts.Now(), s.opts.ReorderTime, s.opts.ReorderCount) {
		return nil, errors.New("method: composed-aes128-ctr-poly1305: nonce rejected")
	}

	body := ciphertext[6 : len(ciphertext)-poly1305.TagSize]
	var wantTag [poly1305.TagSize]byte
	copy(wantTag[:], ciphertext[len(ciphertext)-poly1305.TagSize:])

	iv := ctrIV(nonce)
	stream := cipher.NewCTR(s.block, iv[:])
	macKey := packetMACKey(stream)

	if !poly1305.Verify(&wantTag, append(append([]byte{}, nonce[:]...), body...), &macKey) {
		return nil, errors.New("method: composed-aes128-ctr-poly1305: authentication failed")
	}

	plaintext := make([]byte, len(body))
	stream.XORKeyStream(plaintext, body)
	return plaintext, nil
}
