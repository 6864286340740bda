package method

import (
	"crypto/aes"
	"crypto/cipher"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/session"
)

// GenericGMAC is spec.md §4.8's "generic GMAC construction": AES-GCM keyed
// directly off the session secret. GMAC/GCM is one of spec.md §1's raw
// primitives assumed correct, so this uses the stdlib composition rather
// than a third-party package — no ecosystem repo in the pack ships an
// alternative AES-GCM worth depending on instead.
type GenericGMAC struct{}

// GenericGMACName is this method's registry name.
const GenericGMACName = "generic-gmac"

func (GenericGMAC) Name() string            { return GenericGMACName }
func (GenericGMAC) MinEncryptHeadSpace() int { return 6 + 16 }

func (GenericGMAC) SessionInit(secret [32]byte, initiator bool, now time.Time, opts Options) State {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		panic("method: generic-gmac: " + err.Error())
	}
	aead, err := cipher.NewGCMWithNonceSize(block, 6)
	if err != nil {
		// NewGCMWithNonceSize only fails for a zero-length nonce.
		panic("method: generic-gmac: " + err.Error())
	}
	return &aeadState{
		common: session.NewCommon(initiator, now, opts.KeyValid, opts.RefreshIn),
		opts:   opts,
		aead:   aead,
		name:   GenericGMACName,
	}
}
