package method

import (
	"errors"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/session"
)

// Null is the no-encryption method: it still runs the full record-layer
// nonce/reorder discipline (spec.md §4.2 applies to every method equally)
// but ships plaintext on the wire, prefixed by the 6-byte nonce. Useful
// for testing the record layer in isolation from any AEAD construction.
type Null struct{}

// NullName is this method's registry name.
const NullName = "null"

func (Null) Name() string              { return NullName }
func (Null) MinEncryptHeadSpace() int   { return 6 }
func (Null) SessionInit(secret [32]byte, initiator bool, now time.Time, opts Options) State {
	return &nullState{common: session.NewCommon(initiator, now, opts.KeyValid, opts.RefreshIn), opts: opts}
}

type nullState struct {
	common *session.Common
	opts   Options
}

func (s *nullState) Common() *session.Common               { return s.common }
func (s *nullState) SessionIsValid(now time.Time) bool      { return s.common.IsValid(now) }
func (s *nullState) SessionIsInitiator() bool               { return s.common.Initiator }
func (s *nullState) SessionWantRefresh(now time.Time) bool  { return s.common.WantRefresh(now) }
func (s *nullState) Free()                                  {}

func (s *nullState) Encrypt(plaintext []byte) ([]byte, error) {
	nonce, ok := s.common.NextSendNonce()
	if !ok {
		return nil, errors.New("method: null: session exhausted")
	}
	out := make([]byte, 6+len(plaintext))
	copy(out[:6], nonce[:])
	copy(out[6:], plaintext)
	return out, nil
}

func (s *nullState) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 6 {
		return nil, errors.New("method: null: short packet")
	}
	var nonce session.Nonce
	copy(nonce[:], ciphertext[:6])
	if !s.common.AcceptNonce(nonce, s.opts.Now(), s.opts.ReorderTime, s.opts.ReorderCount) {
		return nil, errors.New("method: null: nonce rejected")
	}
	out := make([]byte, len(ciphertext)-6)
	copy(out, ciphertext[6:])
	return out, nil
}
