// Package method defines the capability set every authenticated-encryption
// construction must implement to plug into the record layer (spec.md
// §4.2), plus the registry that binds configured method names to concrete
// implementations (spec.md §4.3).
package method

import (
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/session"
)

// Options carries the configuration values a method's session state needs
// beyond the shared secret itself (spec.md §6's key_valid/key_refresh/...
// table).
type Options struct {
	KeyValid     time.Duration
	RefreshIn    time.Duration // key_refresh minus the caller's splay draw; ignored for responders
	ReorderTime  time.Duration
	ReorderCount int

	// Clock lets callers inject a deterministic clock for tests; nil
	// means time.Now.
	Clock func() time.Time
}

// Now returns opts.Clock() if set, else time.Now().
func (o Options) Now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// State is the per-session capability set spec.md §4.2 requires of every
// method: an abstract variant, not a function-pointer table, per spec.md
// §9's re-implementation note.
type State interface {
	// Common returns the embedded record-layer state (spec.md §4.2: "The
	// record-layer common state is embedded inside each method's session
	// state").
	Common() *session.Common

	SessionIsValid(now time.Time) bool
	SessionIsInitiator() bool
	SessionWantRefresh(now time.Time) bool

	// Free is called when the session slot holding the state is freed.
	// The constructions in this package keep their keys inside cipher
	// objects and do not zero them; their Free methods do nothing.
	Free()

	// Encrypt advances send_nonce by 2 and returns a new ciphertext
	// buffer, or an error if the session can no longer send.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt validates the inbound nonce against the reorder window and,
	// on success, authenticates and returns the plaintext.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Method is one authenticated-encryption construction.
type Method interface {
	// Name is the configuration-facing construction name.
	Name() string

	// MinEncryptHeadSpace is the number of bytes Encrypt needs ahead of
	// the plaintext for its own framing (nonce, tag).
	MinEncryptHeadSpace() int

	// SessionInit derives a fresh session state from the FHMQV session
	// secret (spec.md §4.2: session_init(shared_secret, is_initiator)).
	SessionInit(secret [32]byte, initiator bool, now time.Time, opts Options) State
}
