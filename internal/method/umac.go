package method

import (
	"time"
)

// UMACAES128Name is registered in the method registry but never becomes
// available: no UMAC implementation exists anywhere in the reference
// corpus or the wider ecosystem at a quality bar this repository is
// willing to depend on. See DESIGN.md.
const UMACAES128Name = "umac-aes128"

// umacAES128Unavailable is the stub Method behind UMACAES128Name. Its
// SessionInit is never reached in practice because Registry.Lookup skips
// past it — it exists so the registry's fallback-skip behavior
// (spec.md §4.3) has a real entry to skip rather than an empty list.
type umacAES128Unavailable struct{}

func (umacAES128Unavailable) Name() string            { return UMACAES128Name }
func (umacAES128Unavailable) MinEncryptHeadSpace() int { return 0 }

func (umacAES128Unavailable) SessionInit(secret [32]byte, initiator bool, now time.Time, opts Options) State {
	panic("method: umac-aes128: no implementation available")
}

// umacAES128Available always reports false; registered as the sole
// variant's availability probe.
func umacAES128Available() bool { return false }

// RegisterDefaults registers every construction this repository ships
// with a fresh registry, in spec.md §4.3's preference order.
func RegisterDefaults(r *Registry) {
	r.Register(NullName, Null{}, nil)
	r.Register(GenericPoly1305Name, GenericPoly1305{}, nil)
	r.Register(GenericGMACName, GenericGMAC{}, nil)
	r.Register(ComposedAES128CTRPoly1305Name, ComposedAES128CTRPoly1305{}, nil)
	r.Register(UMACAES128Name, umacAES128Unavailable{}, umacAES128Available)
}
