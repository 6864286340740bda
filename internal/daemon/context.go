// Package daemon ties the core packages (primitive, identity, handshake,
// method, session, peer) to the network (internal/transport) and device
// (internal/tundev) layers through a single-threaded event loop, per
// SPEC_FULL.md §5. Context is the explicit, non-singleton process-wide
// state spec.md §9 calls for — no package-level globals.
package daemon

import (
	"log/slog"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/handshake"
	"github.com/fhmqvtun/fhmqvtund/internal/identity"
	"github.com/fhmqvtun/fhmqvtund/internal/method"
	"github.com/fhmqvtun/fhmqvtund/internal/metrics"
	"github.com/fhmqvtun/fhmqvtund/internal/peer"
	"github.com/fhmqvtun/fhmqvtund/internal/primitive"
)

// Context bundles the process-wide state every core operation needs:
// identity, handshake-key pool, method registry, configured peers,
// admission policy, metrics sink, clock source and RNG. It is built once
// at startup and passed by pointer, never stashed behind a singleton.
type Context struct {
	Identity *identity.Identity
	Pool     *handshake.Pool
	Registry *method.Registry
	Peers    *peer.Manager
	Admit    *peer.AdmissionPolicy
	Metrics  *metrics.Sink
	Log      *slog.Logger

	MethodName string

	KeyValid          time.Duration
	KeyRefresh        time.Duration
	KeyRefreshSplay   time.Duration
	ReorderTime       time.Duration
	ReorderCount      int
	KeepaliveInterval time.Duration

	// Clock and RNG let tests drive the daemon deterministically; nil
	// means time.Now / primitive.CSPRNG.
	Clock func() time.Time
	RNG   handshake.RandomSource

	requestID byte
}

func (c *Context) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Context) rng() handshake.RandomSource {
	if c.RNG != nil {
		return c.RNG
	}
	return primitive.CSPRNG
}

// nextRequestID hands out the one-byte request id every handshake message
// carries (spec.md §3); wrap-around is fine, it is not a security value.
func (c *Context) nextRequestID() byte {
	c.requestID++
	return c.requestID
}

// methodOptions builds the per-handshake method.Options, drawing a fresh
// rand(0, key_refresh_splay) subtraction from key_refresh each time (spec.md
// §6: "key_refresh_splay: maximum random subtraction ... to avoid sync").
func (c *Context) methodOptions() method.Options {
	return method.Options{
		KeyValid:     c.KeyValid,
		RefreshIn:    c.KeyRefresh - c.splayDraw(),
		ReorderTime:  c.ReorderTime,
		ReorderCount: c.ReorderCount,
		Clock:        c.Clock,
	}
}

func (c *Context) splayDraw() time.Duration {
	if c.KeyRefreshSplay <= 0 {
		return 0
	}
	raw, err := c.rng()(8, false)
	if err != nil {
		return 0
	}
	var n uint64
	for _, b := range raw {
		n = n<<8 | uint64(b)
	}
	return time.Duration(n % uint64(c.KeyRefreshSplay))
}
