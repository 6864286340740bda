package daemon

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/handshake"
	"github.com/fhmqvtun/fhmqvtund/internal/identity"
	"github.com/fhmqvtun/fhmqvtund/internal/metrics"
	"github.com/fhmqvtun/fhmqvtund/internal/method"
	"github.com/fhmqvtun/fhmqvtund/internal/peer"
	"github.com/fhmqvtun/fhmqvtund/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedRandom(seed byte) handshake.RandomSource {
	return func(n int, blocking bool) ([]byte, error) {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = seed + byte(i)
		}
		return buf, nil
	}
}

func newTestContext(id *identity.Identity, local *peer.Peer, remoteKnownAsAddr string, seed byte) *Context {
	reg := method.NewRegistry()
	method.RegisterDefaults(reg)

	mgr := peer.NewManager(id.Public)
	mgr.Add(local)

	now := time.Unix(1_700_000_000, 0)
	return &Context{
		Identity:          id,
		Pool:              handshake.NewPool(),
		Registry:          reg,
		Peers:             mgr,
		Admit:             peer.NewAdmissionPolicy(1000, 1000, time.Minute),
		Metrics:           metrics.New(prometheus.NewRegistry()),
		Log:               discardLogger(),
		MethodName:        "null",
		KeyValid:          time.Minute,
		KeyRefresh:        40 * time.Second,
		KeyRefreshSplay:   0,
		ReorderTime:       time.Second,
		ReorderCount:      64,
		KeepaliveInterval: 25 * time.Second,
		Clock:             func() time.Time { return now },
		RNG:               fixedRandom(seed),
	}
}

func TestEndToEndHandshakeAndDataRoundTrip(t *testing.T) {
	idA, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	idB, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	peerBFromA := &peer.Peer{Name: "b", PublicKey: idB.Public, Floating: true}
	peerAFromB := &peer.Peer{Name: "a", PublicKey: idA.Public, ConfiguredAddress: "addrA"}

	ctxA := newTestContext(idA, peerBFromA, "addrB", 0x10)
	ctxB := newTestContext(idB, peerAFromB, "addrA", 0x20)

	now := ctxA.now()

	// B initiates toward A.
	initOut := ctxB.initiateHandshake(now)(peerAFromB)
	if initOut == nil {
		t.Fatal("initiateHandshake() returned nil")
	}

	_, _, initPayload, err := wire.Decode(initOut.data)
	if err != nil {
		t.Fatalf("decode Init datagram: %v", err)
	}
	respondOut := ctxA.handleHandshakePayload(now, "addrB", initPayload)
	if respondOut == nil {
		t.Fatal("handleHandshakePayload(Init) returned nil")
	}

	_, _, respondPayload, err := wire.Decode(respondOut.data)
	if err != nil {
		t.Fatalf("decode Respond datagram: %v", err)
	}
	finishOut := ctxB.handleHandshakePayload(now, "addrA", respondPayload)
	if finishOut == nil {
		t.Fatal("handleHandshakePayload(Respond) returned nil")
	}

	_, _, finishPayload, err := wire.Decode(finishOut.data)
	if err != nil {
		t.Fatalf("decode Finish datagram: %v", err)
	}
	finishReply := ctxA.handleHandshakePayload(now, "addrB", finishPayload)
	if finishReply == nil {
		t.Fatal("handleHandshakePayload(Finish) should produce the responder's keepalive")
	}
	if typ, _, _, err := wire.Decode(finishReply.data); err != nil || typ != wire.PacketData {
		t.Fatal("handleHandshakePayload(Finish) should produce a data keepalive, not a handshake reply")
	}

	if !peerAFromB.Established {
		t.Fatal("peer A (as seen from B) was not established")
	}
	if !peerBFromA.Established {
		t.Fatal("peer B (as seen from A) was not established")
	}

	// B sends a TUN packet to A.
	outs := ctxB.handleTunPayload(now, []byte("payload from B"))
	if len(outs) != 1 {
		t.Fatalf("handleTunPayload() produced %d datagrams, want 1", len(outs))
	}
	_, _, dataPayload, err := wire.Decode(outs[0].data)
	if err != nil {
		t.Fatalf("decode data datagram: %v", err)
	}

	plaintext, reply := ctxA.handleDataPayload(now, "addrB", dataPayload)
	if string(plaintext) != "payload from B" {
		t.Errorf("handleDataPayload() plaintext = %q, want %q", plaintext, "payload from B")
	}
	_ = reply
}
