package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/tundev"
	"github.com/fhmqvtun/fhmqvtund/internal/wire"
)

// socket and device are the narrow interfaces Daemon needs from
// internal/transport and internal/tundev, kept small so tests can supply
// fakes without opening a real socket or device.
type socket interface {
	ReadFrom(buf []byte) (int, string, error)
	SendTo(data []byte, to string) error
	Close() error
}

// Daemon drives the single-threaded event loop SPEC_FULL.md §5 describes:
// two reader goroutines turn blocking socket/TUN reads into channel sends,
// and one select loop performs every core mutation.
type Daemon struct {
	ctx  *Context
	sock socket
	tun  tundev.Device

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

const maxDatagramSize = 1500

type socketRead struct {
	data []byte
	from string
}

type tunRead struct {
	data []byte
}

// New builds a Daemon around an already-initialized Context, socket, and
// TUN device.
func New(c *Context, sock socket, tun tundev.Device) *Daemon {
	return &Daemon{ctx: c, sock: sock, tun: tun}
}

// Run starts the reader goroutines and blocks, driving the event loop
// until parentCtx is cancelled.
func (d *Daemon) Run(parentCtx context.Context) {
	runCtx, cancel := context.WithCancel(parentCtx)
	d.cancel = cancel

	socketReads := make(chan socketRead, 64)
	tunReads := make(chan tunRead, 64)

	d.wg.Add(2)
	go d.socketReadLoop(runCtx, socketReads)
	go d.tunReadLoop(runCtx, tunReads)

	d.eventLoop(runCtx, socketReads, tunReads)
	d.wg.Wait()
}

// Close stops the event loop and releases the socket and device.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	d.sock.Close()
	if d.tun != nil {
		d.tun.Close()
	}
}

func (d *Daemon) socketReadLoop(ctx context.Context, out chan<- socketRead) {
	defer d.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := d.sock.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.ctx.Log.Error("socket read error", "err", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case out <- socketRead{data: data, from: from}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Daemon) tunReadLoop(ctx context.Context, out chan<- tunRead) {
	defer d.wg.Done()
	if d.tun == nil {
		<-ctx.Done()
		return
	}
	buf := make([]byte, maxDatagramSize)
	for {
		n, err := d.tun.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.ctx.Log.Error("TUN read error", "err", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case out <- tunRead{data: data}:
		case <-ctx.Done():
			return
		}
	}
}

// eventLoop is the single goroutine every core mutation happens on
// (SPEC_FULL.md §5). maintenanceTick drives handshake scheduling,
// keepalives, handshake-key rotation and admission-bucket sweeping.
func (d *Daemon) eventLoop(ctx context.Context, socketReads <-chan socketRead, tunReads <-chan tunRead) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-socketReads:
			d.handleDatagram(r.from, r.data)

		case r := <-tunReads:
			d.handleTunFrame(r.data)

		case <-ticker.C:
			d.maintenance()
		}
	}
}

func (d *Daemon) handleDatagram(from string, data []byte) {
	now := d.ctx.now()
	if !d.ctx.Admit.Allow(from, now) {
		d.ctx.Log.Debug("admission policy denied datagram", "from", from)
		return
	}

	typ, _, payload, err := wire.Decode(data)
	if err != nil {
		d.ctx.Log.Debug("malformed datagram", "from", from, "err", err)
		return
	}

	switch typ {
	case wire.PacketHandshake:
		if reply := d.ctx.handleHandshakePayload(now, from, payload); reply != nil {
			d.send(reply)
		}
	case wire.PacketData:
		plaintext, reply := d.ctx.handleDataPayload(now, from, payload)
		if reply != nil {
			d.send(reply)
		}
		if plaintext != nil && d.tun != nil {
			if _, err := d.tun.Write(plaintext); err != nil {
				d.ctx.Log.Error("TUN write error", "err", err)
			}
		}
	default:
		// Unknown packet type at outermost dispatch: drop. The buffer is a
		// local slice owned by this call frame, so "freeing" it is simply
		// letting it go out of scope — there is nothing further to release.
		d.ctx.Log.Debug("unknown packet type", "type", typ, "from", from)
	}
}

func (d *Daemon) handleTunFrame(data []byte) {
	now := d.ctx.now()
	for _, out := range d.ctx.handleTunPayload(now, data) {
		d.send(out)
	}
}

func (d *Daemon) maintenance() {
	now := d.ctx.now()

	if err := d.ctx.Pool.Maintain(now, d.ctx.rng()); err != nil {
		d.ctx.Log.Warn("handshake key maintenance failed", "err", err)
	}
	d.ctx.Admit.Sweep(now)

	initiate := d.ctx.initiateHandshake(now)
	for _, p := range d.ctx.Peers.DueHandshakes(now) {
		d.send(initiate(p))
	}
	for _, p := range d.ctx.Peers.DueKeepalives(now) {
		result, err := p.Send(now, nil, d.ctx.KeepaliveInterval)
		if err != nil {
			continue
		}
		d.send(&outbound{to: p.Address, data: wire.Encode(wire.PacketData, [2]byte{}, result.Ciphertext)})
		if result.WantsRefresh && p.NextHandshake.IsZero() {
			p.ScheduleHandshake(now, 0)
		}
	}
}

func (d *Daemon) send(o *outbound) {
	if o == nil {
		return
	}
	if err := d.sock.SendTo(o.data, o.to); err != nil {
		d.ctx.Log.Debug("send failed", "to", o.to, "err", err)
	}
}
