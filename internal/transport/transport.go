// Package transport manages the daemon's UDP socket (spec.md §6's
// "network socket" external interface).
package transport

import (
	"fmt"
	"net"
	"sync"
)

// Transport owns the UDP socket packets arrive on and leave from. Reads
// and writes addresses are plain host:port strings, matching the
// peer.Manager's address-keyed matching (SPEC_FULL.md §4.6).
type Transport struct {
	conn *net.UDPConn

	mu     sync.RWMutex
	closed bool
}

// Listen binds a UDP socket on addr (e.g. "0.0.0.0:10200").
func Listen(addr string) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}
	return &Transport{conn: conn}, nil
}

// LocalAddr returns the bound local address.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// ReadFrom reads one datagram and the address it arrived from, in the
// "host:port" form peer.Manager expects.
func (t *Transport) ReadFrom(buf []byte) (n int, from string, err error) {
	n, addr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		return n, "", err
	}
	return n, addr.String(), nil
}

// SendTo writes data to a "host:port" destination.
func (t *Transport) SendTo(data []byte, to string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return fmt.Errorf("transport: send on closed socket")
	}
	addr, err := net.ResolveUDPAddr("udp", to)
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", to, err)
	}
	_, err = t.conn.WriteToUDP(data, addr)
	return err
}

// Close shuts down the socket.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return t.conn.Close()
}
