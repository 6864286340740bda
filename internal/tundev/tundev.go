// Package tundev wires the daemon to a TUN device via
// github.com/songgao/water (SPEC_FULL.md §2's TUN/TAP component). The core
// treats whatever comes off the device as an opaque payload to encrypt; it
// never inspects L2/L3 contents.
package tundev

// Device is the cross-platform TUN device interface the daemon's event
// loop reads plaintext packets from and writes decrypted ones to.
type Device interface {
	// Name returns the OS network interface name (e.g. "fhmqv0").
	Name() string

	// Read reads one packet from the TUN device into buf.
	Read(buf []byte) (int, error)

	// Write writes one packet to the TUN device.
	Write(buf []byte) (int, error)

	// SetMTU sets the maximum transmission unit.
	SetMTU(mtu int) error

	// Close shuts down and removes the device.
	Close() error
}
