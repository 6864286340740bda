// Package wire implements spec.md §6's outermost datagram framing: a
// 1-byte packet-type tag and two reserved bytes ahead of either a
// handshake TLV stream or a method-specific data payload.
package wire

import "fmt"

// PacketType is the outermost dispatch tag spec.md §6 defines.
type PacketType byte

const (
	PacketUnknown   PacketType = 0
	PacketHandshake PacketType = 1
	PacketData      PacketType = 2
)

// headerSize is the type byte plus the two reserved bytes.
const headerSize = 3

// Encode prepends the packet-type header to payload. reserved is written
// verbatim (zero on send for handshake packets; method-defined for data
// packets).
func Encode(t PacketType, reserved [2]byte, payload []byte) []byte {
	out := make([]byte, headerSize+len(payload))
	out[0] = byte(t)
	out[1] = reserved[0]
	out[2] = reserved[1]
	copy(out[headerSize:], payload)
	return out
}

// Decode splits a raw datagram into its packet type, reserved bytes, and
// payload. A datagram shorter than the header is rejected; the caller
// still must free the buffer on this error, same as any other malformed
// packet (spec.md §7).
func Decode(data []byte) (t PacketType, reserved [2]byte, payload []byte, err error) {
	if len(data) < headerSize {
		return 0, reserved, nil, fmt.Errorf("wire: datagram too short: %d bytes", len(data))
	}
	t = PacketType(data[0])
	reserved[0] = data[1]
	reserved[1] = data[2]
	payload = data[headerSize:]
	return t, reserved, payload, nil
}
