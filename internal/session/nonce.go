package session

import "encoding/binary"

// Nonce is the 6-byte little-endian send/receive counter spec.md §3
// defines. It only ever holds 48 bits of value; the top two bytes of any
// backing buffer are always zero.
type Nonce [6]byte

// MaxNonce is the 48-bit ceiling a session's nonce space cannot cross.
const MaxNonce uint64 = (1 << 48) - 1

// Uint64 decodes the little-endian counter value.
func (n Nonce) Uint64() uint64 {
	var buf [8]byte
	copy(buf[:6], n[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// NonceFromUint64 encodes a 48-bit counter value.
func NonceFromUint64(v uint64) Nonce {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	var n Nonce
	copy(n[:], buf[:6])
	return n
}

// Parity returns the nonce's low bit, which disambiguates the two send
// directions sharing one session secret (spec.md §3's parity invariant).
func (n Nonce) Parity() byte { return n[0] & 1 }
