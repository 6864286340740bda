// Package framing implements spec.md §3/§6's handshake TLV wire format: a
// 1-byte request id, 2 reserved bytes, then a sequence of
// {type: u8, length: u16 little-endian, value: bytes} records.
package framing

import (
	"encoding/binary"
	"fmt"
)

// RecordType identifies one TLV record within a handshake message.
type RecordType uint8

// Record types used by this protocol (spec.md §3).
const (
	RecordHandshakeType RecordType = 1
	RecordReplyCode     RecordType = 2
	RecordErrorDetail   RecordType = 3
	RecordFlags         RecordType = 4
	RecordMode          RecordType = 5
	RecordProtocolName  RecordType = 6

	// P1…P5 are the protocol-specific slots spec.md §3 names: sender
	// long-term key, recipient long-term key, sender handshake key,
	// recipient handshake key, and authenticator tag T.
	RecordSenderKey             RecordType = 0x10 // P1
	RecordRecipientKey          RecordType = 0x11 // P2
	RecordSenderHandshakeKey    RecordType = 0x12 // P3
	RecordRecipientHandshakeKey RecordType = 0x13 // P4
	RecordTag                   RecordType = 0x14 // P5
)

func (t RecordType) String() string {
	switch t {
	case RecordHandshakeType:
		return "handshake-type"
	case RecordReplyCode:
		return "reply-code"
	case RecordErrorDetail:
		return "error-detail"
	case RecordFlags:
		return "flags"
	case RecordMode:
		return "mode"
	case RecordProtocolName:
		return "protocol-name"
	case RecordSenderKey:
		return "sender-key"
	case RecordRecipientKey:
		return "recipient-key"
	case RecordSenderHandshakeKey:
		return "sender-handshake-key"
	case RecordRecipientHandshakeKey:
		return "recipient-handshake-key"
	case RecordTag:
		return "tag"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// headerSize is the request-id byte plus the two reserved bytes.
const headerSize = 3

// Message is a parsed or to-be-encoded handshake TLV message.
type Message struct {
	RequestID byte
	Records   map[RecordType][]byte
}

// NewMessage returns an empty message with the given request id.
func NewMessage(requestID byte) *Message {
	return &Message{RequestID: requestID, Records: make(map[RecordType][]byte)}
}

// Set attaches a record, overwriting any previous value of the same type.
func (m *Message) Set(t RecordType, value []byte) {
	if m.Records == nil {
		m.Records = make(map[RecordType][]byte)
	}
	m.Records[t] = value
}

// Get returns the record's value and whether it was present.
func (m *Message) Get(t RecordType) ([]byte, bool) {
	v, ok := m.Records[t]
	return v, ok
}

// RequireKey fetches a fixed-length (32-byte) key record, per spec.md
// §4.4's "every message must carry sender-key and sender-handshake-key of
// length 32" presence check.
func (m *Message) RequireKey(t RecordType) ([32]byte, error) {
	var out [32]byte
	v, ok := m.Records[t]
	if !ok {
		return out, fmt.Errorf("framing: missing required record %s", t)
	}
	if len(v) != 32 {
		return out, fmt.Errorf("framing: record %s has wrong length %d, want 32", t, len(v))
	}
	copy(out[:], v)
	return out, nil
}

// Encode serializes the message to its wire form.
func (m *Message) Encode() []byte {
	size := headerSize
	for _, v := range m.Records {
		size += 3 + len(v)
	}
	buf := make([]byte, headerSize, size)
	buf[0] = m.RequestID
	buf[1] = 0
	buf[2] = 0

	for t, v := range m.Records {
		rec := make([]byte, 3+len(v))
		rec[0] = byte(t)
		binary.LittleEndian.PutUint16(rec[1:3], uint16(len(v)))
		copy(rec[3:], v)
		buf = append(buf, rec...)
	}
	return buf
}

// Decode parses a handshake TLV message from the wire, rejecting
// duplicate record types within one message (spec.md §6).
func Decode(data []byte) (*Message, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("framing: message too short: %d bytes", len(data))
	}
	m := NewMessage(data[0])

	rest := data[headerSize:]
	for len(rest) > 0 {
		if len(rest) < 3 {
			return nil, fmt.Errorf("framing: truncated record header")
		}
		t := RecordType(rest[0])
		length := binary.LittleEndian.Uint16(rest[1:3])
		rest = rest[3:]
		if int(length) > len(rest) {
			return nil, fmt.Errorf("framing: record %s declares length %d beyond remaining %d bytes", t, length, len(rest))
		}
		if _, dup := m.Records[t]; dup {
			return nil, fmt.Errorf("framing: duplicate record type %s", t)
		}
		value := make([]byte, length)
		copy(value, rest[:length])
		m.Records[t] = value
		rest = rest[length:]
	}
	return m, nil
}
