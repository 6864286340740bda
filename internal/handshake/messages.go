package handshake

import (
	"fmt"

	"github.com/fhmqvtun/fhmqvtund/internal/framing"
)

// Type identifies which of the three FHMQV messages a TLV packet carries.
type Type byte

const (
	TypeInit    Type = 1
	TypeRespond Type = 2
	TypeFinish  Type = 3
)

// ProtocolName is advertised in every message's protocol-name record, for
// diagnostics only — this repository does not reject on mismatch, since
// spec.md names the record without specifying negotiation behavior.
const ProtocolName = "ec25519-fhmqvc"

// Init is the parsed, presence-checked content of a Type 1 message.
type Init struct {
	RequestID byte
	SenderKey [32]byte // A
	// RecipientKey is nil when the responder's identity is not yet known
	// (spec.md §4.4: "optional if the responder's identity is not yet
	// known; then the message is broadcast-to-address").
	RecipientKey       *[32]byte
	SenderHandshakeKey [32]byte // X
}

// ParseInit extracts and presence-checks a Type 1 message (spec.md §4.4:
// "every message must carry sender-key and sender-handshake-key of
// length 32").
func ParseInit(msg *framing.Message) (*Init, error) {
	A, err := msg.RequireKey(framing.RecordSenderKey)
	if err != nil {
		return nil, err
	}
	X, err := msg.RequireKey(framing.RecordSenderHandshakeKey)
	if err != nil {
		return nil, err
	}
	in := &Init{RequestID: msg.RequestID, SenderKey: A, SenderHandshakeKey: X}
	if raw, ok := msg.Get(framing.RecordRecipientKey); ok {
		if len(raw) != 32 {
			return nil, fmt.Errorf("handshake: recipient-key has wrong length %d, want 32", len(raw))
		}
		var B [32]byte
		copy(B[:], raw)
		in.RecipientKey = &B
	}
	return in, nil
}

// BuildInit assembles a Type 1 message. recipientKey may be nil for a
// broadcast-to-address message.
func BuildInit(requestID byte, senderKey, senderHandshakeKey [32]byte, recipientKey *[32]byte) *framing.Message {
	m := framing.NewMessage(requestID)
	m.Set(framing.RecordHandshakeType, []byte{byte(TypeInit)})
	m.Set(framing.RecordProtocolName, []byte(ProtocolName))
	m.Set(framing.RecordSenderKey, senderKey[:])
	m.Set(framing.RecordSenderHandshakeKey, senderHandshakeKey[:])
	if recipientKey != nil {
		m.Set(framing.RecordRecipientKey, recipientKey[:])
	}
	return m
}

// Respond is the parsed, presence-checked content of a Type 2 message.
type Respond struct {
	RequestID             byte
	SenderKey             [32]byte // B (responder's long-term key)
	RecipientKey          [32]byte // A (initiator's long-term key)
	SenderHandshakeKey    [32]byte // Y (responder's ephemeral)
	RecipientHandshakeKey [32]byte // X (echoed initiator ephemeral)
	Tag                   [32]byte // T
}

// ParseRespond extracts and presence-checks a Type 2 message (spec.md
// §4.4: Types 2 and 3 additionally carry recipient-key,
// recipient-handshake-key, and T, each of length 32).
func ParseRespond(msg *framing.Message) (*Respond, error) {
	A, err := msg.RequireKey(framing.RecordSenderKey)
	if err != nil {
		return nil, err
	}
	B, err := msg.RequireKey(framing.RecordRecipientKey)
	if err != nil {
		return nil, err
	}
	Y, err := msg.RequireKey(framing.RecordSenderHandshakeKey)
	if err != nil {
		return nil, err
	}
	X, err := msg.RequireKey(framing.RecordRecipientHandshakeKey)
	if err != nil {
		return nil, err
	}
	T, err := msg.RequireKey(framing.RecordTag)
	if err != nil {
		return nil, err
	}
	return &Respond{
		RequestID:             msg.RequestID,
		SenderKey:             A,
		RecipientKey:          B,
		SenderHandshakeKey:    Y,
		RecipientHandshakeKey: X,
		Tag:                   T,
	}, nil
}

// BuildRespond assembles a Type 2 message: the responder's key B as
// sender-key, the initiator's key A as recipient-key, then Y, X, T.
func BuildRespond(requestID byte, senderKey, recipientKey, senderHandshakeKey, recipientHandshakeKey, tag [32]byte) *framing.Message {
	m := framing.NewMessage(requestID)
	m.Set(framing.RecordHandshakeType, []byte{byte(TypeRespond)})
	m.Set(framing.RecordProtocolName, []byte(ProtocolName))
	m.Set(framing.RecordSenderKey, senderKey[:])
	m.Set(framing.RecordRecipientKey, recipientKey[:])
	m.Set(framing.RecordSenderHandshakeKey, senderHandshakeKey[:])
	m.Set(framing.RecordRecipientHandshakeKey, recipientHandshakeKey[:])
	m.Set(framing.RecordTag, tag[:])
	return m
}

// Finish is the parsed, presence-checked content of a Type 3 message. Its
// shape is identical to Respond's — spec.md §9 notes Type 3 reuses Type
// 2's tag shape rather than sending a different one.
type Finish struct {
	RequestID             byte
	SenderKey             [32]byte // A
	RecipientKey          [32]byte // B
	SenderHandshakeKey    [32]byte // X
	RecipientHandshakeKey [32]byte // Y
	Tag                   [32]byte // T'
}

// ParseFinish extracts and presence-checks a Type 3 message.
func ParseFinish(msg *framing.Message) (*Finish, error) {
	A, err := msg.RequireKey(framing.RecordSenderKey)
	if err != nil {
		return nil, err
	}
	B, err := msg.RequireKey(framing.RecordRecipientKey)
	if err != nil {
		return nil, err
	}
	X, err := msg.RequireKey(framing.RecordSenderHandshakeKey)
	if err != nil {
		return nil, err
	}
	Y, err := msg.RequireKey(framing.RecordRecipientHandshakeKey)
	if err != nil {
		return nil, err
	}
	T, err := msg.RequireKey(framing.RecordTag)
	if err != nil {
		return nil, err
	}
	return &Finish{
		RequestID:             msg.RequestID,
		SenderKey:             A,
		RecipientKey:          B,
		SenderHandshakeKey:    X,
		RecipientHandshakeKey: Y,
		Tag:                   T,
	}, nil
}

// BuildFinish assembles a Type 3 message: A, B, X, Y, T'.
func BuildFinish(requestID byte, senderKey, recipientKey, senderHandshakeKey, recipientHandshakeKey, tag [32]byte) *framing.Message {
	m := framing.NewMessage(requestID)
	m.Set(framing.RecordHandshakeType, []byte{byte(TypeFinish)})
	m.Set(framing.RecordProtocolName, []byte(ProtocolName))
	m.Set(framing.RecordSenderKey, senderKey[:])
	m.Set(framing.RecordRecipientKey, recipientKey[:])
	m.Set(framing.RecordSenderHandshakeKey, senderHandshakeKey[:])
	m.Set(framing.RecordRecipientHandshakeKey, recipientHandshakeKey[:])
	m.Set(framing.RecordTag, tag[:])
	return m
}

// ParseType reads the handshake-type record common to every message.
func ParseType(msg *framing.Message) (Type, error) {
	raw, ok := msg.Get(framing.RecordHandshakeType)
	if !ok || len(raw) != 1 {
		return 0, fmt.Errorf("handshake: missing or malformed handshake-type record")
	}
	switch Type(raw[0]) {
	case TypeInit, TypeRespond, TypeFinish:
		return Type(raw[0]), nil
	default:
		return 0, fmt.Errorf("handshake: unknown handshake type %d", raw[0])
	}
}
