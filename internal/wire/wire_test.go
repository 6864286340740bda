package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello")
	data := Encode(PacketData, [2]byte{0xAA, 0xBB}, payload)

	gotType, gotReserved, gotPayload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if gotType != PacketData {
		t.Errorf("type = %v, want PacketData", gotType)
	}
	if gotReserved != [2]byte{0xAA, 0xBB} {
		t.Errorf("reserved = %v, want {0xAA, 0xBB}", gotReserved)
	}
	if string(gotPayload) != "hello" {
		t.Errorf("payload = %q, want %q", gotPayload, "hello")
	}
}

func TestDecodeRejectsShortDatagram(t *testing.T) {
	if _, _, _, err := Decode([]byte{0, 1}); err == nil {
		t.Error("Decode() should reject a 2-byte datagram")
	}
}

func TestDecodeUnknownType(t *testing.T) {
	data := Encode(PacketType(0x7F), [2]byte{}, nil)
	gotType, _, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if gotType != PacketType(0x7F) {
		t.Errorf("type = %v, want 0x7F", gotType)
	}
}
