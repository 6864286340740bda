package transport

import (
	"testing"
	"time"
)

func TestSendToAndReadFromLoopback(t *testing.T) {
	server, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer server.Close()

	client, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer client.Close()

	if err := client.SendTo([]byte("hello"), server.LocalAddr().String()); err != nil {
		t.Fatalf("SendTo() error = %v", err)
	}

	buf := make([]byte, 64)
	server.conn.SetReadDeadline(timeInFuture())
	n, from, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("ReadFrom() payload = %q, want %q", buf[:n], "hello")
	}
	if from == "" {
		t.Error("ReadFrom() returned empty source address")
	}
}

func TestSendToAfterCloseFails(t *testing.T) {
	tr, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	tr.Close()
	if err := tr.SendTo([]byte("x"), "127.0.0.1:1"); err == nil {
		t.Error("SendTo() after Close() should fail")
	}
}

func timeInFuture() (t time.Time) {
	return time.Now().Add(5 * time.Second)
}
