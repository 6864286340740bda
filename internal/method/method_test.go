package method

import (
	"bytes"
	"testing"
	"time"
)

func testOptions(now time.Time) Options {
	return Options{
		KeyValid:     60 * time.Second,
		RefreshIn:    40 * time.Second,
		ReorderTime:  10 * time.Second,
		ReorderCount: 64,
		Clock:        func() time.Time { return now },
	}
}

func roundTrip(t *testing.T, m Method) {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	var secret [32]byte
	for i := range secret {
		secret[i] = byte(i)
	}

	sender := m.SessionInit(secret, true, now, testOptions(now))
	receiver := m.SessionInit(secret, false, now, testOptions(now))

	plaintext := []byte("hello session")
	ciphertext, err := sender.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("%s: Encrypt() error = %v", m.Name(), err)
	}
	got, err := receiver.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("%s: Decrypt() error = %v", m.Name(), err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("%s: round-trip = %q, want %q", m.Name(), got, plaintext)
	}
}

func TestConstructionsRoundTrip(t *testing.T) {
	for _, m := range []Method{
		Null{},
		GenericPoly1305{},
		GenericGMAC{},
		ComposedAES128CTRPoly1305{},
	} {
		t.Run(m.Name(), func(t *testing.T) { roundTrip(t, m) })
	}
}

func TestAEADMethodsRejectTamperedCiphertext(t *testing.T) {
	for _, m := range []Method{GenericPoly1305{}, GenericGMAC{}, ComposedAES128CTRPoly1305{}} {
		t.Run(m.Name(), func(t *testing.T) {
			now := time.Unix(1_700_000_000, 0)
			var secret [32]byte
			sender := m.SessionInit(secret, true, now, testOptions(now))
			receiver := m.SessionInit(secret, false, now, testOptions(now))

			ciphertext, err := sender.Encrypt([]byte("payload"))
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			ciphertext[len(ciphertext)-1] ^= 0xFF

			if _, err := receiver.Decrypt(ciphertext); err == nil {
				t.Error("Decrypt() accepted a tampered ciphertext")
			}
		})
	}
}

func TestDecryptRejectsReplay(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var secret [32]byte
	sender := Null{}.SessionInit(secret, true, now, testOptions(now))
	receiver := Null{}.SessionInit(secret, false, now, testOptions(now))

	ciphertext, err := sender.Encrypt([]byte("one"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := receiver.Decrypt(ciphertext); err != nil {
		t.Fatalf("first Decrypt() error = %v", err)
	}
	if _, err := receiver.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() accepted a replayed nonce")
	}
}

func TestRegistryFallsBackPastUnavailableVariant(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	impl, err := r.Lookup(UMACAES128Name)
	if err == nil {
		t.Fatalf("Lookup(umac-aes128) = %v, want error (no available variant)", impl)
	}

	impl, err = r.Lookup(NullName)
	if err != nil {
		t.Fatalf("Lookup(null) error = %v", err)
	}
	if impl.Name() != NullName {
		t.Errorf("Lookup(null) = %s, want %s", impl.Name(), NullName)
	}
}

func TestRegistryOverride(t *testing.T) {
	r := NewRegistry()
	r.Register("dual", Null{}, func() bool { return false })
	r.Register("dual", GenericPoly1305{}, nil)

	if _, err := r.Lookup("dual"); err != nil {
		t.Fatalf("Lookup(dual) error = %v, want fallback to second variant", err)
	}

	r.Override("dual", 0)
	if impl, err := r.Lookup("dual"); err != nil || impl.Name() != NullName {
		t.Error("Lookup(dual) should resolve to the overridden variant, bypassing its probe")
	}
}
