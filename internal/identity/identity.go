// Package identity manages the daemon's long-term Curve25519 key pair:
// generation, the on-disk file format spec.md §6 defines, and display.
package identity

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fhmqvtun/fhmqvtund/internal/primitive"
)

// Identity is a long-term (process-lifetime) key pair.
type Identity struct {
	Secret [32]byte // sanitized per RFC 7748
	Public [32]byte
}

// Generate mints a fresh identity from the blocking CSPRNG, per spec.md
// §6 ("having read 32 bytes from the platform's blocking CSPRNG source").
func Generate() (*Identity, error) {
	raw, err := primitive.CSPRNG(32, true)
	if err != nil {
		return nil, fmt.Errorf("identity: generate secret: %w", err)
	}
	var secret [32]byte
	copy(secret[:], raw)
	return FromSecret(secret), nil
}

// FromSecret derives the full identity (sanitizing the secret first) from
// a raw 32-byte scalar.
func FromSecret(raw [32]byte) *Identity {
	secret := primitive.SecretSanitize(raw)
	pub := primitive.PointEncode(primitive.ScalarBaseMult(primitive.ScalarFromSanitized(secret)))
	return &Identity{Secret: secret, Public: pub}
}

// Load reads an identity from the file format spec.md §6 defines: a line
// "secret <64 lowercase hex digits>" (hex is case-insensitive on input).
func Load(path string) (*Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("identity: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[0] != "secret" {
			continue
		}
		raw, err := hex.DecodeString(strings.ToLower(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("identity: %s: invalid hex: %w", path, err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("identity: %s: secret must be 32 bytes, got %d", path, len(raw))
		}
		var secret [32]byte
		copy(secret[:], raw)
		return FromSecret(secret), nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}
	return nil, fmt.Errorf("identity: %s: no \"secret\" line found", path)
}

// Save writes the identity to path in spec.md §6's file format.
func (id *Identity) Save(path string) error {
	line := fmt.Sprintf("secret %s\n", hex.EncodeToString(id.Secret[:]))
	return os.WriteFile(path, []byte(line), 0600)
}

// LoadOrGenerate loads path if it exists, generating and persisting a
// fresh identity otherwise.
func LoadOrGenerate(path string) (*Identity, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	id, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := id.Save(path); err != nil {
		return nil, fmt.Errorf("identity: save %s: %w", path, err)
	}
	return id, nil
}

// SecretHex and PublicHex render the key pair as the hex strings the
// key-generation command prints (spec.md §6).
func (id *Identity) SecretHex() string { return hex.EncodeToString(id.Secret[:]) }
func (id *Identity) PublicHex() string { return hex.EncodeToString(id.Public[:]) }

// String renders a short identity summary for logging.
func (id *Identity) String() string {
	return fmt.Sprintf("identity{public=%s...}", id.PublicHex()[:16])
}
