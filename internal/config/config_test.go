package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Method != "generic-poly1305" {
		t.Errorf("Method = %s, want generic-poly1305", cfg.Method)
	}
	if cfg.KeyValidSeconds != 60 {
		t.Errorf("KeyValidSeconds = %d, want 60", cfg.KeyValidSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() failed Validate(): %v", err)
	}
}

func TestLoadValidConfig(t *testing.T) {
	yamlConfig := `
listen: "0.0.0.0:10200"
identity_file: "/tmp/identity.key"
tun_name: "fhmqv0"
method: "composed-aes128-ctr-poly1305"
key_valid: 60
key_refresh: 40
key_refresh_splay: 10
reorder_time: 10000
reorder_count: 64
keepalive_interval: 15000
peers:
  - name: office
    public_key: "aabbccdd"
    address: "198.51.100.4:10200"
  - name: roaming
    public_key: "eeff0011"
    floating: true
`
	dir := t.TempDir()
	path := filepath.Join(dir, "fhmqvtund.yaml")
	if err := os.WriteFile(path, []byte(yamlConfig), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Peers) != 2 {
		t.Fatalf("Peers = %d entries, want 2", len(cfg.Peers))
	}
	if cfg.Peers[0].Address != "198.51.100.4:10200" {
		t.Errorf("Peers[0].Address = %s, want 198.51.100.4:10200", cfg.Peers[0].Address)
	}
	if !cfg.Peers[1].Floating {
		t.Error("Peers[1].Floating = false, want true")
	}
	if cfg.KeyValid() != 60*time.Second {
		t.Errorf("KeyValid() = %v, want 60s", cfg.KeyValid())
	}
}

func TestValidateRejectsFixedPeerWithoutAddress(t *testing.T) {
	cfg := Default()
	cfg.Peers = []PeerConfig{{Name: "broken", PublicKey: "aabb"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a fixed peer with no address")
	}
}

func TestValidateRejectsKeyRefreshNotLessThanKeyValid(t *testing.T) {
	cfg := Default()
	cfg.KeyRefreshSeconds = cfg.KeyValidSeconds
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted key_refresh >= key_valid")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() succeeded on a missing file")
	}
}
