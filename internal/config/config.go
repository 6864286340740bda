// Package config loads the daemon's YAML configuration file
// (SPEC_FULL.md §6), covering both the core's §6 option table and the
// ambient daemon settings (listen address, identity file, TUN device,
// metrics endpoint, peer list).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Listen        string `yaml:"listen"`
	IdentityFile  string `yaml:"identity_file"`
	TUNName       string `yaml:"tun_name"`
	TUNMTU        int    `yaml:"tun_mtu"`
	MetricsListen string `yaml:"metrics_listen"`

	Method string `yaml:"method"`

	// KeyValidSeconds etc. hold spec.md §6's option table in their YAML
	// wire units; the KeyValid, KeyRefresh, ... methods below convert them
	// to time.Duration for internal use.
	KeyValidSeconds         int `yaml:"key_valid"`
	KeyRefreshSeconds       int `yaml:"key_refresh"`
	KeyRefreshSplaySeconds  int `yaml:"key_refresh_splay"`
	ReorderTimeMillis       int `yaml:"reorder_time"`
	ReorderCount            int `yaml:"reorder_count"`
	KeepaliveIntervalMillis int `yaml:"keepalive_interval"`

	Peers []PeerConfig `yaml:"peers"`
}

// PeerConfig is one entry in the peers list (SPEC_FULL.md §6).
type PeerConfig struct {
	Name      string `yaml:"name"`
	PublicKey string `yaml:"public_key"`
	Address   string `yaml:"address"`
	Floating  bool   `yaml:"floating"`
	Dynamic   bool   `yaml:"dynamic"`
}

// Default returns a configuration with the same conservative defaults the
// teacher ships for its own agent config.
func Default() *Config {
	return &Config{
		Listen:                  "0.0.0.0:10200",
		IdentityFile:            "/etc/fhmqvtund/identity.key",
		TUNName:                 "fhmqv0",
		TUNMTU:                  1400,
		Method:                  "generic-poly1305",
		KeyValidSeconds:         60,
		KeyRefreshSeconds:       40,
		KeyRefreshSplaySeconds:  10,
		ReorderTimeMillis:       10000,
		ReorderCount:            64,
		KeepaliveIntervalMillis: 15000,
	}
}

// Load reads and parses a YAML configuration file, starting from Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the option table for values the core cannot run with.
func (c *Config) Validate() error {
	if c.KeyValidSeconds <= 0 {
		return fmt.Errorf("key_valid must be positive")
	}
	if c.KeyRefreshSeconds <= 0 || c.KeyRefreshSeconds >= c.KeyValidSeconds {
		return fmt.Errorf("key_refresh must be positive and less than key_valid")
	}
	if c.ReorderCount < 0 {
		return fmt.Errorf("reorder_count must not be negative")
	}
	if c.Method == "" {
		return fmt.Errorf("method must be set")
	}
	for i, p := range c.Peers {
		if p.PublicKey == "" {
			return fmt.Errorf("peers[%d] (%s): missing public_key", i, p.Name)
		}
		if !p.Floating && !p.Dynamic && p.Address == "" {
			return fmt.Errorf("peers[%d] (%s): fixed peer requires an address", i, p.Name)
		}
	}
	return nil
}

// KeyValid, KeyRefresh, KeyRefreshSplay, ReorderTime, KeepaliveInterval
// convert the YAML wire units into time.Duration for the core's
// method.Options and peer.Manager.
func (c *Config) KeyValid() time.Duration   { return time.Duration(c.KeyValidSeconds) * time.Second }
func (c *Config) KeyRefresh() time.Duration { return time.Duration(c.KeyRefreshSeconds) * time.Second }
func (c *Config) KeyRefreshSplay() time.Duration {
	return time.Duration(c.KeyRefreshSplaySeconds) * time.Second
}
func (c *Config) ReorderTime() time.Duration {
	return time.Duration(c.ReorderTimeMillis) * time.Millisecond
}
func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.KeepaliveIntervalMillis) * time.Millisecond
}
