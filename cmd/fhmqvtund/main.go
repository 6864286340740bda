// Command fhmqvtund runs the ec25519-fhmqvc tunnel daemon: it loads its
// identity and configuration, binds a UDP socket and a TUN device, and
// drives the single-threaded event loop in internal/daemon until it
// receives a termination signal.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fhmqvtun/fhmqvtund/internal/config"
	"github.com/fhmqvtun/fhmqvtund/internal/daemon"
	"github.com/fhmqvtun/fhmqvtund/internal/handshake"
	"github.com/fhmqvtun/fhmqvtund/internal/identity"
	"github.com/fhmqvtun/fhmqvtund/internal/metrics"
	"github.com/fhmqvtun/fhmqvtund/internal/method"
	"github.com/fhmqvtun/fhmqvtund/internal/peer"
	"github.com/fhmqvtun/fhmqvtund/internal/transport"
	"github.com/fhmqvtun/fhmqvtund/internal/tundev"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:     "fhmqvtund",
		Short:   "ec25519-fhmqvc tunnel daemon",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "/etc/fhmqvtund/fhmqvtund.yaml", "path to configuration file")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logLevelName string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevelName)}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	id, err := identity.LoadOrGenerate(cfg.IdentityFile)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	log.Info("identity loaded", "public", id.PublicHex())

	registry := method.NewRegistry()
	method.RegisterDefaults(registry)
	if _, err := registry.Lookup(cfg.Method); err != nil {
		return fmt.Errorf("resolve method %q: %w", cfg.Method, err)
	}

	peers := peer.NewManager(id.Public)
	for _, pc := range cfg.Peers {
		p, err := peerFromConfig(pc)
		if err != nil {
			log.Error("invalid peer configuration, skipping", "peer", pc.Name, "err", err)
			continue
		}
		peers.Add(p)
	}

	reg := prometheus.DefaultRegisterer
	sink := metrics.New(reg)
	if cfg.MetricsListen != "" {
		go func() {
			log.Info("metrics endpoint listening", "addr", cfg.MetricsListen)
			if err := http.ListenAndServe(cfg.MetricsListen, metrics.Handler()); err != nil {
				log.Error("metrics endpoint failed", "err", err)
			}
		}()
	}

	dctx := &daemon.Context{
		Identity:          id,
		Pool:              handshake.NewPool(),
		Registry:          registry,
		Peers:             peers,
		Admit:             peer.NewAdmissionPolicy(50, 100, 5*time.Minute),
		Metrics:           sink,
		Log:               log,
		MethodName:        cfg.Method,
		KeyValid:          cfg.KeyValid(),
		KeyRefresh:        cfg.KeyRefresh(),
		KeyRefreshSplay:   cfg.KeyRefreshSplay(),
		ReorderTime:       cfg.ReorderTime(),
		ReorderCount:      cfg.ReorderCount,
		KeepaliveInterval: cfg.KeepaliveInterval(),
	}

	sock, err := transport.Listen(cfg.Listen)
	if err != nil {
		return fmt.Errorf("bind socket: %w", err)
	}
	log.Info("listening", "addr", sock.LocalAddr())

	tun, err := tundev.New(cfg.TUNName)
	if err != nil {
		log.Warn("TUN device unavailable, running without one", "err", err)
		tun = nil
	} else {
		if err := tun.SetMTU(cfg.TUNMTU); err != nil {
			log.Warn("set TUN MTU failed", "err", err)
		}
		log.Info("TUN device ready", "name", tun.Name())
	}

	d := daemon.New(dctx, sock, tun)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		d.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutting down")
	d.Close()
	return nil
}

func peerFromConfig(pc config.PeerConfig) (*peer.Peer, error) {
	raw, err := decodeHexKey(pc.PublicKey)
	if err != nil {
		return nil, err
	}
	return &peer.Peer{
		Name:              pc.Name,
		PublicKey:         raw,
		Floating:          pc.Floating,
		Dynamic:           pc.Dynamic,
		ConfiguredAddress: pc.Address,
	}, nil
}

func decodeHexKey(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex public key: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("public key must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
