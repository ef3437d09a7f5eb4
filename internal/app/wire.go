package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"linkmgr/internal/logging"
	"linkmgr/internal/services/manager"
	"linkmgr/internal/store"
)

// Wire bundles the logger, sink, host and manager for the CLI.
type Wire struct {
	Config  Config
	Logger  zerolog.Logger
	Sink    *store.FileSink
	Host    *Host
	Manager *manager.Manager
	// Created is true when no storage existed and a fresh one was written.
	Created bool
}

// NewWire constructs the dependency graph from cfg, restoring the manager
// from the sink when storage exists.
func NewWire(cfg Config) (*Wire, error) {
	logger, err := logging.New("linkmgr", cfg.LogLevel, nil)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	sink := store.NewFileSink(cfg.Home, cfg.Passphrase)
	host := NewHost(sink, logger)

	mcfg := manager.Config{
		Handler:          host,
		LinkURL:          cfg.LinkURL,
		Scheme:           cfg.Scheme,
		Logger:           logger,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		BackoffCap:       cfg.BackoffCap,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	raw, ok, err := sink.LoadStorage()
	if err != nil {
		return nil, err
	}
	var m *manager.Manager
	if ok {
		m, err = manager.Restore(raw, mcfg)
	} else {
		m, err = manager.New(mcfg)
	}
	if err != nil {
		return nil, err
	}

	return &Wire{
		Config:  cfg,
		Logger:  logger,
		Sink:    sink,
		Host:    host,
		Manager: m,
		Created: !ok,
	}, nil
}
