package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"linkmgr/internal/relay"
	"linkmgr/internal/services/manager"
	"linkmgr/internal/store"
)

// ConfigFileName is looked up in Home when no config path is given.
const ConfigFileName = "linkmgr.toml"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string // state directory, e.g. $HOME/.linkmgr
	Passphrase string // seals storage.json when set

	LinkURL          string // relay host, e.g. cb.anchor.link
	Scheme           string // channel URL scheme
	HeartbeatTimeout time.Duration
	BackoffCap       time.Duration
	HandshakeTimeout time.Duration

	LogLevel    string
	MetricsAddr string // serve /metrics here when non-empty
}

// DefaultConfig returns the built-in settings for home.
func DefaultConfig(home string) Config {
	return Config{
		Home:             home,
		LinkURL:          store.DefaultLinkURL,
		Scheme:           manager.DefaultScheme,
		HeartbeatTimeout: relay.DefaultHeartbeatTimeout,
		BackoffCap:       relay.DefaultBackoffCap,
		HandshakeTimeout: relay.DefaultHandshakeTimeout,
		LogLevel:         "info",
	}
}

// DefaultConfigPath returns home/linkmgr.toml.
func DefaultConfigPath(home string) string { return filepath.Join(home, ConfigFileName) }

type fileConfig struct {
	LinkURL          string `toml:"link_url"`
	Scheme           string `toml:"scheme"`
	HeartbeatTimeout string `toml:"heartbeat_timeout"`
	BackoffCap       string `toml:"backoff_cap"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	LogLevel         string `toml:"log_level"`
	MetricsAddr      string `toml:"metrics_addr"`
}

// LoadConfig overlays the keys defined in the TOML file at path onto cfg.
// A missing file is reported as an error wrapping fs.ErrNotExist.
func LoadConfig(path string, cfg Config) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("link_url") {
		if v := strings.TrimSpace(raw.LinkURL); v != "" {
			cfg.LinkURL = v
		}
	}
	if meta.IsDefined("scheme") {
		if v := strings.TrimSpace(raw.Scheme); v != "" {
			cfg.Scheme = v
		}
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"heartbeat_timeout", raw.HeartbeatTimeout, &cfg.HeartbeatTimeout},
		{"backoff_cap", raw.BackoffCap, &cfg.BackoffCap},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
	} {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return cfg, fmt.Errorf("parse %s: must be positive", d.key)
		}
		*d.dst = v
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	return cfg, nil
}
