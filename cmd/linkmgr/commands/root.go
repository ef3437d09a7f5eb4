package commands

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linkmgr/internal/app"
)

// PassphraseEnv supplies the storage passphrase when -p is not given.
const PassphraseEnv = "LINKMGR_PASSPHRASE"

var (
	home       string
	configPath string
	passphrase string
	linkURL    string
	logLevel   string

	wire *app.Wire
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "linkmgr",
		Short:        "Receive sealed signing requests over a relay channel",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.linkmgr)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/linkmgr.toml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase sealing storage (or $"+PassphraseEnv+")")
	root.PersistentFlags().StringVar(&linkURL, "link-url", "", "relay host")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level")

	root.AddCommand(initCmd(), sessionsCmd(), listenCmd())
	return root
}

// resolveConfig layers defaults, the config file and flags.
func resolveConfig(cmd *cobra.Command) (app.Config, error) {
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return app.Config{}, err
		}
		home = filepath.Join(dir, ".linkmgr")
	}
	cfg := app.DefaultConfig(home)

	path := configPath
	if path == "" {
		path = app.DefaultConfigPath(home)
	}
	loaded, err := app.LoadConfig(path, cfg)
	switch {
	case err == nil:
		cfg = loaded
	case configPath == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("link-url") {
		cfg.LinkURL = linkURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	cfg.Passphrase = passphrase
	if !flags.Changed("passphrase") {
		cfg.Passphrase = os.Getenv(PassphraseEnv)
	}
	return cfg, nil
}
