package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
)

type identityFlags struct {
	network    string
	actor      string
	permission string
	name       string
}

func (f *identityFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.network, "network", "", "chain id (hex)")
	cmd.Flags().StringVar(&f.actor, "actor", "", "account name")
	cmd.Flags().StringVar(&f.permission, "permission", "active", "permission name")
	cmd.Flags().StringVar(&f.name, "name", "", "session (application) name")
	_ = cmd.MarkFlagRequired("network")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("name")
}

// session parses the identity fields into a LinkSession without a key.
func (f *identityFlags) session() (domain.LinkSession, error) {
	var s domain.LinkSession
	var err error
	if s.Network, err = domain.ParseChainID(f.network); err != nil {
		return s, err
	}
	if s.Actor, err = domain.ParseName(f.actor); err != nil {
		return s, err
	}
	if s.Permission, err = domain.ParseName(f.permission); err != nil {
		return s, err
	}
	if s.Name, err = domain.ParseName(f.name); err != nil {
		return s, err
	}
	return s, nil
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage link sessions",
	}
	cmd.AddCommand(sessionsListCmd(), sessionsAddCmd(), sessionsRemoveCmd(), sessionsClearCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show stored link sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sessions := wire.Manager.Sessions()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions.")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintf(out, "%s@%s  %-12s  chain %s  key %s (%s)  last used %s\n",
					s.Actor, s.Permission, s.Name,
					s.Network.String()[:12],
					s.PublicKey, crypto.Fingerprint(s.PublicKey),
					s.LastUsed.Time().UTC().Format(time.RFC3339),
				)
			}
			return nil
		},
	}
}

func sessionsAddCmd() *cobra.Command {
	var id identityFlags
	var publicKey string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a link session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := id.session()
			if err != nil {
				return err
			}
			pk, err := domain.ParsePublicKey(publicKey)
			if err != nil {
				return err
			}
			s = domain.NewLinkSession(s.Network, s.Actor, s.Permission, s.Name, pk, time.Now())
			if err := wire.Manager.AddSession(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s@%s for %s\n", s.Actor, s.Permission, s.Name)
			return nil
		},
	}
	id.register(cmd)
	cmd.Flags().StringVar(&publicKey, "public-key", "", "session public key (PUB_K1_ or EOS)")
	_ = cmd.MarkFlagRequired("public-key")
	return cmd
}

func sessionsRemoveCmd() *cobra.Command {
	var id identityFlags
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete a link session by identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := id.session()
			if err != nil {
				return err
			}
			if !wire.Manager.RemoveSession(s) {
				return fmt.Errorf("no session %s@%s for %s", s.Actor, s.Permission, s.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s@%s for %s\n", s.Actor, s.Permission, s.Name)
			return nil
		},
	}
	id.register(cmd)
	return cmd
}

func sessionsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every link session",
		RunE: func(cmd *cobra.Command, args []string) error {
			n := len(wire.Manager.Sessions())
			wire.Manager.ClearSessions()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d sessions\n", n)
			return nil
		},
	}
}
