package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or load storage and print the channel identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := wire.Manager
			out := cmd.OutOrStdout()
			if wire.Created {
				fmt.Fprintf(out, "Storage created at %s\n", wire.Sink.Path())
			} else {
				fmt.Fprintf(out, "Storage loaded from %s\n", wire.Sink.Path())
			}
			fmt.Fprintf(out, "Link ID:     %s\n", m.LinkID())
			fmt.Fprintf(out, "Channel:     %s\n", m.ChannelURL())
			fmt.Fprintf(out, "Request key: %s\n", m.RequestPublicKey())
			fmt.Fprintf(out, "Sessions:    %d\n", len(m.Sessions()))
			return nil
		},
	}
}
