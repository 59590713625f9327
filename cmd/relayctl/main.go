package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"passrelay/internal/platform/auth"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "relayctl",
		Short:   "relayctl - tooling for the passrelay webhook relay",
		Version: Version,
	}

	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(handshakeCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for admin.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
