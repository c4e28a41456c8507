// Package cli wires the Cobra command tree: persistent flags for
// logging, PersistentPreRunE installing a file logger when requested.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixpig/xenomorph/internal/logging"
)

// Version is the xenomorph release string, printed by `version`/`--version`.
const Version = "0.1.0"

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "xenomorph",
		Short:        "Replace a running root filesystem with one built from an OCI image.",
		Long:         "xenomorph pivots a live Linux system onto a root filesystem materialized from an OCI image, taking over PID 1's role without a reboot.",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logfile, _ := cmd.Flags().GetString("log")
			debug, _ := cmd.Flags().GetBool("debug")

			if logfile != "" {
				logger, err := logging.NewFileLogger(logfile, debug)
				if err != nil {
					return fmt.Errorf("initialise logging: %w", err)
				}
				cmd.Root().SetErr(logging.NewErrorWriter(logger))
			}

			return nil
		},
	}

	cmd.AddCommand(pivotCmd(), versionCmd())

	cmd.PersistentFlags().StringP("log", "l", "", "destination to write logs (default is stderr)")
	cmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
	cmd.Flags().BoolP("version", "V", false, "print version and exit")

	cmd.CompletionOptions.HiddenDefaultCmd = true

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "xenomorph "+Version)
			return nil
		},
	}
}
