package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixpig/xenomorph/internal/config"
	"github.com/nixpig/xenomorph/internal/logging"
	"github.com/nixpig/xenomorph/internal/pipeline"
	"github.com/nixpig/xenomorph/internal/privilege"
)

func pivotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pivot <image> [flags] [-- exec args...]",
		Short:   "Replace the running root filesystem with one built from an image",
		Example: "  xenomorph pivot alpine:latest --exec /bin/sh --force",
		Args:    cobra.MinimumNArgs(0),
		RunE:    runPivot,
	}

	defaults := config.Defaults()

	cmd.Flags().String("image", "", "image reference (alternative to the positional argument)")
	cmd.Flags().String("exec", defaults.ExecCmd, "post-pivot executable")
	cmd.Flags().String("keep-old-root", defaults.OldRootMount, "absolute mount point for the old root")
	cmd.Flags().Bool("no-keep-old-root", false, "tear down the old root instead of leaving it mounted")
	cmd.Flags().BoolP("force", "f", false, "skip the interactive confirmation prompt")
	cmd.Flags().Duration("timeout", defaults.Timeout, "deadline for service shutdown and coordinator quiescence")
	cmd.Flags().Bool("no-init-coord", false, "skip the init coordinator entirely")
	cmd.Flags().Bool("skip-verify", false, "skip rootfs verification")
	cmd.Flags().String("cache-dir", defaults.CacheDir, "OCI layer cache root")
	cmd.Flags().String("work-dir", defaults.WorkDir, "directory where the built rootfs is materialized")
	cmd.Flags().BoolP("verbose", "v", false, "log at debug level")
	cmd.Flags().BoolP("dry-run", "n", false, "print the planned steps and exit without side effects")

	return cmd
}

func runPivot(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		pipeline.PrintPlan(cmd.OutOrStdout(), cfg)
		return nil
	}

	logger := logging.Init(cfg.Verbose)

	if err := privilege.Check(); err != nil {
		return err
	}

	if !cfg.Force {
		if !pipeline.Prompt(cmd.InOrStdin(), cmd.OutOrStdout()) {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	return pipeline.Run(logger, cfg)
}

func configFromFlags(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Defaults()

	image, _ := cmd.Flags().GetString("image")
	if image == "" && len(args) > 0 {
		image = args[0]
	}
	cfg.Image = image

	if len(args) > 1 {
		cfg.ExecArgs = args[1:]
	}

	cfg.ExecCmd, _ = cmd.Flags().GetString("exec")
	cfg.OldRootMount, _ = cmd.Flags().GetString("keep-old-root")

	noKeepOldRoot, _ := cmd.Flags().GetBool("no-keep-old-root")
	cfg.KeepOldRoot = !noKeepOldRoot

	cfg.Force, _ = cmd.Flags().GetBool("force")
	cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	cfg.NoInitCoord, _ = cmd.Flags().GetBool("no-init-coord")
	cfg.SkipVerify, _ = cmd.Flags().GetBool("skip-verify")
	cfg.CacheDir, _ = cmd.Flags().GetString("cache-dir")
	cfg.WorkDir, _ = cmd.Flags().GetString("work-dir")
	cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	cfg.DryRun, _ = cmd.Flags().GetBool("dry-run")

	return cfg, nil
}
