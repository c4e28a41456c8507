// Package pipeline sequences the five-stage migration documented in the
// system overview: parse → validate → (dry-run) → confirm → build →
// verify → coordinate → terminate → prepare → execute.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nixpig/xenomorph/internal/config"
	"github.com/nixpig/xenomorph/internal/initsystem"
	"github.com/nixpig/xenomorph/internal/pivot"
	"github.com/nixpig/xenomorph/internal/process"
	"github.com/nixpig/xenomorph/internal/rootfs/builder"
	"github.com/nixpig/xenomorph/internal/rootfs/verify"
	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "pipeline"

// Steps are the nine numbered stages the dry-run plan enumerates, in
// execution order.
var Steps = []string{
	"1. parse configuration",
	"2. validate configuration",
	"3. confirm with the operator (skipped with --force)",
	"4. build new root from image",
	"5. verify new root",
	"6. coordinate init system into a quiescent state",
	"7. terminate running processes",
	"8. prepare mount namespace and essential submounts",
	"9. execute pivot_root and exec into the new root",
}

// Prompt reads a single confirmation line, returning true for anything
// beginning with y/Y.
func Prompt(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Continue? [y/N] ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(scanner.Text())
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// PrintPlan writes the dry-run plan without performing any of its steps.
func PrintPlan(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "xenomorph pivot plan for %s:\n", cfg.Image)
	for _, step := range Steps {
		fmt.Fprintln(out, "  "+step)
	}
}

// Run executes the full pipeline. cfg has already been validated by the
// caller. When cfg.DryRun is set, Run must not be called — PrintPlan
// alone satisfies the dry-run contract — callers enforce this at the
// command layer so Run itself never needs to special-case dry-run.
func Run(logger *slog.Logger, cfg config.Config) error {
	var cache *builder.Cache
	if cfg.CacheDir != "" {
		cache = builder.NewCache(cfg.CacheDir)
	}

	buildResult, err := builder.Build(cfg.Image, cfg.WorkDir, builder.Options{
		SkipVerify:    cfg.SkipVerify,
		VerifyDigests: !cfg.SkipVerify,
		Cache:         cache,
	})
	if err != nil {
		return err
	}
	logger.Info("build complete", "layers", buildResult.LayerCount, "size", buildResult.TotalSize)

	if !cfg.SkipVerify {
		result := verify.Verify(buildResult.RootfsPath)
		if !result.Valid {
			return xerr.New(scope, xerr.KindVerificationFailed,
				"built rootfs failed verification: "+strings.Join(result.Errors, "; "))
		}
		for _, w := range result.Warnings {
			logger.Warn("verify warning", "warning", w)
		}
	}

	if !cfg.NoInitCoord && !initsystem.SkipInContainer() {
		det := initsystem.Detect()
		logger.Info("coordinating init system", "system", det.System)
		initsystem.Coordinate(logger, det, initsystem.Options{
			Target:            initsystem.TargetRescue,
			QuiescenceTimeout: cfg.Timeout,
		})
	} else {
		logger.Info("skipping init coordination")
	}

	termOpts := process.DefaultOptions()
	termOpts.SkipEssential = true
	termResult := process.TerminateAll(logger, termOpts)
	logger.Info("terminated processes",
		"terminated", termResult.TerminatedCount,
		"killed", termResult.KilledCount,
		"stubborn", len(termResult.StubbornPIDs))

	prepResult, err := pivot.Prepare(logger, buildResult.RootfsPath, pivot.Options{
		SkipVerify:      cfg.SkipVerify,
		CreateNamespace: true,
	})
	if err != nil {
		return err
	}

	execCmd, execArgs := resolveExecTarget(cfg, buildResult.ImageConfig)

	return pivot.Execute(logger, pivot.Config{
		NewRoot:      prepResult.PreparedNewRoot,
		OldRootMount: cfg.RelativeOldRootMount(),
		ExecCmd:      execCmd,
		ExecArgs:     execArgs,
		KeepOldRoot:  cfg.KeepOldRoot,
	})
}

// resolveExecTarget picks the command to exec into after pivot: the
// explicit --exec flag wins; absent that, the image's own
// Entrypoint+Cmd; absent that, cfg's default (/bin/sh).
func resolveExecTarget(cfg config.Config, imageConfig *builder.ImageConfig) (string, []string) {
	if cfg.ExecCmd != "" && cfg.ExecCmd != "/bin/sh" {
		return cfg.ExecCmd, cfg.ExecArgs
	}

	if imageConfig != nil && (len(imageConfig.Entrypoint) > 0 || len(imageConfig.Cmd) > 0) {
		argv := append(append([]string{}, imageConfig.Entrypoint...), imageConfig.Cmd...)
		if len(argv) > 0 {
			return argv[0], argv[1:]
		}
	}

	return cfg.ExecCmd, cfg.ExecArgs
}
