package pivot

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nixpig/xenomorph/internal/mount"
	"github.com/nixpig/xenomorph/internal/syscalls"
	"github.com/nixpig/xenomorph/internal/xerr"
)

const executeScope = "execute"

// Config is Execute's input.
type Config struct {
	NewRoot      string
	OldRootMount string // relative to NewRoot, e.g. "mnt/oldroot"
	ExecCmd      string
	ExecArgs     []string
	KeepOldRoot  bool
}

// Execute commits the pivot: once pivot_root (or its switch_root
// fallback) succeeds there is no rollback; the only recovery is reboot.
func Execute(logger *slog.Logger, cfg Config) error {
	logger = logger.With(slog.String("scope", executeScope))

	info, err := os.Stat(cfg.NewRoot)
	if err != nil || !info.IsDir() {
		return xerr.New(executeScope, xerr.KindNewRootNotFound, "new root is not a directory: "+cfg.NewRoot)
	}

	oldRootAbs := filepath.Join(cfg.NewRoot, cfg.OldRootMount)
	if err := os.MkdirAll(oldRootAbs, 0o700); err != nil {
		return xerr.Wrap(executeScope, xerr.KindOldRootCreationFailed, "create old root mount point", err)
	}

	if err := mount.MakePrivate("/"); err != nil {
		logger.Warn("make / private failed, continuing", "err", err)
	}
	if err := mount.MakePrivate(cfg.NewRoot); err != nil {
		logger.Warn("make new root private failed, continuing", "err", err)
	}

	if err := syscalls.PivotRoot(cfg.NewRoot, oldRootAbs); err != nil {
		logger.Warn("pivot_root failed, falling back to switch_root", "err", err)
		return executeSwitchRootFallback(logger, cfg)
	}

	if err := syscalls.Chdir("/"); err != nil {
		return xerr.Wrap(executeScope, xerr.KindChdirFailed, "chdir to new root", err)
	}

	if !cfg.KeepOldRoot {
		if err := GracefulCleanupOldRoot(logger, filepath.Join("/", cfg.OldRootMount), GracefulCleanupMaxRetries); err != nil {
			logger.Warn("old root cleanup failed, continuing", "err", err)
		}
	}

	return execInto(cfg)
}

// executeSwitchRootFallback mirrors busybox switch_root for the case
// where pivot_root fails outright — typically because new_root is the
// initramfs itself, which cannot become the put_old of its own
// pivot_root call. It is semantically weaker: the old root is not
// preserved under OldRootMount.
func executeSwitchRootFallback(logger *slog.Logger, cfg Config) error {
	if err := syscalls.Chdir(cfg.NewRoot); err != nil {
		return xerr.Wrap(executeScope, xerr.KindChdirFailed, "chdir to new root for switch_root", err)
	}

	if err := mount.Move(".", "/"); err != nil {
		return xerr.Wrap(executeScope, xerr.KindPivotRootFailed, "move new root onto /", err)
	}

	if err := syscalls.Chroot("."); err != nil {
		return xerr.Wrap(executeScope, xerr.KindChrootFailed, "chroot into new root", err)
	}

	if err := syscalls.Chdir("/"); err != nil {
		return xerr.Wrap(executeScope, xerr.KindChdirFailed, "chdir to / after chroot", err)
	}

	return execInto(cfg)
}

// execInto execve's into the configured command. On success this call
// never returns; if it returns, the exec itself failed.
func execInto(cfg Config) error {
	if cfg.ExecCmd == "" {
		return nil
	}

	path, err := resolveExecPath(cfg.ExecCmd)
	if err != nil {
		return xerr.Wrap(executeScope, xerr.KindExecFailed, "resolve exec path", err)
	}

	argv := append([]string{cfg.ExecCmd}, cfg.ExecArgs...)
	err = syscall.Exec(path, argv, os.Environ())
	return xerr.Wrap(executeScope, xerr.KindExecFailed, "execve into "+cfg.ExecCmd, err)
}

func resolveExecPath(cmd string) (string, error) {
	if strings.Contains(cmd, "/") {
		return cmd, nil
	}
	for _, dir := range []string{"/usr/bin", "/bin", "/usr/sbin", "/sbin"} {
		candidate := filepath.Join(dir, cmd)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return cmd, nil
}
