package pivot

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nixpig/xenomorph/internal/mount"
)

const cleanupScope = "cleanup"
const cleanupPollInterval = 500 * time.Millisecond

// GracefulCleanupMaxRetries bounds GracefulCleanupOldRoot's poll loop:
// at cleanupPollInterval apart, this is a 5s ceiling before it forces
// the detach regardless.
const GracefulCleanupMaxRetries = 10

// CleanupOldRoot detaches every mount still rooted under oldRootPath,
// deepest first, then removes the directory itself. oldRootPath must be
// an absolute path under the (new, already pivoted-to) root.
func CleanupOldRoot(logger *slog.Logger, oldRootPath string) error {
	logger = logger.With(slog.String("scope", cleanupScope))

	targets, err := mountsUnder(oldRootPath)
	if err != nil {
		logger.Warn("read /proc/mounts failed, continuing", "err", err)
		targets = nil
	}

	sort.Slice(targets, func(i, j int) bool {
		return len(targets[i]) > len(targets[j])
	})

	for _, target := range targets {
		if err := mount.UmountDetach(target); err != nil {
			logger.Warn("lazy unmount failed, continuing", "target", target, "err", err)
		}
	}

	if err := os.Remove(oldRootPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove old root directory failed", "path", oldRootPath, "err", err)
	}

	return nil
}

// GracefulCleanupOldRoot polls /proc/*/root until no process has its
// root symlink pointing under oldRootPath, for up to maxRetries
// attempts spaced cleanupPollInterval apart, before forcing a detach
// via CleanupOldRoot regardless.
func GracefulCleanupOldRoot(logger *slog.Logger, oldRootPath string, maxRetries int) error {
	logger = logger.With(slog.String("scope", cleanupScope))

	for i := 0; i < maxRetries; i++ {
		busy, err := anyProcessRootedUnder(oldRootPath)
		if err != nil {
			logger.Warn("check /proc/*/root failed, continuing", "err", err)
			break
		}
		if !busy {
			break
		}
		time.Sleep(cleanupPollInterval)
	}
	return CleanupOldRoot(logger, oldRootPath)
}

// anyProcessRootedUnder reports whether any process under /proc still
// has its root symlink resolving to a path under oldRootPath.
func anyProcessRootedUnder(oldRootPath string) (bool, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return false, err
	}

	target := filepath.Clean(oldRootPath)
	for _, entry := range entries {
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		root, err := os.Readlink(filepath.Join("/proc", entry.Name(), "root"))
		if err != nil {
			continue
		}
		if root == target || strings.HasPrefix(root, target+string(os.PathSeparator)) {
			return true, nil
		}
	}
	return false, nil
}

func mountsUnder(oldRootPath string) ([]string, error) {
	infos, err := mount.ReadMounts()
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, info := range infos {
		if strings.HasPrefix(info.Target, oldRootPath) {
			targets = append(targets, info.Target)
		}
	}
	return targets, nil
}
