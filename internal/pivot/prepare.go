// Package pivot is the pivot orchestrator: it drives the
// mount-namespace setup, essential submounts, pivot_root commit, and
// post-pivot cleanup that together replace the running root filesystem,
// following the "ensure mount, mount submount table, then pivot" idiom.
package pivot

import (
	"log/slog"

	"github.com/nixpig/xenomorph/internal/mount"
	"github.com/nixpig/xenomorph/internal/rootfs/verify"
	"github.com/nixpig/xenomorph/internal/syscalls"
	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "prepare"

// submount describes one essential filesystem to be present under the
// new root before pivot_root.
type submount struct {
	src      string
	target   string
	fstype   string
	bind     bool
	tolerant bool
}

var essentialSubmounts = []submount{
	{src: "/dev", target: "dev", bind: true},
	{src: "", target: "proc", fstype: "proc", bind: false},
	{src: "", target: "sys", fstype: "sysfs", bind: false},
	{src: "/run", target: "run", bind: true, tolerant: true},
}

// Options configures Prepare.
type Options struct {
	SkipVerify      bool
	CreateNamespace bool
}

// Result is Prepare's public return value.
type Result struct {
	PreparedNewRoot  string
	NamespaceCreated bool
}

// Prepare runs the ordered setup steps below, failing on the first
// error.
func Prepare(logger *slog.Logger, newRoot string, opts Options) (*Result, error) {
	logger = logger.With(slog.String("scope", scope))

	if !opts.SkipVerify {
		result := verify.Verify(newRoot)
		if !result.Valid {
			return nil, xerr.New(scope, xerr.KindPreparationFailed,
				"new root failed verification: "+firstOrEmpty(result.Errors))
		}
	}

	namespaceCreated := false
	if opts.CreateNamespace {
		if err := syscalls.Unshare(syscalls.EncodeUnshareFlags(syscalls.CloneNewNS)); err != nil {
			return nil, xerr.Wrap(scope, xerr.KindPreparationFailed, "unshare mount namespace", err)
		}
		if err := mount.MakePrivate("/"); err != nil {
			return nil, xerr.Wrap(scope, xerr.KindPreparationFailed, "make / private", err)
		}
		namespaceCreated = true
	}

	if err := mount.EnsureMountPoint(newRoot); err != nil {
		return nil, xerr.Wrap(scope, xerr.KindPreparationFailed, "ensure new root is a mount point", err)
	}

	logger.Debug("mounting essential submounts", "new_root", newRoot)
	for _, sm := range essentialSubmounts {
		if err := mountSubmount(newRoot, sm); err != nil {
			if sm.tolerant {
				logger.Warn("tolerant submount failed, continuing", "target", sm.target, "err", err)
				continue
			}
			return nil, err
		}
	}

	return &Result{PreparedNewRoot: newRoot, NamespaceCreated: namespaceCreated}, nil
}

func mountSubmount(newRoot string, sm submount) error {
	target := newRoot + "/" + sm.target
	if err := mount.EnsureDir(target); err != nil {
		return xerr.Wrap(scope, xerr.KindPreparationFailed, "ensure submount dir "+sm.target, err)
	}

	if sm.bind {
		if err := mount.Rbind(sm.src, target); err != nil {
			return xerr.Wrap(scope, xerr.KindPreparationFailed, "rbind "+sm.src+" to "+target, err)
		}
		return nil
	}

	if err := syscalls.Mount(sm.fstype, target, sm.fstype, 0, ""); err != nil {
		return xerr.Wrap(scope, xerr.KindPreparationFailed, "mount "+sm.fstype+" at "+target, err)
	}
	return nil
}

func firstOrEmpty(errs []string) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	return errs[0]
}
