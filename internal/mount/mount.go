// Package mount is the mount toolbox: higher-level primitives built
// on the syscalls package — bind, rbind, move, tmpfs, propagation, and
// mountpoint helpers.
package mount

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"

	"github.com/nixpig/xenomorph/internal/syscalls"
	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "mount"

// Bind bind-mounts source onto target. If rec is true the bind is
// recursive (rbind).
func Bind(source, target string, rec bool) error {
	flags := []syscalls.MountFlag{syscalls.MountBind}
	if rec {
		flags = append(flags, syscalls.MountRec)
	}
	return syscalls.Mount(source, target, "", syscalls.EncodeMountFlags(flags...), "")
}

// Rbind is Bind with rec always true.
func Rbind(source, target string) error {
	return Bind(source, target, true)
}

// Move moves the mount at source onto target (MS_MOVE), used by the
// pivot orchestrator's switch_root fallback.
func Move(source, target string) error {
	return syscalls.Mount(source, target, "", syscalls.EncodeMountFlags(syscalls.MountMove), "")
}

// MountTmpfs mounts a sized tmpfs at target. size is formatted as
// "size=<bytes>,mode=0755".
func MountTmpfs(target string, size datasize.ByteSize, mode os.FileMode) error {
	data := fmt.Sprintf("size=%d,mode=%#o", size.Bytes(), mode.Perm())
	return syscalls.Mount("tmpfs", target, "tmpfs", 0, data)
}

// Umount performs a normal (non-lazy) unmount.
func Umount(target string) error {
	return syscalls.Umount2(target, 0)
}

// UmountDetach performs a lazy (MNT_DETACH) unmount, used during old-root
// cleanup where a normal unmount may hit EBUSY.
func UmountDetach(target string) error {
	return syscalls.Umount2(target, syscalls.EncodeUmount2Flags(syscalls.UmountDetach))
}

// MakePrivate marks target (and, recursively, everything beneath it) as
// MS_PRIVATE, preventing mount events from propagating to/from the host.
// Without this, mounts performed after unshare(NEWNS) would still leak to
// the host mount namespace.
func MakePrivate(target string) error {
	return syscalls.Mount("", target, "", syscalls.EncodeMountFlags(syscalls.MountPrivate, syscalls.MountRec), "")
}

// MakeShared marks target as MS_SHARED, recursively.
func MakeShared(target string) error {
	return syscalls.Mount("", target, "", syscalls.EncodeMountFlags(syscalls.MountShared, syscalls.MountRec), "")
}

// EnsureDir creates path (and parents) if it does not already exist.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return xerr.Wrap(scope, xerr.KindIoError, fmt.Sprintf("create dir %s", path), err)
	}
	return nil
}

// EnsureMountPoint ensures path exists and is a mount point, bind-mounting
// it to itself if it is not already one. This is the idiom the pivot
// orchestrator's prepare stage uses to turn an ordinary directory into a
// pivot_root-eligible new_root.
func EnsureMountPoint(path string) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	isMP, err := IsMountPoint(path)
	if err != nil {
		return err
	}
	if isMP {
		return nil
	}

	if err := Rbind(path, path); err != nil {
		return xerr.Wrap(scope, xerr.KindDeviceBusy, fmt.Sprintf("bind %s to itself", path), err)
	}
	return nil
}
