// Package syscalls is the typed Linux syscall surface: thin wrappers
// around mount, umount2, pivot_root, chroot, chdir, unshare, and kill that
// take validated paths and typed flags and return one error kind from a
// fixed set. Wrapped calls go straight to golang.org/x/sys/unix and
// errors are annotated with fmt.Errorf before being classified.
package syscalls

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "syscall"

// errnoKind maps an errno to one of the error kinds xerr defines.
func errnoKind(err error) xerr.Kind {
	errno, ok := err.(unix.Errno)
	if !ok {
		return xerr.KindUnexpected
	}

	switch errno {
	case unix.EACCES, unix.EPERM:
		return xerr.KindPermissionDenied
	case unix.EINVAL:
		return xerr.KindInvalidArgument
	case unix.ENOMEM:
		return xerr.KindOutOfMemory
	case unix.EBUSY:
		return xerr.KindDeviceBusy
	case unix.ENOTDIR:
		return xerr.KindNotADirectory
	case unix.EISDIR:
		return xerr.KindIsADirectory
	case unix.ENOENT:
		return xerr.KindNoSuchFileOrDirEntry
	case unix.ENOTEMPTY:
		return xerr.KindNotEmpty
	case unix.EROFS:
		return xerr.KindReadOnlyFilesystem
	case unix.ELOOP:
		return xerr.KindTooManySymlinks
	case unix.ENAMETOOLONG:
		return xerr.KindNameTooLong
	case unix.ENOSPC:
		return xerr.KindNoSpace
	default:
		return xerr.KindUnexpected
	}
}

func wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return xerr.Wrap(scope, errnoKind(err), msg, err)
}

// Mount invokes mount(2). data is the comma-separated options string
// (e.g. "size=67108864,mode=0755").
func Mount(source, target, fstype string, flags uintptr, data string) error {
	err := unix.Mount(source, target, fstype, flags, data)
	return wrap(fmt.Sprintf("mount %s -> %s (type=%s flags=%#x)", source, target, fstype, flags), err)
}

// Umount2 invokes umount2(2) with the given flags (e.g. MNT_DETACH for a
// lazy unmount).
func Umount2(target string, flags int) error {
	err := unix.Unmount(target, flags)
	return wrap(fmt.Sprintf("umount2 %s (flags=%#x)", target, flags), err)
}

// PivotRoot invokes pivot_root(2). putOld must be a directory beneath
// newRoot.
func PivotRoot(newRoot, putOld string) error {
	err := unix.PivotRoot(newRoot, putOld)
	return wrap(fmt.Sprintf("pivot_root %s %s", newRoot, putOld), err)
}

// Chroot invokes chroot(2).
func Chroot(path string) error {
	err := unix.Chroot(path)
	return wrap(fmt.Sprintf("chroot %s", path), err)
}

// Chdir invokes chdir(2).
func Chdir(path string) error {
	err := unix.Chdir(path)
	return wrap(fmt.Sprintf("chdir %s", path), err)
}

// Unshare invokes unshare(2) with the given CLONE_NEW* flags.
func Unshare(flags uintptr) error {
	err := unix.Unshare(int(flags))
	return wrap(fmt.Sprintf("unshare flags=%#x", flags), err)
}

// Kill invokes kill(2), sending sig to pid.
func Kill(pid int, sig Signal) error {
	err := unix.Kill(pid, unix.Signal(sig))
	return wrap(fmt.Sprintf("kill pid=%d sig=%d", pid, sig), err)
}
