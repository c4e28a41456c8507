package mount

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nixpig/xenomorph/internal/xerr"
)

// Info is a read-only snapshot of one /proc/mounts entry: source, target,
// fstype, and options. Trailing fields (dump/pass) are ignored.
type Info struct {
	Source  string
	Target  string
	FSType  string
	Options []string
}

// ReadMounts parses /proc/mounts, tokenizing each line on ASCII spaces and
// taking the first four fields as source/target/fstype/options; any
// trailing fields are ignored.
func ReadMounts() ([]Info, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindProcNotAvailable, "open /proc/mounts", err)
	}
	defer f.Close()

	var mounts []Info
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), " ")
		if len(fields) < 4 {
			continue
		}
		mounts = append(mounts, Info{
			Source:  fields[0],
			Target:  fields[1],
			FSType:  fields[2],
			Options: strings.Split(fields[3], ","),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, xerr.Wrap(scope, xerr.KindIoError, "read /proc/mounts", err)
	}

	return mounts, nil
}

// IsMountPoint reports whether path is itself a mount point, by comparing
// the device of path against the device of its parent directory.
func IsMountPoint(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, xerr.Wrap(scope, xerr.KindInvalidArgument, fmt.Sprintf("absolute path for %s", path), err)
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, xerr.Wrap(scope, xerr.KindIoError, fmt.Sprintf("stat %s", abs), err)
	}

	parent := filepath.Dir(abs)
	parentInfo, err := os.Lstat(parent)
	if err != nil {
		return false, xerr.Wrap(scope, xerr.KindIoError, fmt.Sprintf("stat %s", parent), err)
	}

	dev, ok1 := deviceOf(info)
	parentDev, ok2 := deviceOf(parentInfo)
	if !ok1 || !ok2 {
		// Fall back to a /proc/mounts scan if the platform-specific
		// Stat_t isn't available.
		return isMountPointViaProcMounts(abs)
	}

	if dev != parentDev {
		return true, nil
	}
	// root is always considered a mount point.
	if abs == "/" {
		return true, nil
	}
	return false, nil
}

func isMountPointViaProcMounts(abs string) (bool, error) {
	mounts, err := ReadMounts()
	if err != nil {
		return false, err
	}
	for _, m := range mounts {
		if m.Target == abs {
			return true, nil
		}
	}
	return false, nil
}
