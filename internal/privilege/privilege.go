// Package privilege checks that the running process holds the
// privileges the pipeline needs, using syndtr/gocapability to read the
// process's effective capability set.
package privilege

import (
	"os"

	"github.com/syndtr/gocapability/capability"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "privilege"

// Check fails unless the calling process runs as effective UID 0 and
// holds CAP_SYS_ADMIN in its effective set
// contract: the pipeline needs both for mount/unshare/pivot_root and
// for signaling arbitrary PIDs.
func Check() error {
	if os.Geteuid() != 0 {
		return xerr.New(scope, xerr.KindPermissionDenied, "must run as root (effective UID 0)")
	}

	c, err := capability.NewPid2(0)
	if err != nil {
		return xerr.Wrap(scope, xerr.KindPermissionDenied, "read process capabilities", err)
	}
	if err := c.Load(); err != nil {
		return xerr.Wrap(scope, xerr.KindPermissionDenied, "load process capabilities", err)
	}

	if !c.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN) {
		return xerr.New(scope, xerr.KindPermissionDenied, "missing CAP_SYS_ADMIN")
	}

	return nil
}
