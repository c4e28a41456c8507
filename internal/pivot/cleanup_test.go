package pivot

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountsUnderFiltersByPrefix(t *testing.T) {
	// mountsUnder delegates straight to mount.ReadMounts + a prefix filter;
	// exercised indirectly via the /proc/mounts-backed tests in the mount
	// package. Here we just confirm an unmounted path yields no targets.
	targets, err := mountsUnder("/this/path/should/not/exist/as/a/mount")
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestAnyProcessRootedUnderFindsNoMatchForUnusedPath(t *testing.T) {
	busy, err := anyProcessRootedUnder("/this/path/should/not/be/anyones/root")
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestAnyProcessRootedUnderFindsSelf(t *testing.T) {
	// Every process (including this test binary) has /proc/<pid>/root -> "/",
	// so "/" itself must always be reported busy.
	busy, err := anyProcessRootedUnder("/")
	require.NoError(t, err)
	assert.True(t, busy, "pid %d should resolve its root under /", os.Getpid())
}
