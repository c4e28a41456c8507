package process

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEssentialNameExactAndPrefix(t *testing.T) {
	assert.True(t, IsEssentialName("systemd"))
	assert.True(t, IsEssentialName("systemd-udevd"))
	assert.True(t, IsEssentialName("kworker/0:1"))
	assert.False(t, IsEssentialName("myapp"))
}

func TestEssentialNamePrefixMonotone(t *testing.T) {
	// If IsEssentialName("foo") holds and comm starts with "foo", the
	// process must be classified essential too.
	names := []string{"systemd", "kworker", "journald", "dhclient"}
	for _, n := range names {
		assert.True(t, IsEssentialName(n))
		extended := n + "-extra-suffix"
		assert.True(t, IsEssentialName(extended), "prefix match for %s", extended)
	}
}

func TestIsKernelThread(t *testing.T) {
	assert.True(t, Info{PPID: 2}.IsKernelThread())
	assert.True(t, Info{PPID: 0}.IsKernelThread())
	assert.True(t, Info{Comm: "[kworker/0:1]"}.IsKernelThread())
	assert.False(t, Info{PPID: 1234, Comm: "bash"}.IsKernelThread())
}

func TestIsEssentialCoversInitSelfAndKernelThreads(t *testing.T) {
	self := os.Getpid()
	assert.True(t, IsEssential(Info{PID: 1}, self))
	assert.True(t, IsEssential(Info{PID: self}, self))
	assert.True(t, IsEssential(Info{PPID: 2, Comm: "kthreadd"}, self))
	assert.True(t, IsEssential(Info{Comm: "systemd"}, self))
	assert.False(t, IsEssential(Info{PID: self + 100000, PPID: self, Comm: "myapp"}, self))
}

func TestScanSelfIsFound(t *testing.T) {
	infos, err := Scan()
	if err != nil {
		t.Skipf("scan /proc unavailable in this environment: %v", err)
	}

	self := os.Getpid()
	found := false
	for _, i := range infos {
		if i.PID == self {
			found = true
			assert.NotEmpty(t, i.Comm)
		}
	}
	assert.True(t, found, "expected to find self pid %d in scan, self=%s", self, strconv.Itoa(self))
}

func TestProcessExists(t *testing.T) {
	assert.True(t, processExists(os.Getpid()))
	assert.False(t, processExists(999999))
}
