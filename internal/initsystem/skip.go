package initsystem

import (
	"os"
	"strings"
)

// containerMarkers are substrings in /proc/1/cgroup that indicate we are
// already running inside a container, where init coordination is
// meaningless and potentially harmful.
var containerMarkers = []string{"docker", "lxc", "kubepods", "containerd"}

// SkipInContainer reports whether init coordination should be skipped
// because we appear to be running inside a container.
func SkipInContainer() bool {
	if pathExists("/.dockerenv") {
		return true
	}

	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}

	content := string(data)
	for _, marker := range containerMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
