package mount

import (
	"os"
	"syscall"
)

// deviceOf extracts the device number from a Stat_t-backed FileInfo.
func deviceOf(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return uint64(st.Dev), true
}
