package process

import "strings"

// Category is one of the essential-process categories the terminator
// never kills.
type Category string

const (
	CategoryKernel  Category = "kernel"
	CategoryInit    Category = "init"
	CategorySelf    Category = "self"
	CategoryDevice  Category = "device"
	CategoryLogging Category = "logging"
	CategoryNetwork Category = "network"
	CategoryStorage Category = "storage"
	CategoryOther   Category = "other"
)

// essentialNames maps a comm prefix to the category it belongs to. A
// process is essential if its comm equals, or starts with, one of these
// names; the classifier stays monotone under prefix extension.
var essentialNames = map[string]Category{
	// kernel threads
	"kthreadd":    CategoryKernel,
	"ksoftirqd":   CategoryKernel,
	"kworker":     CategoryKernel,
	"migration":   CategoryKernel,
	"watchdog":    CategoryKernel,
	"kcompactd":   CategoryKernel,
	"khugepaged":  CategoryKernel,
	"kswapd":      CategoryKernel,
	"kblockd":     CategoryKernel,
	// init systems
	"systemd":     CategoryInit,
	"init":        CategoryInit,
	"openrc":      CategoryInit,
	"runit":       CategoryInit,
	"s6-svscan":   CategoryInit,
	// device management
	"udevd":          CategoryDevice,
	"systemd-udevd":  CategoryDevice,
	"eudev":          CategoryDevice,
	"mdev":           CategoryDevice,
	// logging
	"journald":          CategoryLogging,
	"systemd-journald":  CategoryLogging,
	"rsyslogd":          CategoryLogging,
	"syslog-ng":         CategoryLogging,
	// networking
	"dhclient":       CategoryNetwork,
	"dhcpcd":         CategoryNetwork,
	"NetworkManager": CategoryNetwork,
	"wpa_supplicant": CategoryNetwork,
	// storage
	"lvmetad":   CategoryStorage,
	"multipathd": CategoryStorage,
	"iscsid":    CategoryStorage,
}

// IsEssentialName reports whether name matches, or is a prefix match
// against, one of the fixed essential name table entries.
func IsEssentialName(name string) bool {
	_, ok := CategorizeName(name)
	return ok
}

// CategorizeName returns the essential category for name, matching either
// an exact name or a name that starts with one of the table's entries.
func CategorizeName(name string) (Category, bool) {
	if cat, ok := essentialNames[name]; ok {
		return cat, true
	}
	for prefix, cat := range essentialNames {
		if strings.HasPrefix(name, prefix) {
			return cat, true
		}
	}
	return "", false
}

// IsEssential reports whether p must never be terminated: PID 1, a kernel
// thread, the calling process itself, or a process matching the fixed
// name table.
func IsEssential(p Info, selfPID int) bool {
	if p.IsInit() {
		return true
	}
	if p.IsKernelThread() {
		return true
	}
	if p.IsSelf(selfPID) {
		return true
	}
	if len(p.Comm) > 0 && p.Comm[0] == '[' {
		return true
	}
	return IsEssentialName(p.Comm)
}
