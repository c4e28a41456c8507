package initsystem

import (
	"log/slog"
	"strings"
	"time"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "coordinate"

// Target is the rescue/single-user mode to transition into before
// process termination.
type Target string

const (
	TargetRescue    Target = "rescue"
	TargetEmergency Target = "emergency"
	TargetMultiUser Target = "multi-user"
	TargetPoweroff  Target = "poweroff"
	TargetReboot    Target = "reboot"
)

// Options configures Coordinate.
type Options struct {
	Target           Target
	QuiescenceTimeout time.Duration // default 30s
}

// DefaultOptions returns the coordinator's default configuration.
func DefaultOptions() Options {
	return Options{Target: TargetRescue, QuiescenceTimeout: 30 * time.Second}
}

// Coordinate drives the detected init system into opts.Target and waits
// for quiescence. Every failure here is downgraded to a logged warning:
// the process terminator, not this coordinator, is the authoritative
// stopper.
func Coordinate(logger *slog.Logger, det Detection, opts Options) {
	logger = logger.With(slog.String("scope", scope), slog.String("init", string(det.System)))

	switch det.System {
	case Systemd:
		coordinateSystemd(logger, opts)
	case OpenRC:
		coordinateOpenRC(logger, opts)
	case SysVInit:
		coordinateSysVInit(logger, opts)
	default:
		logger.Warn("no coordination strategy for this init system, proceeding best-effort")
	}
}

func coordinateSystemd(logger *slog.Logger, opts Options) {
	unit := string(opts.Target) + ".target"
	if _, err := runCommand("systemctl", "isolate", unit); err != nil {
		logger.Warn("systemctl isolate failed", "unit", unit, "err", err)
	}

	if _, err := runCommand("systemctl", "stop", "--all"); err != nil {
		logger.Warn("systemctl stop --all failed", "err", err)
	}

	if err := waitForQuiescence(opts.QuiescenceTimeout, systemdPendingJobs); err != nil {
		logger.Warn("quiescence wait failed", "err", err)
	}
}

func systemdPendingJobs() (int, error) {
	out, err := runCommand("systemctl", "list-jobs", "--no-legend")
	if err != nil {
		return 0, xerr.Wrap(scope, xerr.KindCommandFailed, "systemctl list-jobs", err)
	}
	return countNonEmptyLines(string(out)), nil
}

func coordinateOpenRC(logger *slog.Logger, opts Options) {
	level := runlevelFor(opts.Target)
	if _, err := runCommand("openrc", level); err != nil {
		logger.Warn("openrc runlevel change failed", "level", level, "err", err)
	}

	if _, err := runCommand("rc-service", "--all", "stop"); err != nil {
		logger.Warn("rc-service --all stop failed", "err", err)
	}
}

func runlevelFor(target Target) string {
	switch target {
	case TargetPoweroff:
		return "shutdown"
	case TargetReboot:
		return "reboot"
	default:
		return "single"
	}
}

func coordinateSysVInit(logger *slog.Logger, opts Options) {
	runlevel := sysvRunlevelFor(opts.Target)
	if _, err := runCommand("telinit", runlevel); err != nil {
		logger.Warn("telinit failed", "runlevel", runlevel, "err", err)
	}

	if _, err := runCommand("killall5", "-15"); err != nil {
		logger.Warn("killall5 -15 failed", "err", err)
	}
}

func sysvRunlevelFor(target Target) string {
	switch target {
	case TargetPoweroff:
		return "0"
	case TargetReboot:
		return "6"
	case TargetMultiUser:
		return "3"
	default:
		return "1"
	}
}

// waitForQuiescence polls pendingJobs every 500ms until it returns zero,
// bounded by timeout.
func waitForQuiescence(timeout time.Duration, pendingJobs func() (int, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		n, err := pendingJobs()
		if err == nil && n == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return xerr.New(scope, xerr.KindTimeout, "quiescence wait timed out")
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func countNonEmptyLines(s string) int {
	count := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
