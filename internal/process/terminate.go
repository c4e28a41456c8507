package process

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nixpig/xenomorph/internal/syscalls"
)

// Options configures the terminator
type Options struct {
	GracefulTimeout time.Duration // default 5000ms
	ForcefulTimeout time.Duration // default 2000ms
	SkipEssential   bool          // default true
	ExcludePIDs     []int
}

// DefaultOptions returns the terminator's default configuration.
func DefaultOptions() Options {
	return Options{
		GracefulTimeout: 5 * time.Second,
		ForcefulTimeout: 2 * time.Second,
		SkipEssential:   true,
	}
}

// Result summarizes one TerminateAll run
type Result struct {
	TerminatedCount int
	KilledCount     int
	StubbornPIDs    []int
}

const pollInterval = 100 * time.Millisecond

// TerminateAll scans /proc, signals every non-essential process with
// SIGTERM, escalates survivors to SIGKILL after GracefulTimeout, and
// reports any still alive after ForcefulTimeout as stubborn. It never
// signals PID 1, a kernel thread, the caller, the caller's parent, an
// excluded pid, or (if SkipEssential) an essential process.
func TerminateAll(logger *slog.Logger, opts Options) Result {
	self := os.Getpid()
	parent := os.Getppid()

	excluded := make(map[int]bool, len(opts.ExcludePIDs))
	for _, p := range opts.ExcludePIDs {
		excluded[p] = true
	}

	procs, err := Scan()
	if err != nil {
		logger.Warn("scan /proc failed", "err", err)
		return Result{}
	}

	var targets []int
	for _, p := range procs {
		if p.IsInit() || p.IsKernelThread() || p.IsSelf(self) {
			continue
		}
		if p.PID == parent || excluded[p.PID] {
			continue
		}
		if opts.SkipEssential && IsEssential(p, self) {
			continue
		}
		targets = append(targets, p.PID)
	}

	return terminateTargets(logger, targets, opts, syscalls.Kill, processExists)
}

// terminateTargets runs the SIGTERM->poll->SIGKILL->settle escalation
// over an explicit target list, through an injected kill/exists seam so
// the algorithm can be driven by fakes instead of the real process
// table. TerminateAll is the only production caller.
func terminateTargets(
	logger *slog.Logger,
	targets []int,
	opts Options,
	kill func(pid int, sig syscalls.Signal) error,
	exists func(pid int) bool,
) Result {
	for _, pid := range targets {
		if err := kill(pid, syscalls.SIGTERM); err != nil {
			logger.Warn("sigterm failed", "pid", pid, "err", err)
		}
	}

	exited := pollUntilGone(targets, opts.GracefulTimeout, exists)

	alive := make([]int, 0, len(targets))
	for _, pid := range targets {
		if !exited[pid] {
			alive = append(alive, pid)
		}
	}

	var sigkilled []int
	for _, pid := range alive {
		if err := kill(pid, syscalls.SIGKILL); err != nil {
			logger.Warn("sigkill failed", "pid", pid, "err", err)
			continue
		}
		sigkilled = append(sigkilled, pid)
	}

	time.Sleep(opts.ForcefulTimeout)

	var killed, stubborn []int
	for _, pid := range sigkilled {
		if exists(pid) {
			stubborn = append(stubborn, pid)
		} else {
			killed = append(killed, pid)
		}
	}

	gracefullyExited := 0
	for _, pid := range targets {
		if exited[pid] {
			gracefullyExited++
		}
	}

	return Result{
		TerminatedCount: gracefullyExited + len(killed),
		KilledCount:     len(killed),
		StubbornPIDs:    stubborn,
	}
}

// pollUntilGone polls every 100ms, up to timeout, for every pid in
// targets to stop existing according to exists. It returns the set that
// exited within the window.
func pollUntilGone(targets []int, timeout time.Duration, exists func(int) bool) map[int]bool {
	exitedSet := make(map[int]bool, len(targets))
	deadline := time.Now().Add(timeout)

	for {
		remaining := 0
		for _, pid := range targets {
			if exitedSet[pid] {
				continue
			}
			if !exists(pid) {
				exitedSet[pid] = true
				continue
			}
			remaining++
		}
		if remaining == 0 || time.Now().After(deadline) {
			return exitedSet
		}
		time.Sleep(pollInterval)
	}
}

func processExists(pid int) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	return err == nil
}
