package process

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nixpig/xenomorph/internal/syscalls"
)

// fakeProcTable simulates a small set of processes reacting to signals,
// letting the escalation algorithm in terminateTargets be exercised
// without touching the real process table.
type fakeProcTable struct {
	mu      sync.Mutex
	alive   map[int]bool
	diesOn  map[int]syscalls.Signal // signal that kills this pid; 0 means never
	sigLog  []int                   // pids sent SIGKILL, in order
}

func newFakeProcTable(diesOn map[int]syscalls.Signal) *fakeProcTable {
	alive := make(map[int]bool, len(diesOn))
	for pid := range diesOn {
		alive[pid] = true
	}
	return &fakeProcTable{alive: alive, diesOn: diesOn}
}

func (f *fakeProcTable) kill(pid int, sig syscalls.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sig == syscalls.SIGKILL {
		f.sigLog = append(f.sigLog, pid)
	}
	if f.diesOn[pid] == sig {
		f.alive[pid] = false
	}
	return nil
}

func (f *fakeProcTable) exists(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestTerminateTargetsGracefulExitNeedsNoKill(t *testing.T) {
	fake := newFakeProcTable(map[int]syscalls.Signal{
		100: syscalls.SIGTERM,
		101: syscalls.SIGTERM,
	})
	opts := Options{GracefulTimeout: 200 * time.Millisecond, ForcefulTimeout: 10 * time.Millisecond}

	result := terminateTargets(discardLogger(), []int{100, 101}, opts, fake.kill, fake.exists)

	assert.Equal(t, 2, result.TerminatedCount)
	assert.Equal(t, 0, result.KilledCount)
	assert.Empty(t, result.StubbornPIDs)
	assert.Empty(t, fake.sigLog, "a process that exits on SIGTERM must never receive SIGKILL")
}

func TestTerminateTargetsEscalatesSurvivorsToSigkill(t *testing.T) {
	fake := newFakeProcTable(map[int]syscalls.Signal{
		200: syscalls.SIGKILL, // ignores SIGTERM, dies on SIGKILL
	})
	opts := Options{GracefulTimeout: 150 * time.Millisecond, ForcefulTimeout: 10 * time.Millisecond}

	result := terminateTargets(discardLogger(), []int{200}, opts, fake.kill, fake.exists)

	assert.Equal(t, 1, result.TerminatedCount)
	assert.Equal(t, 1, result.KilledCount)
	assert.Empty(t, result.StubbornPIDs)
	assert.Equal(t, []int{200}, fake.sigLog)
}

func TestTerminateTargetsReportsStubbornSurvivors(t *testing.T) {
	fake := newFakeProcTable(map[int]syscalls.Signal{
		300: 0, // never dies, even to SIGKILL
	})
	opts := Options{GracefulTimeout: 100 * time.Millisecond, ForcefulTimeout: 10 * time.Millisecond}

	result := terminateTargets(discardLogger(), []int{300}, opts, fake.kill, fake.exists)

	assert.Equal(t, 0, result.TerminatedCount)
	assert.Equal(t, 0, result.KilledCount)
	assert.Equal(t, []int{300}, result.StubbornPIDs)
}

func TestTerminateTargetsMixedPopulation(t *testing.T) {
	fake := newFakeProcTable(map[int]syscalls.Signal{
		1: syscalls.SIGTERM, // exits gracefully
		2: syscalls.SIGKILL, // needs escalation
		3: 0,                // stubborn
	})
	opts := Options{GracefulTimeout: 100 * time.Millisecond, ForcefulTimeout: 10 * time.Millisecond}

	result := terminateTargets(discardLogger(), []int{1, 2, 3}, opts, fake.kill, fake.exists)

	assert.Equal(t, 2, result.TerminatedCount) // pid 1 graceful + pid 2 killed
	assert.Equal(t, 1, result.KilledCount)
	assert.Equal(t, []int{3}, result.StubbornPIDs)
}

func TestTerminateTargetsIsIdempotentOnEmptySet(t *testing.T) {
	fake := newFakeProcTable(nil)
	opts := Options{GracefulTimeout: 10 * time.Millisecond, ForcefulTimeout: 5 * time.Millisecond}

	result := terminateTargets(discardLogger(), nil, opts, fake.kill, fake.exists)

	assert.Equal(t, Result{}, result)
}
