package process

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "process"

// Scan enumerates numeric entries under /proc and returns an Info for
// each process still present when read. A process that disappears
// mid-scan is silently skipped.
func Scan() ([]Info, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindProcNotAvailable, "read /proc", err)
	}

	var infos []Info
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}

		info, ok := readProcess(pid)
		if !ok {
			continue
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// readProcess reads one process's stat/cmdline/status. It returns
// ok=false if the process vanished while reading (ESRCH/ENOENT races are
// expected and not fatal).
func readProcess(pid int) (Info, bool) {
	comm, state, ppid, ok := readStat(pid)
	if !ok {
		return Info{}, false
	}

	cmdline, _ := readCmdline(pid)
	uid, gid, _ := readIDs(pid)

	return Info{
		PID:     pid,
		PPID:    ppid,
		Comm:    comm,
		Cmdline: cmdline,
		State:   state,
		UID:     uid,
		GID:     gid,
	}, true
}

// readStat parses /proc/<pid>/stat. comm is everything between the first
// '(' and the last ')' (command names may themselves contain
// parentheses or spaces).
func readStat(pid int) (comm string, state byte, ppid int, ok bool) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return "", 0, 0, false
	}

	s := string(data)
	open := strings.IndexByte(s, '(')
	close := strings.LastIndexByte(s, ')')
	if open < 0 || close < 0 || close < open {
		return "", 0, 0, false
	}

	comm = s[open+1 : close]

	rest := strings.Fields(s[close+1:])
	if len(rest) < 2 {
		return comm, 0, 0, false
	}
	state = rest[0][0]
	p, err := strconv.Atoi(rest[1])
	if err != nil {
		return comm, state, 0, false
	}

	return comm, state, p, true
}

// readCmdline reads /proc/<pid>/cmdline, replacing the NUL argument
// separators with spaces.
func readCmdline(pid int) (string, bool) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return "", false
	}

	s := strings.ReplaceAll(string(data), "\x00", " ")
	return strings.TrimRight(s, " "), true
}

// readIDs parses the Uid:/Gid: lines of /proc/<pid>/status, taking the
// first field after the tab (the real ID).
func readIDs(pid int) (uid, gid int, ok bool) {
	f, err := os.Open(filepath.Join("/proc", strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	foundUID, foundGID := false, false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Uid:"):
			if v, ok := firstField(line); ok {
				uid = v
				foundUID = true
			}
		case strings.HasPrefix(line, "Gid:"):
			if v, ok := firstField(line); ok {
				gid = v
				foundGID = true
			}
		}
		if foundUID && foundGID {
			break
		}
	}

	return uid, gid, foundUID && foundGID
}

// firstField returns the first whitespace-separated field after the
// "Uid:"/"Gid:" label, e.g. "Uid:\t1000\t1000\t1000\t1000" -> 1000.
func firstField(line string) (int, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return 0, false
	}
	v, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return v, true
}
