package builder

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nixpig/xenomorph/internal/xerr"
)

// registryDefaultSizeEstimate is used when a registry image's
// uncompressed size is unknown ahead of the pull.
const registryDefaultSizeEstimate = 1 << 30 // 1 GiB

// directoryContentOverheadFloor is the minimum size estimate for an
// OCI-layout directory source.
const directoryContentOverheadFloor = 32 << 20 // 32 MiB

// EstimateTarballSize estimates a tarball source's uncompressed size:
// the file's on-disk size, multiplied by 3 when gzip-compressed (gzip
// on typical container-image content, mostly text and binaries,
// commonly achieves close to 3:1), or unchanged when uncompressed.
func EstimateTarballSize(fileSize int64, compression Compression) int64 {
	if compression == CompressionGzip {
		return fileSize * 3
	}
	return fileSize
}

// EstimateDirectorySize estimates an OCI-layout directory source's size
// from its recursive content size, padded 50% for inode/metadata
// overhead and filesystem fragmentation, with a 32 MiB floor for very
// small layouts.
func EstimateDirectorySize(recursiveContentSize int64) int64 {
	estimate := recursiveContentSize + recursiveContentSize/2
	if estimate < directoryContentOverheadFloor {
		return directoryContentOverheadFloor
	}
	return estimate
}

// EstimateRegistrySize returns the manifest-declared layer sizes when
// known, else the default placeholder for an unknown-size registry pull.
func EstimateRegistrySize(knownLayerSizes []int64) int64 {
	if len(knownLayerSizes) == 0 {
		return registryDefaultSizeEstimate
	}
	var total int64
	for _, s := range knownLayerSizes {
		total += s
	}
	return total
}

// MemoryStatus reports the host's available memory, per /proc/meminfo's
// MemAvailable field (the kernel's own over-commit-aware estimate, not a
// naive MemFree reading).
type MemoryStatus struct {
	TotalBytes     uint64
	AvailableBytes uint64
}

// ReadMemoryStatus parses /proc/meminfo.
func ReadMemoryStatus() (MemoryStatus, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return MemoryStatus{}, xerr.Wrap(scope, xerr.KindIoError, "open /proc/meminfo", err)
	}
	defer f.Close()

	var status MemoryStatus
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			status.TotalBytes = parseMeminfoKB(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			status.AvailableBytes = parseMeminfoKB(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return MemoryStatus{}, xerr.Wrap(scope, xerr.KindIoError, "read /proc/meminfo", err)
	}

	return status, nil
}

// parseMeminfoKB parses a "Field:      12345 kB" line into bytes.
func parseMeminfoKB(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}

// headroom returns max(10% of total, 256 MiB).
func headroom(totalBytes uint64) uint64 {
	const floor = 256 << 20
	tenPercent := totalBytes / 10
	if tenPercent > floor {
		return tenPercent
	}
	return floor
}

// CheckAvailableMemory returns an error iff required exceeds the host's
// available memory after reserving headroom, since the new root is
// built into tmpfs backed by RAM.
func CheckAvailableMemory(required int64) error {
	status, err := ReadMemoryStatus()
	if err != nil {
		return err
	}

	reserve := headroom(status.TotalBytes)
	var usable uint64
	if status.AvailableBytes > reserve {
		usable = status.AvailableBytes - reserve
	}

	if required > 0 && uint64(required) > usable {
		return xerr.New(scope, xerr.KindInsufficientMemory,
			"estimated image size "+humanize.Bytes(uint64(required))+
				" exceeds usable memory "+humanize.Bytes(usable)+
				" (available "+humanize.Bytes(status.AvailableBytes)+" minus headroom "+humanize.Bytes(reserve)+")")
	}
	return nil
}
