package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "build"

// CacheEntry records a blob's on-disk location. LRU eviction is
// deliberately not implemented here: xenomorph's build sizes are bounded
// by the single image being pivoted to, not by an accumulating fleet of
// images, so unbounded cache growth was judged an acceptable tradeoff
// against the referential-integrity risk eviction mid-build would
// introduce.
type CacheEntry struct {
	Digest   string
	Size     int64
	LastUsed time.Time
	Path     string
}

// Cache is a content-addressed blob store rooted at <cache_root>/blobs.
type Cache struct {
	root string
}

func NewCache(root string) *Cache {
	return &Cache{root: root}
}

func (c *Cache) blobPath(algorithm, hash string) string {
	return filepath.Join(c.root, "blobs", algorithm, hash)
}

// Get returns the cache entry for digest ("algo:hash") if the blob is
// already present on disk.
func (c *Cache) Get(digest string) (CacheEntry, bool, error) {
	algorithm, hash, err := splitDigest(digest)
	if err != nil {
		return CacheEntry{}, false, err
	}

	path := c.blobPath(algorithm, hash)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, xerr.Wrap(scope, xerr.KindIoError, "stat cache entry", err)
	}

	return CacheEntry{
		Digest:   digest,
		Size:     info.Size(),
		LastUsed: info.ModTime(),
		Path:     path,
	}, true, nil
}

// Put streams r into the cache under digest, verifying the digest
// matches the actual content hash before making the blob visible under
// its final name. The write goes to a temp file in the same directory
// first so a crash mid-write never leaves a corrupt blob at the final
// path (a present file at that path is a correctness invariant).
func (c *Cache) Put(digest string, r io.Reader) (CacheEntry, error) {
	algorithm, hash, err := splitDigest(digest)
	if err != nil {
		return CacheEntry{}, err
	}
	if algorithm != "sha256" {
		return CacheEntry{}, xerr.New(scope, xerr.KindInvalidDigest, "unsupported digest algorithm: "+algorithm)
	}

	dir := filepath.Join(c.root, "blobs", algorithm)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CacheEntry{}, xerr.Wrap(scope, xerr.KindIoError, "create cache directory", err)
	}

	tmp, err := os.CreateTemp(dir, hash+".tmp-*")
	if err != nil {
		return CacheEntry{}, xerr.Wrap(scope, xerr.KindIoError, "create temp cache file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	closeErr := tmp.Close()
	if err != nil {
		return CacheEntry{}, xerr.Wrap(scope, xerr.KindIoError, "write cache blob", err)
	}
	if closeErr != nil {
		return CacheEntry{}, xerr.Wrap(scope, xerr.KindIoError, "close cache blob", closeErr)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if sum != hash {
		return CacheEntry{}, xerr.New(scope, xerr.KindVerificationFailed,
			fmt.Sprintf("digest mismatch: want %s, got %s", hash, sum))
	}

	final := c.blobPath(algorithm, hash)
	if err := os.Rename(tmpPath, final); err != nil {
		return CacheEntry{}, xerr.Wrap(scope, xerr.KindIoError, "commit cache blob", err)
	}

	return CacheEntry{Digest: digest, Size: size, LastUsed: time.Now(), Path: final}, nil
}

func splitDigest(digest string) (algorithm, hash string, err error) {
	for i := 0; i < len(digest); i++ {
		if digest[i] == ':' {
			return digest[:i], digest[i+1:], nil
		}
	}
	return "", "", xerr.New(scope, xerr.KindInvalidDigest, "malformed digest: "+digest)
}
