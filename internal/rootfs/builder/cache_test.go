package builder

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutThenGet(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir)

	content := []byte("hello xenomorph")
	digest := "sha256:" + sha256Hex(content)

	entry, err := cache.Put(digest, bytes.NewReader(content))
	require.NoError(t, err)
	assert.EqualValues(t, len(content), entry.Size)

	got, ok, err := cache.Get(digest)
	require.NoError(t, err)
	require.True(t, ok, "expected cache hit")
	assert.Equal(t, entry.Path, got.Path)
}

func TestCacheGetMissReturnsFalse(t *testing.T) {
	cache := NewCache(t.TempDir())
	_, ok, err := cache.Get("sha256:" + sampleDigestHex)
	require.NoError(t, err)
	assert.False(t, ok, "expected cache miss")
}

func TestCachePutRejectsDigestMismatch(t *testing.T) {
	cache := NewCache(t.TempDir())
	_, err := cache.Put("sha256:"+sampleDigestHex, bytes.NewReader([]byte("not matching content")))
	assert.Error(t, err)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
