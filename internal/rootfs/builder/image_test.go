package builder

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixpig/xenomorph/internal/xerr"
)

// fakeLayer is a minimal v1.Layer for exercising openLayerContent's
// cache and digest-verification paths without a real registry pull.
type fakeLayer struct {
	content           []byte
	diffID            v1.Hash
	uncompressedCalls int
}

func newFakeLayer(content []byte) *fakeLayer {
	sum := sha256.Sum256(content)
	return &fakeLayer{
		content: content,
		diffID:  v1.Hash{Algorithm: "sha256", Hex: hex.EncodeToString(sum[:])},
	}
}

func (f *fakeLayer) Digest() (v1.Hash, error)          { return f.diffID, nil }
func (f *fakeLayer) DiffID() (v1.Hash, error)           { return f.diffID, nil }
func (f *fakeLayer) Size() (int64, error)               { return int64(len(f.content)), nil }
func (f *fakeLayer) MediaType() (types.MediaType, error) { return types.DockerLayer, nil }

func (f *fakeLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (f *fakeLayer) Uncompressed() (io.ReadCloser, error) {
	f.uncompressedCalls++
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func TestOpenLayerContentCacheMissThenHit(t *testing.T) {
	layer := newFakeLayer([]byte("layer one content"))
	cache := NewCache(t.TempDir())
	opts := Options{Cache: cache}

	rc, err := openLayerContent(opts, layer)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, layer.content, got)
	assert.Equal(t, 1, layer.uncompressedCalls)

	rc2, err := openLayerContent(opts, layer)
	require.NoError(t, err)
	got2, err := io.ReadAll(rc2)
	require.NoError(t, err)
	require.NoError(t, rc2.Close())
	assert.Equal(t, layer.content, got2)
	assert.Equal(t, 1, layer.uncompressedCalls, "a cache hit must not re-decompress the layer")
}

func TestOpenLayerContentVerifyDigestsMatchSucceeds(t *testing.T) {
	layer := newFakeLayer([]byte("verified content"))
	rc, err := openLayerContent(Options{VerifyDigests: true}, layer)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, rc)
	require.NoError(t, err)
	assert.NoError(t, rc.Close())
}

func TestOpenLayerContentVerifyDigestsMismatchFails(t *testing.T) {
	layer := newFakeLayer([]byte("original content"))
	layer.diffID.Hex = hex.EncodeToString(make([]byte, 32)) // wrong digest

	rc, err := openLayerContent(Options{VerifyDigests: true}, layer)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, rc)
	require.NoError(t, err)

	closeErr := rc.Close()
	require.Error(t, closeErr)
	assert.True(t, xerr.Is(closeErr, xerr.KindVerificationFailed))
}

func TestOpenLayerContentNoVerifyNoCachePassesThrough(t *testing.T) {
	layer := newFakeLayer([]byte("plain content"))
	rc, err := openLayerContent(Options{}, layer)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, layer.content, got)
}
