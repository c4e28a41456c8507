package builder

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTar(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for name, content := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf
}

// TestApplyLayerWhiteoutRemovesLowerEntry applies layer1 (creates etc/a
// and etc/b), then layer2 (deletes etc/a via a whiteout marker). The
// final tree must have etc/b but not etc/a, and no .wh. entries.
func TestApplyLayerWhiteoutRemovesLowerEntry(t *testing.T) {
	target := t.TempDir()

	layer1 := buildTar(t, map[string]string{
		"etc/a": "first",
		"etc/b": "second",
	})
	require.NoError(t, ApplyLayer(target, layer1))

	layer2 := buildTar(t, map[string]string{
		"etc/.wh.a": "",
	})
	require.NoError(t, ApplyLayer(target, layer2))

	_, err := os.Stat(filepath.Join(target, "etc", "a"))
	assert.True(t, os.IsNotExist(err), "etc/a should have been removed, stat err = %v", err)

	_, err = os.Stat(filepath.Join(target, "etc", "b"))
	assert.NoError(t, err, "etc/b should survive")

	_, err = os.Stat(filepath.Join(target, "etc", ".wh.a"))
	assert.True(t, os.IsNotExist(err), "whiteout marker itself must never appear in the tree")
}

func TestApplyLayerOpaqueDirectoryClearsContents(t *testing.T) {
	target := t.TempDir()

	layer1 := buildTar(t, map[string]string{
		"data/old1": "x",
		"data/old2": "y",
	})
	require.NoError(t, ApplyLayer(target, layer1))

	layer2 := buildTar(t, map[string]string{
		"data/.wh..wh..opq": "",
		"data/new":          "z",
	})
	require.NoError(t, ApplyLayer(target, layer2))

	_, err := os.Stat(filepath.Join(target, "data", "old1"))
	assert.True(t, os.IsNotExist(err), "data/old1 should have been cleared by opaque marker")

	_, err = os.Stat(filepath.Join(target, "data", "new"))
	assert.NoError(t, err, "data/new should exist")
}

func TestWhiteoutTargetStripsPrefix(t *testing.T) {
	assert.Equal(t, "etc/a", whiteoutTarget("etc/.wh.a"))
	assert.Equal(t, "root", whiteoutTarget(".wh.root"))
}
