package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageReferenceFullyQualified(t *testing.T) {
	ref, err := ParseImageReference("quay.io/prometheus/prometheus:v2.45.0")
	require.NoError(t, err)
	assert.Equal(t, "quay.io", ref.Registry)
	assert.Equal(t, "prometheus/prometheus", ref.Repository)
	assert.Equal(t, "v2.45.0", ref.Tag)
}

func TestParseImageReferenceBareNameUsesDefaults(t *testing.T) {
	ref, err := ParseImageReference("alpine")
	require.NoError(t, err)
	assert.Equal(t, defaultRegistry, ref.Registry)
	assert.Equal(t, "library/alpine", ref.Repository)
	assert.Equal(t, "latest", ref.Tag)
}

func TestParseImageReferenceNameWithTagNoRegistry(t *testing.T) {
	ref, err := ParseImageReference("nginx:1.25")
	require.NoError(t, err)
	assert.Equal(t, defaultRegistry, ref.Registry)
	assert.Equal(t, "library/nginx", ref.Repository)
	assert.Equal(t, "1.25", ref.Tag)
}

func TestParseImageReferenceDigest(t *testing.T) {
	ref, err := ParseImageReference("alpine@sha256:" + sampleDigestHex)
	require.NoError(t, err)
	assert.True(t, ref.IsDigest())
	assert.Empty(t, ref.Tag)
}

func TestParseImageReferenceRoundTrip(t *testing.T) {
	cases := []string{
		"quay.io/prometheus/prometheus:v2.45.0",
		"registry-1.docker.io/library/nginx:1.25",
	}
	for _, s := range cases {
		ref, err := ParseImageReference(s)
		require.NoError(t, err)
		assert.Equal(t, s, ref.String())
	}
}

func TestParseImageReferenceRejectsInvalid(t *testing.T) {
	_, err := ParseImageReference("UPPER/CASE/not/allowed")
	assert.Error(t, err)
}

const sampleDigestHex = "e4355b66995c96b4b468159fc5c7e3540fcef961189ca13fee877798649f5310"
