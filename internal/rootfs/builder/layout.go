package builder

import (
	"encoding/json"
	"os"
	"path/filepath"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	ispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nixpig/xenomorph/internal/xerr"
)

// IsOCILayout reports whether dir contains an oci-layout marker file.
// The marker is parsed with the upstream OCI image-spec types rather
// than go-containerregistry's own layout reader, since all the dispatch
// check needs is the presence and version of that one small file.
func IsOCILayout(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "oci-layout"))
	if err != nil {
		return false
	}
	var marker ispec.ImageLayout
	return json.Unmarshal(data, &marker) == nil && marker.Version != ""
}

// buildFromOCILayout reads dir's index.json, selects the first manifest
// descriptor (the source does not discriminate by platform, so neither
// do we), and extracts it into target.
func buildFromOCILayout(dir, target string, opts Options) (*extractImageResult, error) {
	idx, err := layout.ImageIndexFromPath(dir)
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindInvalidImage, "open OCI layout", err)
	}

	manifest, err := idx.IndexManifest()
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindManifestParseError, "read layout index manifest", err)
	}
	if len(manifest.Manifests) == 0 {
		return nil, xerr.New(scope, xerr.KindInvalidImage, "OCI layout index has no manifests")
	}

	descriptor := manifest.Manifests[0]

	var img v1.Image
	switch descriptor.MediaType {
	case "application/vnd.oci.image.index.v1+json", "application/vnd.docker.distribution.manifest.list.v2+json":
		childIdx, err := idx.ImageIndex(descriptor.Digest)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindManifestParseError, "resolve nested index", err)
		}
		childManifest, err := childIdx.IndexManifest()
		if err != nil || len(childManifest.Manifests) == 0 {
			return nil, xerr.New(scope, xerr.KindInvalidImage, "nested index has no manifests")
		}
		img, err = childIdx.Image(childManifest.Manifests[0].Digest)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindManifestParseError, "resolve nested manifest image", err)
		}
	default:
		img, err = idx.Image(descriptor.Digest)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindManifestParseError, "resolve manifest image", err)
		}
	}

	return extractImage(img, target, opts)
}
