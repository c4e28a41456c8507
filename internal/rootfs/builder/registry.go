package builder

import (
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/nixpig/xenomorph/internal/xerr"
)

// RegistryClient resolves an ImageReference to a v1.Image. The builder
// is agnostic to how this happens; it only cares that the result
// satisfies v1.Image.
type RegistryClient interface {
	Pull(ref *ImageReference) (v1.Image, error)
}

// AnonymousRegistryClient pulls images over the registry's HTTP API
// unauthenticated, via go-containerregistry's remote transport.
type AnonymousRegistryClient struct{}

func (AnonymousRegistryClient) Pull(ref *ImageReference) (v1.Image, error) {
	named, err := name.ParseReference(ref.String())
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindInvalidImage, "parse registry reference", err)
	}

	img, err := remote.Image(named, remote.WithAuth(authn.Anonymous))
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindDownloadFailed, "pull image from registry", err)
	}
	return img, nil
}

// UnimplementedRegistryClient always reports NotImplemented. The builder
// surfaces DownloadFailed when the configured client cannot serve the
// request; this exists as the default for callers that have not
// explicitly opted into network access.
type UnimplementedRegistryClient struct{}

func (UnimplementedRegistryClient) Pull(ref *ImageReference) (v1.Image, error) {
	return nil, xerr.New(scope, xerr.KindNotImplemented, "registry access not configured")
}

func buildFromRegistry(client RegistryClient, ref *ImageReference, target string, opts Options) (*extractImageResult, error) {
	img, err := client.Pull(ref)
	if err != nil {
		if xerr.Is(err, xerr.KindNotImplemented) {
			return nil, xerr.Wrap(scope, xerr.KindDownloadFailed, "registry client unavailable", err)
		}
		return nil, err
	}
	return extractImage(img, target, opts)
}
