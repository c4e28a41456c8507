package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/nixpig/xenomorph/internal/xerr"
)

// extractImageResult is what the OCI-layout and registry source paths
// both produce by walking a resolved v1.Image's layer list.
type extractImageResult struct {
	LayerCount int
	TotalSize  int64
	Config     *ImageConfig
}

// extractImage applies an image's layers, in manifest order, onto
// target, then extracts its config. go-containerregistry's v1.Layer
// already normalizes gzip/zstd/uncompressed layers behind Uncompressed().
func extractImage(img v1.Image, target string, opts Options) (*extractImageResult, error) {
	layers, err := img.Layers()
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindManifestParseError, "list image layers", err)
	}

	var totalSize int64
	for _, layer := range layers {
		size, err := layer.Size()
		if err == nil {
			totalSize += size
		}

		rc, err := openLayerContent(opts, layer)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "open layer", err)
		}
		applyErr := ApplyLayer(target, rc)
		closeErr := rc.Close()
		if applyErr != nil {
			return nil, applyErr
		}
		if closeErr != nil {
			if xerr.Is(closeErr, xerr.KindVerificationFailed) {
				return nil, closeErr
			}
			return nil, xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "close layer", closeErr)
		}
	}

	configFile, err := img.ConfigFile()
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindConfigParseError, "read image config", err)
	}

	return &extractImageResult{
		LayerCount: len(layers),
		TotalSize:  totalSize,
		Config:     ExtractImageConfig(configFile),
	}, nil
}

// openLayerContent returns layer's uncompressed content. When
// opts.Cache is set, the content is content-addressed by the layer's
// DiffID (the digest of the uncompressed stream, as distinct from
// Digest, which covers the compressed blob): a cache hit is read
// straight off disk, a miss is streamed through Cache.Put, which
// verifies the digest as it writes. With no cache configured,
// opts.VerifyDigests still wraps the stream in an equivalent check
// against the layer's declared DiffID.
func openLayerContent(opts Options, layer v1.Layer) (io.ReadCloser, error) {
	diffID, diffErr := layer.DiffID()

	if opts.Cache != nil && diffErr == nil {
		key := diffID.String()
		if entry, ok, err := opts.Cache.Get(key); err == nil && ok {
			return os.Open(entry.Path)
		}

		rc, err := layer.Uncompressed()
		if err != nil {
			return nil, err
		}
		entry, putErr := opts.Cache.Put(key, rc)
		closeErr := rc.Close()
		if putErr != nil {
			return nil, putErr
		}
		if closeErr != nil {
			return nil, closeErr
		}
		return os.Open(entry.Path)
	}

	rc, err := layer.Uncompressed()
	if err != nil {
		return nil, err
	}
	if !opts.VerifyDigests || diffErr != nil {
		return rc, nil
	}
	return &digestVerifyingReader{ReadCloser: rc, hash: sha256.New(), want: diffID.Hex}, nil
}

// digestVerifyingReader hashes everything read through it and checks
// the running sum against want once the stream is closed, which is
// always after ApplyLayer has consumed it to EOF.
type digestVerifyingReader struct {
	io.ReadCloser
	hash hash.Hash
	want string
}

func (d *digestVerifyingReader) Read(p []byte) (int, error) {
	n, err := d.ReadCloser.Read(p)
	if n > 0 {
		d.hash.Write(p[:n])
	}
	return n, err
}

func (d *digestVerifyingReader) Close() error {
	if err := d.ReadCloser.Close(); err != nil {
		return err
	}
	got := hex.EncodeToString(d.hash.Sum(nil))
	if got != d.want {
		return xerr.New(scope, xerr.KindVerificationFailed,
			fmt.Sprintf("layer digest mismatch: want %s, got %s", d.want, got))
	}
	return nil
}
