package builder

import (
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/nixpig/xenomorph/internal/xerr"
)

// Options configures Build.
type Options struct {
	SkipVerify    bool
	VerifyDigests bool
	Registry      RegistryClient // nil defaults to UnimplementedRegistryClient
	Cache         *Cache         // nil disables the blob cache entirely
}

// Result is Build's public return value.
type Result struct {
	RootfsPath  string
	LayerCount  int
	TotalSize   int64
	ImageConfig *ImageConfig
}

// Build materializes imageRef into targetDir, dispatching to the
// tarball, OCI-layout, or registry source path by this rule: a path
// ending in .tar/.tar.gz/.tgz, or a directory containing an oci-layout
// file, is local; everything else is a registry reference.
func Build(imageRef, targetDir string, opts Options) (*Result, error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, xerr.Wrap(scope, xerr.KindIoError, "create target directory", err)
	}

	switch {
	case isTarballPath(imageRef):
		return buildFromTarball(imageRef, targetDir)
	case isDir(imageRef) && IsOCILayout(imageRef):
		res, err := buildFromOCILayout(imageRef, targetDir, opts)
		if err != nil {
			return nil, err
		}
		return toResult(targetDir, res), nil
	default:
		ref, err := ParseImageReference(imageRef)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindInvalidImage, "parse image reference", err)
		}
		client := opts.Registry
		if client == nil {
			client = UnimplementedRegistryClient{}
		}
		res, err := buildFromRegistry(client, ref, targetDir, opts)
		if err != nil {
			return nil, err
		}
		return toResult(targetDir, res), nil
	}
}

func toResult(targetDir string, res *extractImageResult) *Result {
	return &Result{
		RootfsPath:  targetDir,
		LayerCount:  res.LayerCount,
		TotalSize:   res.TotalSize,
		ImageConfig: res.Config,
	}
}

func isTarballPath(path string) bool {
	return strings.HasSuffix(path, ".tar") || strings.HasSuffix(path, ".tar.gz") || strings.HasSuffix(path, ".tgz")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// buildFromTarball extracts a single-layer tarball at path: compression
// is inferred from the filename suffix and whiteouts are processed
// during extraction, same as any other layer.
func buildFromTarball(path, target string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindIoError, "open tarball", err)
	}
	defer f.Close()

	compression := CompressionFromSuffix(path)

	var r io.Reader = f
	switch compression {
	case CompressionGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "open gzip tarball", err)
		}
		defer gr.Close()
		r = gr
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "open zstd tarball", err)
		}
		defer zr.Close()
		r = zr
	}

	if err := ApplyLayer(target, r); err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		return nil, xerr.Wrap(scope, xerr.KindIoError, "stat tarball", err)
	}

	return &Result{
		RootfsPath: target,
		LayerCount: 1,
		TotalSize:  EstimateTarballSize(info.Size(), compression),
	}, nil
}
