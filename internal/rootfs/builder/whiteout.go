package builder

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const (
	whiteoutPrefix    = ".wh."
	whiteoutOpaqueDir = ".wh..wh..opq"
)

// isWhiteout reports whether name is a whiteout marker of either kind.
func isWhiteout(name string) bool {
	return strings.HasPrefix(filepath.Base(name), whiteoutPrefix)
}

// isOpaqueMarker reports whether name is the opaque-directory marker.
func isOpaqueMarker(name string) bool {
	return filepath.Base(name) == whiteoutOpaqueDir
}

// whiteoutTarget returns the path a deletion whiteout ".wh.<name>"
// removes, relative to the layer root.
func whiteoutTarget(name string) string {
	dir := filepath.Dir(name)
	base := strings.TrimPrefix(filepath.Base(name), whiteoutPrefix)
	if dir == "." {
		return base
	}
	return filepath.Join(dir, base)
}

// ApplyLayer extracts one layer's tar stream onto target, honoring OCI
// whiteout conventions. Layers must be applied in manifest order, and
// whiteouts in a layer apply to the accumulated state below it.
//
// The stream is buffered to a temp file since a tar reader cannot be
// rewound: a first pass collects every whiteout and opaque marker so
// deletions can be applied before any of this layer's own content lands,
// and a second pass extracts the surviving entries. Applying deletions
// strictly before extraction, rather than interleaved, means a layer
// that both deletes and recreates the same path behaves correctly
// regardless of the two entries' order in the tar stream.
func ApplyLayer(target string, layer io.Reader) error {
	tmp, err := os.CreateTemp("", "xenomorph-layer-*.tar")
	if err != nil {
		return xerr.Wrap(scope, xerr.KindIoError, "buffer layer to temp file", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, layer); err != nil {
		return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "write layer to temp file", err)
	}

	deletions, opaqueDirs, err := scanWhiteouts(tmp.Name())
	if err != nil {
		return err
	}

	for _, dir := range opaqueDirs {
		if err := clearDirectoryContents(filepath.Join(target, dir)); err != nil {
			return err
		}
	}
	for _, path := range deletions {
		if err := os.RemoveAll(filepath.Join(target, path)); err != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "apply whiteout for "+path, err)
		}
	}

	return extractLayer(target, tmp.Name())
}

// scanWhiteouts makes a read-only pass over the tar stream to collect
// deletion and opaque-directory markers without extracting anything.
func scanWhiteouts(tarPath string) (deletions, opaqueDirs []string, err error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, nil, xerr.Wrap(scope, xerr.KindIoError, "reopen buffered layer", err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "scan layer tar", err)
		}

		name := cleanTarName(hdr.Name)
		switch {
		case isOpaqueMarker(name):
			opaqueDirs = append(opaqueDirs, filepath.Dir(name))
		case isWhiteout(name):
			deletions = append(deletions, whiteoutTarget(name))
		}
	}

	return deletions, opaqueDirs, nil
}

// extractLayer makes the writing pass, skipping any whiteout marker so
// none ever appears in the materialized tree.
func extractLayer(target, tarPath string) error {
	f, err := os.Open(tarPath)
	if err != nil {
		return xerr.Wrap(scope, xerr.KindIoError, "reopen buffered layer", err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "read layer tar", err)
		}

		name := cleanTarName(hdr.Name)
		if isWhiteout(name) {
			continue
		}

		if err := extractEntry(target, name, hdr, tr); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(target, name string, hdr *tar.Header, tr *tar.Reader) error {
	dest := filepath.Join(target, name)
	if !strings.HasPrefix(dest, filepath.Clean(target)+string(os.PathSeparator)) && dest != filepath.Clean(target) {
		return xerr.New(scope, xerr.KindLayerExtractionFailed, "layer entry escapes target: "+hdr.Name)
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return mkdirAllMode(dest, hdr.FileInfo().Mode())
	case tar.TypeReg, tar.TypeRegA:
		if err := mkdirAllMode(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, hdr.FileInfo().Mode())
		if err != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "create "+name, err)
		}
		_, copyErr := io.Copy(out, tr)
		closeErr := out.Close()
		if copyErr != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "write "+name, copyErr)
		}
		if closeErr != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "close "+name, closeErr)
		}
		return nil
	case tar.TypeSymlink:
		if err := mkdirAllMode(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		os.Remove(dest)
		if err := os.Symlink(hdr.Linkname, dest); err != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "symlink "+name, err)
		}
		return nil
	case tar.TypeLink:
		if err := mkdirAllMode(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		os.Remove(dest)
		if err := os.Link(filepath.Join(target, cleanTarName(hdr.Linkname)), dest); err != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "hardlink "+name, err)
		}
		return nil
	default:
		// device nodes, fifos: best-effort skip, since an unprivileged
		// caller (e.g. under tests) cannot create most of these anyway.
		return nil
	}
}

func mkdirAllMode(path string, mode os.FileMode) error {
	if err := os.MkdirAll(path, mode|0o700); err != nil {
		return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "mkdir "+path, err)
	}
	return nil
}

// clearDirectoryContents removes everything under dir without removing
// dir itself, implementing the opaque-directory marker's semantics.
func clearDirectoryContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "read opaque directory "+dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return xerr.Wrap(scope, xerr.KindLayerExtractionFailed, "clear opaque directory "+dir, err)
		}
	}
	return nil
}

func cleanTarName(name string) string {
	return strings.TrimPrefix(filepath.Clean("/"+name), "/")
}
