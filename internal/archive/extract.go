package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// Extract unpacks the archive at src into dest, creating dest if needed.
// Entries that would land outside dest are rejected.
func Extract(ctx context.Context, src, dest string) error {
	format, err := Detect(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return writeError(dest, err)
	}

	switch format {
	case FormatZip:
		return extractZip(ctx, src, dest)
	case FormatTar, FormatTarGz:
		return extractTar(ctx, src, dest, format == FormatTarGz)
	default:
		return hberrors.Newf(hberrors.ErrCodeUnsupportedArchive, "unsupported archive format %q", format)
	}
}

func extractZip(ctx context.Context, src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return hberrors.New(hberrors.ErrCodeArchiveCorrupt,
			fmt.Sprintf("cannot read zip %s", src), err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir() || strings.HasSuffix(f.Name, "/"):
			if err := os.MkdirAll(target, 0o755); err != nil {
				return writeError(target, err)
			}
		case mode&os.ModeSymlink != 0:
			return hberrors.Newf(hberrors.ErrCodeNotImplemented,
				"symbolic link entries are not supported: %s", f.Name).
				WithDetail("entry", f.Name)
		default:
			rc, err := f.Open()
			if err != nil {
				return hberrors.New(hberrors.ErrCodeArchiveCorrupt,
					fmt.Sprintf("cannot read zip entry %s", f.Name), err)
			}
			err = writeFile(target, rc, filePerm(mode))
			_ = rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func extractTar(ctx context.Context, src, dest string, gzipped bool) error {
	file, err := os.Open(src)
	if err != nil {
		return hberrors.New(hberrors.ErrCodeFileNotFound, err.Error(), err)
	}
	defer file.Close()

	var r io.Reader = file
	if gzipped {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return hberrors.New(hberrors.ErrCodeArchiveCorrupt,
				fmt.Sprintf("cannot read gzip stream %s", src), err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return hberrors.New(hberrors.ErrCodeArchiveCorrupt,
				fmt.Sprintf("cannot read tar %s", src), err)
		}

		switch hdr.Typeflag {
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			// GitHub tarballs carry a pax global header with the commit id
			continue
		case tar.TypeDir:
			target, err := safeJoin(dest, hdr.Name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return writeError(target, err)
			}
		case tar.TypeReg:
			target, err := safeJoin(dest, hdr.Name)
			if err != nil {
				return err
			}
			if err := writeFile(target, tr, filePerm(hdr.FileInfo().Mode())); err != nil {
				return err
			}
		default:
			return hberrors.Newf(hberrors.ErrCodeNotImplemented,
				"tar entry type %q is not supported: %s", string(hdr.Typeflag), hdr.Name).
				WithDetail("entry", hdr.Name)
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return writeError(target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return writeError(target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		if errors.Is(err, syscall.ENOSPC) {
			return writeError(target, err)
		}
		return hberrors.New(hberrors.ErrCodeArchiveCorrupt,
			fmt.Sprintf("cannot extract %s", target), err)
	}
	if err := out.Close(); err != nil {
		return writeError(target, err)
	}
	return nil
}

func filePerm(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o644
	}
	// Always owner-writable so the staging dir can be removed
	return perm | 0o200
}

// safeJoin joins an archive entry name onto base, rejecting absolute names
// and names that climb out of base.
func safeJoin(base, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if clean == "." || clean == "" {
		return "", invalidEntry(name)
	}
	if filepath.IsAbs(clean) {
		return "", invalidEntry(name)
	}
	target := filepath.Join(base, clean)
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", invalidEntry(name)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", invalidEntry(name)
	}
	return target, nil
}

func invalidEntry(name string) error {
	return hberrors.Newf(hberrors.ErrCodeInvalidPath, "archive entry escapes the destination: %s", name).
		WithDetail("entry", name)
}

// writeError classifies a filesystem write failure.
func writeError(path string, err error) error {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return hberrors.New(hberrors.ErrCodeDiskFull,
			fmt.Sprintf("no space left writing %s", path), err).
			WithDetail("path", path).
			WithSuggestion("Free disk space or point the work directory elsewhere")
	case os.IsPermission(err):
		return hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("permission denied writing %s", path), err).
			WithDetail("path", path)
	default:
		return hberrors.New(hberrors.ErrCodeInternal,
			fmt.Sprintf("cannot write %s", path), err).
			WithDetail("path", path)
	}
}
