package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// WriteTarGz packages srcDir into a gzip-compressed tar at dest. The root
// entry is the base name of srcDir and entries appear in lexical order.
// Owner ids and names are cleared. Returns the archive size in bytes.
func WriteTarGz(ctx context.Context, srcDir, dest string) (int64, error) {
	srcDir = filepath.Clean(srcDir)
	root := filepath.Base(srcDir)

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return 0, hberrors.Wrap(hberrors.ErrCodeInvalidPath, err)
	}

	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, writeError(tmp, err)
	}
	defer func() { _ = os.Remove(tmp) }()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if abs, _ := filepath.Abs(p); abs == absDest || abs == absDest+".partial" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = path.Join(root, filepath.ToSlash(rel))
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		hdr.ModTime = info.ModTime().Truncate(time.Second)
		hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		_ = f.Close()
		return err
	})

	if walkErr != nil {
		_ = tw.Close()
		_ = gz.Close()
		_ = out.Close()
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, writeError(dest, walkErr)
	}
	if err := tw.Close(); err != nil {
		_ = out.Close()
		return 0, writeError(dest, err)
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		return 0, writeError(dest, err)
	}
	if err := out.Close(); err != nil {
		return 0, writeError(dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, writeError(dest, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, writeError(dest, err)
	}
	return info.Size(), nil
}

// ListTarGz returns the entry names of a gzip-compressed tar in archive
// order.
func ListTarGz(p string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, hberrors.New(hberrors.ErrCodeFileNotFound,
			fmt.Sprintf("archive not found at %s", p), err).WithDetail("path", p)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, hberrors.New(hberrors.ErrCodeArchiveCorrupt,
			fmt.Sprintf("%s is not gzip-compressed", p), err)
	}
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, hberrors.New(hberrors.ErrCodeArchiveCorrupt,
				fmt.Sprintf("cannot read tar %s", p), err)
		}
		names = append(names, hdr.Name)
	}
}
