package assemble

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// moveDir moves src to dst, copying when the two are on different
// filesystems.
func moveDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return moveErr(dst, err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return moveErr(dst, err)
	}

	if err := copyTree(src, dst); err != nil {
		return moveErr(dst, err)
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func moveErr(path string, err error) error {
	code := hberrors.ErrCodeFilePermission
	if errors.Is(err, syscall.ENOSPC) {
		code = hberrors.ErrCodeDiskFull
	}
	return hberrors.New(code, "cannot write "+path, err)
}
