package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// StagingDirName is the directory under the work dir that receives the
// extracted distribution.
const StagingDirName = "tmp"

// Flatten moves every entry of dir/folder up into dir and removes the
// emptied folder.
func Flatten(dir, folder string) error {
	inner := filepath.Join(dir, folder)
	info, err := os.Stat(inner)
	if err != nil || !info.IsDir() {
		return hberrors.New(hberrors.ErrCodeArchiveCorrupt,
			fmt.Sprintf("expected top-level folder %q in the archive", folder), err).
			WithDetail("path", inner).
			WithSuggestion("Set input.root_folder to the archive's top-level folder")
	}

	entries, err := os.ReadDir(inner)
	if err != nil {
		return hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot list %s", inner), err)
	}

	for _, e := range entries {
		to := filepath.Join(dir, e.Name())
		if _, err := os.Lstat(to); err == nil {
			return hberrors.Newf(hberrors.ErrCodeArchiveCorrupt,
				"cannot flatten %s: %s already exists next to it", folder, e.Name()).
				WithDetail("path", to)
		}
		if err := os.Rename(filepath.Join(inner, e.Name()), to); err != nil {
			return writeError(to, err)
		}
	}

	if err := os.Remove(inner); err != nil {
		return writeError(inner, err)
	}
	return nil
}

// Stage extracts the distribution at archivePath into workDir/tmp and
// flattens rootFolder when it is non-empty. Returns the staging root.
func Stage(ctx context.Context, archivePath, workDir, rootFolder string) (string, error) {
	staging := filepath.Join(workDir, StagingDirName)
	if err := os.RemoveAll(staging); err != nil {
		return "", writeError(staging, err)
	}
	if err := Extract(ctx, archivePath, staging); err != nil {
		return "", err
	}
	if rootFolder != "" {
		if err := Flatten(staging, rootFolder); err != nil {
			return "", err
		}
	}
	return staging, nil
}
