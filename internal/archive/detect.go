// Package archive stages benchmark distributions and packages the
// normalized corpus.
//
// Inputs are recognized by content, never by file extension: zip by its
// local-file (or empty-archive) signature, tar by the ustar magic at offset
// 257, either raw or inside a gzip stream.
package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// Format is a recognized archive container.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTar   Format = "tar"
	FormatTarGz Format = "tar.gz"
)

const (
	tarBlockSize   = 512
	ustarOffset    = 257
	sniffBytesSize = tarBlockSize
)

var (
	zipLocalMagic = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
	ustarMagic    = []byte("ustar")
)

// Detect sniffs the container format of the file at path.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", hberrors.New(hberrors.ErrCodeFileNotFound,
				fmt.Sprintf("benchmark distribution not found at %s", path), err).
				WithDetail("path", path)
		}
		return "", hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot open %s", path), err).WithDetail("path", path)
	}
	defer f.Close()

	head := make([]byte, sniffBytesSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", hberrors.New(hberrors.ErrCodeArchiveCorrupt,
			fmt.Sprintf("cannot read %s", path), err).WithDetail("path", path)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipLocalMagic), bytes.HasPrefix(head, zipEmptyMagic):
		zr, err := zip.OpenReader(path)
		if err != nil {
			return "", hberrors.New(hberrors.ErrCodeArchiveCorrupt,
				fmt.Sprintf("%s has a zip signature but cannot be read", path), err).
				WithDetail("path", path)
		}
		_ = zr.Close()
		return FormatZip, nil

	case isUstar(head):
		return FormatTar, nil

	case bytes.HasPrefix(head, gzipMagic):
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", hberrors.New(hberrors.ErrCodeArchiveCorrupt, err.Error(), err)
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", hberrors.New(hberrors.ErrCodeArchiveCorrupt,
				fmt.Sprintf("%s has a gzip signature but cannot be read", path), err).
				WithDetail("path", path)
		}
		defer gz.Close()
		inner := make([]byte, sniffBytesSize)
		n, _ := io.ReadFull(gz, inner)
		if isUstar(inner[:n]) {
			return FormatTarGz, nil
		}
	}

	return "", hberrors.New(hberrors.ErrCodeUnsupportedArchive,
		fmt.Sprintf("benchmark distribution is not a zip or tar file: %s", path), nil).
		WithDetail("path", path).
		WithSuggestion("Provide the MachSuite distribution as a .zip, .tar or .tar.gz")
}

func isUstar(block []byte) bool {
	if len(block) < ustarOffset+len(ustarMagic) {
		return false
	}
	return bytes.Equal(block[ustarOffset:ustarOffset+len(ustarMagic)], ustarMagic)
}
