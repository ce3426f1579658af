package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// MakefileName is the build file every kernel directory carries.
const MakefileName = "Makefile"

var (
	kernPattern = regexp.MustCompile(`KERN=(\w+)`)
	algPattern  = regexp.MustCompile(`ALG=(\w+)`)
)

// Metadata is the build metadata read from a kernel's Makefile.
type Metadata struct {
	Kernel    string
	Algorithm string
}

// Name returns the canonical kernel name, KERN_ALG.
func (m Metadata) Name() string {
	return m.Kernel + "_" + m.Algorithm
}

// ExtractMetadata reads dir/Makefile and returns the first KERN= and ALG=
// values found anywhere in it.
func ExtractMetadata(dir string) (Metadata, error) {
	path := filepath.Join(dir, MakefileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, hberrors.New(hberrors.ErrCodeFileNotFound,
				fmt.Sprintf("Makefile not found at %s", path), err).
				WithDetail("artifact", MakefileName).
				WithDetail("path", path)
		}
		return Metadata{}, hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot read Makefile at %s", path), err).
			WithDetail("path", path)
	}

	return ParseMakefile(string(data), path)
}

// ParseMakefile extracts KERN and ALG from Makefile text. path is only
// used in error messages.
func ParseMakefile(text, path string) (Metadata, error) {
	kern := kernPattern.FindStringSubmatch(text)
	if kern == nil {
		return Metadata{}, missingVar("KERN", path)
	}
	alg := algPattern.FindStringSubmatch(text)
	if alg == nil {
		return Metadata{}, missingVar("ALG", path)
	}
	return Metadata{Kernel: kern[1], Algorithm: alg[1]}, nil
}

func missingVar(key, path string) error {
	return hberrors.New(hberrors.ErrCodeMissingBuildVar,
		fmt.Sprintf("could not find %s= in Makefile at %s", key, path), nil).
		WithDetail("artifact", key).
		WithDetail("path", path).
		WithSuggestion(fmt.Sprintf("Add a %s=<name> line to the kernel Makefile", key))
}
