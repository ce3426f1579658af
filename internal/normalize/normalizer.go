package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/kernel"
)

// ScriptGlob matches the synthesis directive script in a kernel directory.
const ScriptGlob = "*_dir"

// Input is one kernel to normalize.
type Input struct {
	// Dir is the kernel source directory.
	Dir string
	// Metadata names the source files and the canonical output.
	Metadata kernel.Metadata
	// OutDir receives the <canonical> subdirectory.
	OutDir string
}

// Output describes the files written for one kernel.
type Output struct {
	Dir        string
	HeaderPath string
	SourcePath string
	ScriptPath string
	// Header is the cleaned header text, for top-function resolution.
	Header []byte
}

// Normalizer copies and rewrites kernel sources into the canonical layout.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Normalizer. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Normalizer {
	if opts.SlashPolicy == "" {
		opts.SlashPolicy = SlashTruncate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// Options returns the cleanup options in effect.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize writes <canonical>.h, <canonical>.cpp and <canonical>_dir.tcl
// into a freshly recreated OutDir/<canonical>.
func (n *Normalizer) Normalize(ctx context.Context, in Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := in.Metadata.Name()
	kern := in.Metadata.Kernel
	outDir := filepath.Join(in.OutDir, name)

	if err := os.RemoveAll(outDir); err != nil {
		return nil, writeErr(outDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, writeErr(outDir, err)
	}

	header, err := readSource(in.Dir, kern+".h")
	if err != nil {
		return nil, err
	}
	source, err := readSource(in.Dir, kern+".c")
	if err != nil {
		return nil, err
	}
	script, err := FindScript(in.Dir, n.logger)
	if err != nil {
		return nil, err
	}

	cleaned := CleanHeader(string(header), n.opts)
	out := &Output{
		Dir:        outDir,
		HeaderPath: filepath.Join(outDir, name+".h"),
		SourcePath: filepath.Join(outDir, name+".cpp"),
		ScriptPath: filepath.Join(outDir, name+"_dir.tcl"),
		Header:     []byte(cleaned),
	}

	if err := os.WriteFile(out.HeaderPath, out.Header, 0o644); err != nil {
		return nil, writeErr(out.HeaderPath, err)
	}
	rewritten := RewriteInclude(string(source), kern, name)
	if err := os.WriteFile(out.SourcePath, []byte(rewritten), 0o644); err != nil {
		return nil, writeErr(out.SourcePath, err)
	}
	if err := copyFile(script, out.ScriptPath); err != nil {
		return nil, err
	}

	n.logger.Debug("kernel_normalized",
		slog.String("kernel", name),
		slog.String("dir", outDir),
		slog.String("script", filepath.Base(script)))
	return out, nil
}

// FindScript returns the synthesis script in dir: the first regular file
// matching *_dir in lexical order.
func FindScript(dir string, logger *slog.Logger) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ScriptGlob))
	if err != nil {
		return "", hberrors.InternalError("bad script pattern", err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return "", hberrors.Newf(hberrors.ErrCodeFileNotFound,
			"no %s synthesis script found in %s", ScriptGlob, dir).
			WithDetail("artifact", ScriptGlob).
			WithDetail("path", dir)
	}

	sort.Strings(files)
	if len(files) > 1 && logger != nil {
		logger.Warn("multiple_scripts",
			slog.String("dir", dir),
			slog.String("using", filepath.Base(files[0])),
			slog.Int("count", len(files)))
	}
	return files[0], nil
}

func readSource(dir, name string) ([]byte, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, hberrors.New(hberrors.ErrCodeFileNotFound,
				fmt.Sprintf("%s not found at %s", name, path), err).
				WithDetail("artifact", name).
				WithDetail("path", path)
		}
		return nil, hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot read %s", path), err).WithDetail("path", path)
	}
	return data, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot read %s", src), err).WithDetail("path", src)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(src); err == nil {
		mode = info.Mode().Perm() | 0o200
	}
	if err := os.WriteFile(dst, data, mode); err != nil {
		return writeErr(dst, err)
	}
	return nil
}

func writeErr(path string, err error) error {
	code := hberrors.ErrCodeInternal
	if os.IsPermission(err) {
		code = hberrors.ErrCodeFilePermission
	}
	return hberrors.New(code, fmt.Sprintf("cannot write %s", path), err).WithDetail("path", path)
}
