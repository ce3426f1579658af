// Package corpus defines the on-disk layout of a normalized HLS benchmark
// corpus and reads it back.
//
// Each kernel lives in a directory named by its canonical name (KERN_ALG)
// holding exactly five files:
//
//	<name>.h                 cleaned header
//	<name>.cpp               implementation, include repointed
//	<name>_dir.tcl           synthesis project script
//	top.txt                  entry-point function name plus newline
//	kernel_description.md    matched description, byte-exact
//
// A Design is the input bundle handed to downstream description-generation
// and synthesis tools.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fixed file names inside a kernel directory.
const (
	TopFile         = "top.txt"
	DescriptionFile = "kernel_description.md"
	HeaderExt       = ".h"
	SourceExt       = ".cpp"
	ScriptSuffix    = "_dir.tcl"
)

// ErrInvalidDesign is returned when a kernel directory does not hold the
// expected file set.
var ErrInvalidDesign = errors.New("invalid kernel directory")

// Design is one kernel directory loaded into memory.
type Design struct {
	Name        string
	Dir         string
	Header      string
	Source      string
	Script      string
	Top         string
	Description string
}

// Files returns the five file names a kernel directory named name holds,
// sorted.
func Files(name string) []string {
	files := []string{
		name + HeaderExt,
		name + SourceExt,
		name + ScriptSuffix,
		TopFile,
		DescriptionFile,
	}
	sort.Strings(files)
	return files
}

// WriteMarkers writes top.txt and kernel_description.md into dir.
func WriteMarkers(dir, top, description string) error {
	if err := os.WriteFile(filepath.Join(dir, TopFile), []byte(top+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", TopFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, DescriptionFile), []byte(description), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", DescriptionFile, err)
	}
	return nil
}

// ReadDesign loads the kernel directory dir. The directory must contain
// exactly the files Files(filepath.Base(dir)) names, all regular.
func ReadDesign(dir string) (*Design, error) {
	name := filepath.Base(dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel directory %s: %w", dir, err)
	}

	want := make(map[string]bool)
	for _, f := range Files(name) {
		want[f] = true
	}
	var unexpected []string
	for _, e := range entries {
		if !want[e.Name()] || !e.Type().IsRegular() {
			unexpected = append(unexpected, e.Name())
			continue
		}
		delete(want, e.Name())
	}
	if len(unexpected) > 0 || len(want) > 0 {
		missing := make([]string, 0, len(want))
		for f := range want {
			missing = append(missing, f)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("%w %s: missing [%s] unexpected [%s]", ErrInvalidDesign, name,
			strings.Join(missing, ", "), strings.Join(unexpected, ", "))
	}

	read := func(file string) (string, error) {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}

	d := &Design{Name: name, Dir: dir}
	fields := []struct {
		file string
		dst  *string
	}{
		{name + HeaderExt, &d.Header},
		{name + SourceExt, &d.Source},
		{name + ScriptSuffix, &d.Script},
		{TopFile, &d.Top},
		{DescriptionFile, &d.Description},
	}
	for _, f := range fields {
		if *f.dst, err = read(f.file); err != nil {
			return nil, err
		}
	}

	d.Top = strings.TrimSuffix(d.Top, "\n")
	if d.Top == "" || strings.ContainsAny(d.Top, " \t\n") {
		return nil, fmt.Errorf("%w %s: %s must hold a single function name", ErrInvalidDesign, name, TopFile)
	}
	return d, nil
}

// VerifyTree loads every kernel directory under root, sorted by name. Every
// entry of root must be a valid kernel directory; all problems are
// reported together.
func VerifyTree(root string) ([]*Design, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", root, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: corpus %s is empty", ErrInvalidDesign, root)
	}

	var (
		designs []*Design
		errs    []error
	)
	for _, e := range entries {
		if !e.IsDir() {
			errs = append(errs, fmt.Errorf("%w: unexpected file %s at corpus root", ErrInvalidDesign, e.Name()))
			continue
		}
		d, err := ReadDesign(filepath.Join(root, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		designs = append(designs, d)
	}
	return designs, errors.Join(errs...)
}
