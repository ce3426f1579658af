// Package testutil builds synthetic MachSuite distributions for tests.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// RootFolder is the top-level folder of a GitHub MachSuite download.
const RootFolder = "MachSuite-master"

// Kernel describes one kernel directory of a synthetic distribution.
type Kernel struct {
	// Path is the directory relative to the root folder, e.g. "sort/merge".
	Path     string
	Makefile string
	// Kern is the file stem of the header and implementation.
	Kern   string
	Header string
	Source string
	// ScriptName is the *_dir file name; empty means no script.
	ScriptName string
	Script     string
	// Top is the expected resolved entry point.
	Top string
}

// CanonicalName returns KERN_ALG for kernels built by NewKernel.
func (k Kernel) CanonicalName() string {
	return strings.ReplaceAll(k.Path, "/", "_")
}

// NewKernel builds a kernel at path ("family/variant") shaped like a real
// MachSuite kernel: KERN is the family, ALG the variant, the header has a
// helper prototype, the entry point, and a test-harness tail.
func NewKernel(p string) Kernel {
	family, variant := path.Split(p)
	family = strings.TrimSuffix(family, "/")
	top := family + "_" + variant + "_top"

	header := fmt.Sprintf(`/*
Implementation of %[1]s (%[2]s).
*/
#include <stdio.h>
#include <stdlib.h>
#include "support.h"

#define SIZE 64
#define TYPE int32_t

void %[1]s_helper(TYPE a[SIZE], int n);
void %[3]s(TYPE a[SIZE], TYPE b[SIZE]);

////////////////////////////////////////////////////////////////////////////////
// Test harness interface code.

struct bench_args_t {
  TYPE a[SIZE];
  TYPE b[SIZE];
};
int INPUT_SIZE = sizeof(struct bench_args_t);
`, family, variant, top)

	source := fmt.Sprintf(`#include "%[1]s.h"

void %[1]s_helper(TYPE a[SIZE], int n) {
  for (int i = 0; i < n; i++) a[i] = a[i] + 1;
}

void %[2]s(TYPE a[SIZE], TYPE b[SIZE]) {
  %[1]s_helper(a, SIZE);
  for (int i = 0; i < SIZE; i++) b[i] = a[i];
}
`, family, top)

	return Kernel{
		Path:       p,
		Makefile:   fmt.Sprintf("KERN=%s\nALG=%s\n\nSRCS=$(KERN).c local_support.c ../../common/support.c\n", family, variant),
		Kern:       family,
		Header:     header,
		Source:     source,
		ScriptName: variant + "_dir",
		Script:     fmt.Sprintf("set_directive_pipeline \"%s/loop\"\n", top),
		Top:        top,
	}
}

// AESKernel mirrors the aes/aes kernel: KERN=aes ALG=aes, with
// aes256_encrypt declared last.
func AESKernel() Kernel {
	return Kernel{
		Path:     "aes/aes",
		Makefile: "KERN=aes\nALG=aes\n",
		Kern:     "aes",
		Header: `/*
*   Byte-oriented AES-256 implementation.
*   All lookup tables replaced with 'on the fly' calculations.
*/
#include "support.h"

typedef struct {
  uint8_t key[32];
  uint8_t enckey[32];
  uint8_t deckey[32];
} aes256_context;

void aes_expandEncKey(uint8_t *k, uint8_t *rc);
void aes256_encrypt(uint8_t*, uint8_t*, uint8_t*);

////////////////////////////////////////////////////////////////////////////////
// Test harness interface code.

struct bench_args_t {
  aes256_context ctx;
  uint8_t k[32];
  uint8_t buf[16];
};
`,
		Source:     "#include \"aes.h\"\n\nvoid aes256_encrypt(uint8_t *ctx, uint8_t *k, uint8_t *buf) {}\n",
		ScriptName: "aes_dir",
		Script:     "set_directive_inline \"aes_expandEncKey\"\n",
		Top:        "aes256_encrypt",
	}
}

// Kernels builds NewKernel for every path, using AESKernel for aes/aes.
func Kernels(paths []string) []Kernel {
	out := make([]Kernel, 0, len(paths))
	for _, p := range paths {
		if p == "aes/aes" {
			out = append(out, AESKernel())
			continue
		}
		out = append(out, NewKernel(p))
	}
	return out
}

// Files lays the kernels out under root ("" for no root folder) the way the
// distribution does. Keys use forward slashes.
func Files(root string, kernels []Kernel) map[string]string {
	files := make(map[string]string)
	files[path.Join(root, "README.md")] = "MachSuite\n"
	files[path.Join(root, "common", "support.h")] = "#include <stdint.h>\n"
	for _, k := range kernels {
		dir := path.Join(root, k.Path)
		files[path.Join(dir, "Makefile")] = k.Makefile
		if k.Header != "" {
			files[path.Join(dir, k.Kern+".h")] = k.Header
		}
		if k.Source != "" {
			files[path.Join(dir, k.Kern+".c")] = k.Source
		}
		if k.ScriptName != "" {
			files[path.Join(dir, k.ScriptName)] = k.Script
		}
		files[path.Join(dir, "local_support.c")] = "int check_data(void) { return 1; }\n"
	}
	return files
}

// Descriptions renders a description document with one section per
// canonical name. The body of each section is "Description of <name>.".
func Descriptions(names ...string) string {
	var b strings.Builder
	b.WriteString("# MachSuite Kernel Descriptions\n\n")
	for _, n := range names {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", n, DescriptionBody(n))
	}
	return b.String()
}

// DescriptionBody is the body Descriptions writes for name.
func DescriptionBody(name string) string {
	return fmt.Sprintf("Description of %s.\n\n### Top-Level Function\n\nSee top.txt.", name)
}

// WriteZip writes files into a zip archive at dest, in sorted order.
func WriteZip(t testing.TB, dest string, files map[string]string) {
	t.Helper()
	f, err := os.Create(dest)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range sortedKeys(files) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

// WriteTar writes files into a tar archive at dest, gzip-compressed when
// gzipped is set.
func WriteTar(t testing.TB, dest string, files map[string]string, gzipped bool) {
	t.Helper()
	f, err := os.Create(dest)
	if err != nil {
		t.Fatalf("create tar: %v", err)
	}
	defer f.Close()

	var gz *gzip.Writer
	var tw *tar.Writer
	if gzipped {
		gz = gzip.NewWriter(f)
		tw = tar.NewWriter(gz)
	} else {
		tw = tar.NewWriter(f)
	}
	for _, name := range sortedKeys(files) {
		body := files[name]
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg, Format: tar.FormatUSTAR}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("tar write %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			t.Fatalf("close gzip: %v", err)
		}
	}
}

// Distribution writes a full synthetic MachSuite zip plus a matching
// description document into dir and returns their paths.
func Distribution(t testing.TB, dir string, kernels []Kernel) (archivePath, descriptionsPath string) {
	t.Helper()
	archivePath = filepath.Join(dir, "MachSuite-master-test.zip")
	WriteZip(t, archivePath, Files(RootFolder, kernels))

	names := make([]string, 0, len(kernels))
	for _, k := range kernels {
		names = append(names, k.CanonicalName())
	}
	descriptionsPath = filepath.Join(dir, "kernel_descriptions.md")
	if err := os.WriteFile(descriptionsPath, []byte(Descriptions(names...)), 0o644); err != nil {
		t.Fatalf("write descriptions: %v", err)
	}
	return archivePath, descriptionsPath
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
