// Package kernel locates MachSuite kernel directories inside a staged
// archive and reads their build metadata.
package kernel

import (
	"path/filepath"
)

// DefaultPaths lists the kernel directories of the MachSuite distribution,
// relative to the flattened archive root. Order is preserved in the corpus.
var DefaultPaths = []string{
	"aes/aes",
	"bfs/bulk",
	"bfs/queue",
	"fft/strided",
	"fft/transpose",
	"gemm/ncubed",
	"gemm/blocked",
	"kmp/kmp",
	"md/knn",
	"md/grid",
	"nw/nw",
	"sort/merge",
	"sort/radix",
	"spmv/crs",
	"spmv/ellpack",
	"stencil/stencil2d",
	"stencil/stencil3d",
	"viterbi/viterbi",
}

// Location is one kernel directory inside the staging root.
type Location struct {
	// RelPath is the configured path, e.g. "sort/merge".
	RelPath string
	// Dir is the absolute directory under the staging root.
	Dir string
}

// Locate joins each path onto root. No filtering is done: a missing
// directory surfaces later as a missing Makefile naming the kernel.
func Locate(root string, paths []string) []Location {
	locs := make([]Location, 0, len(paths))
	for _, p := range paths {
		locs = append(locs, Location{
			RelPath: p,
			Dir:     filepath.Join(root, filepath.FromSlash(p)),
		})
	}
	return locs
}

// Record is one normalized kernel in the output corpus.
type Record struct {
	// SourcePath is the kernel path inside the archive.
	SourcePath string `json:"source_path"`
	// CanonicalName is KERN_ALG and names the output directory.
	CanonicalName string `json:"canonical_name"`
	// TopFunction is the resolved synthesis entry point.
	TopFunction string `json:"top_function"`
	// Description is the matched natural-language description.
	Description string `json:"description"`
}
