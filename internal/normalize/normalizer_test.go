package normalize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/kernel"
	"github.com/Aman-CERP/hlsbench/internal/testutil"
)

// writeKernel lays out one kernel's files under a fresh directory.
func writeKernel(t *testing.T, k testutil.Kernel) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range testutil.Files("", []testutil.Kernel{k}) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return filepath.Join(root, filepath.FromSlash(k.Path))
}

func TestNormalize_AESKernel(t *testing.T) {
	// Given: the aes/aes kernel
	k := testutil.AESKernel()
	dir := writeKernel(t, k)
	out := t.TempDir()
	n := New(Options{}, nil)

	// When: normalizing
	res, err := n.Normalize(context.Background(), Input{
		Dir:      dir,
		Metadata: kernel.Metadata{Kernel: "aes", Algorithm: "aes"},
		OutDir:   out,
	})

	// Then: canonical files exist with rewritten content
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "aes_aes"), res.Dir)
	assert.Equal(t, filepath.Join(out, "aes_aes", "aes_aes.h"), res.HeaderPath)
	assert.Equal(t, filepath.Join(out, "aes_aes", "aes_aes.cpp"), res.SourcePath)
	assert.Equal(t, filepath.Join(out, "aes_aes", "aes_aes_dir.tcl"), res.ScriptPath)

	header, err := os.ReadFile(res.HeaderPath)
	require.NoError(t, err)
	assert.Equal(t, string(res.Header), string(header))
	assert.True(t, strings.HasPrefix(string(header), StdintInclude))
	assert.Contains(t, string(header), "void aes256_encrypt(uint8_t*, uint8_t*, uint8_t*);")

	source, err := os.ReadFile(res.SourcePath)
	require.NoError(t, err)
	assert.Contains(t, string(source), `#include "aes_aes.h"`)
	assert.NotContains(t, string(source), `#include "aes.h"`)

	script, err := os.ReadFile(res.ScriptPath)
	require.NoError(t, err)
	assert.Equal(t, k.Script, string(script))

	entries, err := os.ReadDir(res.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestNormalize_RecreatesOutputDirectory(t *testing.T) {
	// Given: a stale file in the kernel's output directory
	k := testutil.NewKernel("sort/merge")
	dir := writeKernel(t, k)
	out := t.TempDir()
	stale := filepath.Join(out, "sort_merge", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	// When: normalizing twice
	n := New(Options{SlashPolicy: SlashStripLines}, nil)
	in := Input{Dir: dir, Metadata: kernel.Metadata{Kernel: "sort", Algorithm: "merge"}, OutDir: out}
	first, err := n.Normalize(context.Background(), in)
	require.NoError(t, err)
	second, err := n.Normalize(context.Background(), in)
	require.NoError(t, err)

	// Then: the stale file is gone and output is byte-identical
	assert.NoFileExists(t, stale)
	assert.Equal(t, first.Header, second.Header)
}

func TestNormalize_MissingFiles(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(k *testutil.Kernel)
		artifact string
	}{
		{"header", func(k *testutil.Kernel) { k.Header = "" }, "merge.h"},
		{"source", func(k *testutil.Kernel) { k.Source = "" }, "merge.c"},
		{"script", func(k *testutil.Kernel) { k.ScriptName = "" }, ScriptGlob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a kernel missing one artifact (KERN=merge here)
			k := testutil.NewKernel("sort/merge")
			k.Kern = "merge"
			tt.mutate(&k)
			dir := writeKernel(t, k)

			// When: normalizing
			_, err := New(Options{}, nil).Normalize(context.Background(), Input{
				Dir:      dir,
				Metadata: kernel.Metadata{Kernel: "merge", Algorithm: "merge"},
				OutDir:   t.TempDir(),
			})

			// Then: a file-not-found error names the artifact
			require.Error(t, err)
			assert.True(t, hberrors.HasCode(err, hberrors.ErrCodeFileNotFound))
			assert.Contains(t, err.Error(), tt.artifact)
		})
	}
}

func TestFindScript_RegularFilesSortedFirstWins(t *testing.T) {
	// Given: two *_dir files and a *_dir directory
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z_dir"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_dir"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a_dir"), 0o755))

	// When: finding the script
	got, err := FindScript(dir, nil)

	// Then: the directory is skipped and lexical order decides
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b_dir"), got)
}

func TestFindScript_OnlyDirectoryMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "gemm_dir"), 0o755))

	_, err := FindScript(dir, nil)

	assert.True(t, hberrors.HasCode(err, hberrors.ErrCodeFileNotFound))
}

func TestNormalize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}, nil).Normalize(ctx, Input{Dir: t.TempDir(), OutDir: t.TempDir()})

	assert.ErrorIs(t, err, context.Canceled)
}
