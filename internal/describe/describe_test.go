package describe

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/testutil"
)

const doc = `# MachSuite Kernel Descriptions

Intro text that belongs to no kernel.

## aes_aes

AES-256 encryption of one block.

### Top-Level Function

` + "`aes256_encrypt`" + `

## sort_merge
Merge sort over 2048 integers.

` + "```markdown\n## not_a_heading\n```" + `

Trailing text.
`

func TestParse_Sections(t *testing.T) {
	// Given: a document with two kernels and a fenced pseudo-heading
	// When: parsing
	c, err := Parse(doc)

	// Then: only level-two headings outside fences start sections
	require.NoError(t, err)
	assert.Equal(t, []string{"aes_aes", "sort_merge"}, c.Names())
	assert.Equal(t, 2, c.Len())

	aes, err := c.Lookup("aes_aes")
	require.NoError(t, err)
	assert.Equal(t, "AES-256 encryption of one block.\n\n### Top-Level Function\n\n`aes256_encrypt`", aes)

	merge, err := c.Lookup("sort_merge")
	require.NoError(t, err)
	assert.Equal(t, "Merge sort over 2048 integers.\n\n```markdown\n## not_a_heading\n```\n\nTrailing text.", merge)
}

func TestParse_BodiesMatchGeneratedDocument(t *testing.T) {
	names := []string{"aes_aes", "bfs_bulk", "viterbi_viterbi"}

	c, err := Parse(testutil.Descriptions(names...))

	require.NoError(t, err)
	for _, n := range names {
		body, err := c.Lookup(n)
		require.NoError(t, err)
		assert.Equal(t, testutil.DescriptionBody(n), body)
	}
}

func TestParse_DuplicateHeading(t *testing.T) {
	_, err := Parse("## gemm_ncubed\none\n\n## gemm_ncubed\ntwo\n")

	require.Error(t, err)
	assert.True(t, hberrors.HasCode(err, hberrors.ErrCodeDuplicateDescription))
	assert.Contains(t, err.Error(), "gemm_ncubed")
}

func TestParse_HeadingLevels(t *testing.T) {
	// "#", "###" and "##x" are not level-two headings
	c, err := Parse("# title\n##nospace\n## real \nbody\n### sub\n##\n")

	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, c.Names())
	body, err := c.Lookup("real")
	require.NoError(t, err)
	assert.Equal(t, "body\n### sub\n##", body)
}

func TestParse_CRLF(t *testing.T) {
	c, err := Parse("## md_knn\r\n\r\nNeighbors.\r\n")

	require.NoError(t, err)
	body, err := c.Lookup("md_knn")
	require.NoError(t, err)
	assert.Equal(t, "Neighbors.", body)
}

func TestParse_EmptySection(t *testing.T) {
	c, err := Parse("## nw_nw\n## kmp_kmp\ntext\n")

	require.NoError(t, err)
	body, err := c.Lookup("nw_nw")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestLookup_MissingNamesKernel(t *testing.T) {
	// Given: a document without sort_merge
	c, err := Parse(testutil.Descriptions("aes_aes"))
	require.NoError(t, err)

	// When: looking it up
	_, err = c.Lookup("sort_merge")

	// Then: the error names the kernel
	require.Error(t, err)
	assert.True(t, hberrors.HasCode(err, hberrors.ErrCodeDescriptionNotFound))
	assert.Contains(t, err.Error(), "sort_merge")
}

func TestCache_ReusesUntilFileChanges(t *testing.T) {
	// Given: a description document on disk
	path := filepath.Join(t.TempDir(), "kernel_descriptions.md")
	require.NoError(t, os.WriteFile(path, []byte(testutil.Descriptions("aes_aes")), 0o644))
	cache := NewCache(0)

	// When: loading twice without changes
	first, err := cache.Load(path)
	require.NoError(t, err)
	second, err := cache.Load(path)
	require.NoError(t, err)

	// Then: the parsed corpus is reused
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())
	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// When: the file changes
	require.NoError(t, os.WriteFile(path, []byte(testutil.Descriptions("aes_aes", "nw_nw")), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	third, err := cache.Load(path)

	// Then: it is parsed again
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, third.Len())
}

func TestCache_MissingFile(t *testing.T) {
	_, err := NewCache(1).Load(filepath.Join(t.TempDir(), "absent.md"))

	assert.True(t, hberrors.HasCode(err, hberrors.ErrCodeFileNotFound))
}

func TestCache_ParseErrorNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.md")
	require.NoError(t, os.WriteFile(path, []byte("## a\n## a\n"), 0o644))
	cache := NewCache(1)

	_, err := cache.Load(path)

	assert.True(t, hberrors.HasCode(err, hberrors.ErrCodeDuplicateDescription))
	assert.Equal(t, 0, cache.Len())
}

func TestCache_ConcurrentLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel_descriptions.md")
	require.NoError(t, os.WriteFile(path, []byte(testutil.Descriptions("aes_aes")), 0o644))
	cache := NewCache(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := cache.Load(path)
			assert.NoError(t, err)
			assert.Equal(t, 1, c.Len())
		}()
	}
	wg.Wait()
}
