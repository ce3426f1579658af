package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), DriverSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:           id,
		StartedAt:    started,
		Duration:     1500 * time.Millisecond,
		Status:       StatusPartial,
		ArchivePath:  "hls-machsuite.tar.gz",
		ArchiveBytes: 4096,
		Resolver:     "pattern",
		Outcomes: []Outcome{
			{KernelPath: "aes/aes", CanonicalName: "aes_aes", TopFunction: "aes256_encrypt", Status: StatusOK},
			{KernelPath: "sort/merge", CanonicalName: "sort_merge", Status: StatusFailed,
				ErrorCode: "ERR_410_DESCRIPTION_NOT_FOUND", ErrorMessage: "no description found for kernel sort_merge"},
		},
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	// Given: a ledger with one recorded run
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleRun("run-1", time.Unix(1_700_000_000, 123))
	require.NoError(t, s.RecordRun(ctx, want))

	// When: listing recent runs
	runs, err := s.Recent(ctx, 10)

	// Then: the run round-trips with its outcomes
	require.NoError(t, err)
	require.Len(t, runs, 1)
	if diff := cmp.Diff(want, runs[0]); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
	ok, failed := runs[0].Counts()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
}

func TestStore_RecentNewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRun(ctx, sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := s.Recent(ctx, 3)

	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-3", runs[1].ID)
	assert.Equal(t, "run-2", runs[2].ID)
}

func TestStore_DuplicateRunIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := sampleRun("dup", time.Now())
	require.NoError(t, s.RecordRun(ctx, run))

	err := s.RecordRun(ctx, run)

	require.Error(t, err)
	outcomes, err := s.Outcomes(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, err := Open(path, "")
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(context.Background(), sampleRun("r", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path, DriverSQLite)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, path, s.Path())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "l.db"), "postgres")

	assert.ErrorContains(t, err, "unsupported ledger driver")
}

func TestRun_CountsEmpty(t *testing.T) {
	ok, failed := Run{}.Counts()

	assert.Zero(t, ok)
	assert.Zero(t, failed)
}
