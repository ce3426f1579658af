package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRenderer_Empty(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, NewHistoryRenderer(buf, true).Render(nil))

	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestHistoryRenderer_Table(t *testing.T) {
	// Given: two recorded runs, one partial
	runs := []RunInfo{
		{
			ID:           "0f1e2d3c-aaaa-bbbb-cccc-000000000000",
			StartedAt:    time.Now().Add(-2 * time.Hour),
			Duration:     1234 * time.Millisecond,
			Status:       "partial",
			Kernels:      17,
			Failed:       1,
			ArchiveBytes: 1_200_000,
			Failures:     []string{"sort/merge: no description found for kernel sort_merge"},
		},
		{ID: "short", StartedAt: time.Now(), Status: "ok", Kernels: 18},
	}
	buf := &bytes.Buffer{}

	// When: rendering without color
	require.NoError(t, NewHistoryRenderer(buf, true).Render(runs))

	// Then: the table has a header, short IDs, human sizes and failures
	out := buf.String()
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "0f1e2d3c")
	assert.NotContains(t, out, "0f1e2d3c-aaaa")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "1.2 MB")
	assert.Contains(t, out, "1.234s")
	assert.Contains(t, out, "sort/merge: no description found for kernel sort_merge")
	assert.NotContains(t, out, "\x1b[")
}

func TestHistoryRenderer_JSON(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, NewHistoryRenderer(buf, true).RenderJSON([]RunInfo{{ID: "r1", Status: "ok", Kernels: 18}}))

	var got []RunInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, 18, got[0].Kernels)
}

func TestHistoryRenderer_JSONEmptyIsArray(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, NewHistoryRenderer(buf, true).RenderJSON(nil))

	assert.JSONEq(t, "[]", buf.String())
}
