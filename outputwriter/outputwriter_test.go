package outputwriter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFilePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "output.txt")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestAppendPage_WritesLinesAndMarker(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	err := w.AppendPage(0, 3, []string{"row1", "row2", "row3"})
	require.NoError(t, err)

	content := readFile(t, path)
	assert.Equal(t, "row1\nrow2\nrow3\n0,3\n", content)
}

func TestAppendPage_AccumulatesAcrossPages(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	require.NoError(t, w.AppendPage(0, 3, []string{"row1", "row2", "row3"}))
	require.NoError(t, w.AppendPage(1, 5, []string{"row4", "row5"}))

	content := readFile(t, path)
	assert.Equal(t, "row1\nrow2\nrow3\nrow4\nrow5\n1,5\n", content)
}

func TestAppendPage_IsIdempotentForStalePage(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	require.NoError(t, w.AppendPage(0, 3, []string{"row1", "row2", "row3"}))
	before := readFile(t, path)

	require.NoError(t, w.AppendPage(0, 3, []string{"different", "content"}))
	after := readFile(t, path)

	assert.Equal(t, before, after)
}

func TestAppendPage_SkipsWhenMarkerAlreadyAhead(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	require.NoError(t, w.AppendPage(0, 3, []string{"row1", "row2", "row3"}))
	require.NoError(t, w.AppendPage(1, 5, []string{"row4", "row5"}))
	before := readFile(t, path)

	require.NoError(t, w.AppendPage(0, 3, []string{"stale"}))
	after := readFile(t, path)

	assert.Equal(t, before, after)
}

func TestRemoveFooter_TruncatesFinalLine(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	require.NoError(t, w.AppendPage(0, 3, []string{"row1", "row2", "row3"}))
	require.NoError(t, w.RemoveFooter())

	content := readFile(t, path)
	assert.Equal(t, "row1\nrow2\nrow3\n", content)
}

func TestRemoveFooter_IsNoopOnMissingFile(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	err := w.RemoveFooter()
	assert.NoError(t, err)
}

func TestReadFooter_ReturnsZeroForMissingFile(t *testing.T) {
	page, rows, err := ReadFooter(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, page)
	assert.EqualValues(t, 0, rows)
}

func TestReadFooter_ReturnsZeroForEmptyFile(t *testing.T) {
	path := tempFilePath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	page, rows, err := ReadFooter(path)
	require.NoError(t, err)
	assert.Equal(t, 0, page)
	assert.EqualValues(t, 0, rows)
}

func TestReadFooter_ParsesMarker(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)
	require.NoError(t, w.AppendPage(2, 300, []string{"a"}))

	page, rows, err := ReadFooter(path)
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	assert.EqualValues(t, 300, rows)
}

func TestLock_ReclaimsStaleLockFile(t *testing.T) {
	path := tempFilePath(t)
	w := New(path).WithStaleLockAge(10 * time.Millisecond)

	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, nil, 0o644))
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lockPath, stale, stale))

	err := w.AppendPage(0, 1, []string{"row1"})
	require.NoError(t, err)
}

func TestLock_RejectsFreshLockFile(t *testing.T) {
	path := tempFilePath(t)
	w := New(path)

	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, nil, 0o644))
	defer os.Remove(lockPath)

	err := w.AppendPage(0, 1, []string{"row1"})
	assert.Error(t, err)
}
