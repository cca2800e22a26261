package hub

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexRecordAndLookup(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Record("damo/test-model", "v1.0.0", "/cache/damo--test-model/v1.0.0"))

	path, ok, err := idx.Lookup("damo/test-model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/cache/damo--test-model/v1.0.0", path)
}

func TestIndexLookupMissing(t *testing.T) {
	idx := newTestIndex(t)

	_, ok, err := idx.Lookup("damo/never-downloaded")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexRecordUpserts(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Record("damo/test-model", "v1.0.0", "/cache/v1"))
	require.NoError(t, idx.Record("damo/test-model", "v2.0.0", "/cache/v2"))

	path, ok, err := idx.Lookup("damo/test-model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/cache/v2", path)

	snapshots, err := idx.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "v2.0.0", snapshots[0].Revision)
}

func TestIndexRemove(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Record("damo/test-model", "v1.0.0", "/cache/v1"))
	require.NoError(t, idx.Remove("damo/test-model"))

	_, ok, err := idx.Lookup("damo/test-model")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing again is a no-op.
	require.NoError(t, idx.Remove("damo/test-model"))
}

func TestIndexList(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Record("damo/b-model", "v1", "/cache/b"))
	require.NoError(t, idx.Record("damo/a-model", "v1", "/cache/a"))

	snapshots, err := idx.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "damo/a-model", snapshots[0].Ref)
	assert.Equal(t, "damo/b-model", snapshots[1].Ref)
	assert.False(t, snapshots[0].CreatedAt.IsZero())
}

func TestIndexOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	idx, err := NewIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Record("damo/test-model", "v1", "/cache/v1"))
	require.NoError(t, idx.Close())

	reopened, err := NewIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Lookup("damo/test-model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/cache/v1", got)
}
