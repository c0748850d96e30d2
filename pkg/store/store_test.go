package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.cmk.sh/pkg/state"
	"src.cmk.sh/pkg/store"
	"src.cmk.sh/pkg/testutil"
)

func TestEntries(t *testing.T) {
	st := store.MustTempStore(t)

	_, ok, err := st.Entry("X")
	require.NoError(t, err)
	assert.False(t, ok)

	want := state.CacheEntry{Value: "ON", Type: state.CacheBool, Help: "doc", Advanced: true}
	require.NoError(t, st.SetEntry("X", want))
	got, ok, err := st.Entry("X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, st.DelEntry("X"))
	require.NoError(t, st.DelEntry("X"))
	_, ok, err = st.Entry("X")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveReplacesEntries(t *testing.T) {
	st := store.MustTempStore(t)
	require.NoError(t, st.SetEntry("OLD", state.CacheEntry{Value: "1", Type: state.CacheString}))

	cache := state.NewMemCache()
	cache.Set("A", state.CacheEntry{Value: "a", Type: state.CacheString, Help: "help"})
	cache.Set("B", state.CacheEntry{Value: "/x", Type: state.CachePath})
	require.NoError(t, st.Save(cache, "3.28.0"))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, loaded.Names())
	b, _ := loaded.Get("B")
	assert.Equal(t, state.CachePath, b.Type)

	v, err := st.EngineVersion()
	require.NoError(t, err)
	assert.Equal(t, "3.28.0", v)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), store.FileName)
	st, err := store.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, st.SetEntry("K", state.CacheEntry{Value: "v", Type: state.CacheInternal}))
	require.NoError(t, st.Close())

	st, err = store.NewStore(path)
	require.NoError(t, err)
	defer st.Close()
	e, ok, err := st.Entry("K")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state.CacheInternal, e.Type)

	version, err := st.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, version)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("build", "CMakeCache.db"), store.Path("build"))
}
