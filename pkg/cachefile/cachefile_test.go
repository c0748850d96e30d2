package cachefile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.cmk.sh/pkg/cachefile"
	"src.cmk.sh/pkg/state"
)

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		arg   string
		name  string
		value string
		typ   state.CacheType
	}{
		{"X=1", "X", "1", state.CacheUninitialized},
		{"X:BOOL=ON", "X", "ON", state.CacheBool},
		{"X:path=/a", "X", "/a", state.CachePath},
		{"X=", "X", "", state.CacheUninitialized},
		{"X=a=b", "X", "a=b", state.CacheUninitialized},
		{"X:STRING=a:b", "X", "a:b", state.CacheString},
	}
	for _, test := range tests {
		t.Run(test.arg, func(t *testing.T) {
			def, err := cachefile.ParseDefinition(test.arg)
			require.NoError(t, err)
			assert.Equal(t, test.name, def.Name)
			assert.Equal(t, test.value, def.Entry.Value)
			assert.Equal(t, test.typ, def.Entry.Type)
			assert.Equal(t, cachefile.CommandLineHelp, def.Entry.Help)
		})
	}
}

func TestParseDefinition_Errors(t *testing.T) {
	for _, arg := range []string{"X", "=1", ":BOOL=1", "X:NOPE=1"} {
		_, err := cachefile.ParseDefinition(arg)
		assert.Error(t, err, arg)
	}
	_, err := cachefile.ParseDefinitions([]string{"A=1", "B"})
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	cache := state.NewMemCache()
	cache.Set("TYPED", state.CacheEntry{Value: "OFF", Type: state.CacheBool, Help: "doc"})
	cache.Set("KEPT", state.CacheEntry{Value: "old", Type: state.CacheString})

	defs, err := cachefile.ParseDefinitions([]string{"TYPED=ON", "NEW:FILEPATH=/f"})
	require.NoError(t, err)
	cachefile.Apply(cache, defs, true)

	typed, _ := cache.Get("TYPED")
	assert.Equal(t, state.CacheEntry{Value: "ON", Type: state.CacheBool, Help: "doc"}, typed)
	added, _ := cache.Get("NEW")
	assert.Equal(t, state.CacheFilepath, added.Type)

	cachefile.Apply(cache, []cachefile.Definition{{Name: "KEPT", Entry: state.CacheEntry{Value: "new"}}}, false)
	kept, _ := cache.Get("KEPT")
	assert.Equal(t, "old", kept.Value)
}

func TestRemove(t *testing.T) {
	cache := state.NewMemCache()
	for _, name := range []string{"FOO_A", "FOO_B", "BAR"} {
		cache.Set(name, state.CacheEntry{Value: "1", Type: state.CacheString})
	}
	removed, err := cachefile.Remove(cache, "FOO_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"FOO_A", "FOO_B"}, removed)
	assert.Equal(t, []string{"BAR"}, cache.Names())

	_, err = cachefile.Remove(cache, "[")
	assert.Error(t, err)
}
