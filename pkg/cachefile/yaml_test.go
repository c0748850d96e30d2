package cachefile_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.cmk.sh/pkg/cachefile"
	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/must"
	"src.cmk.sh/pkg/state"
	"src.cmk.sh/pkg/testutil"
)

func TestLoad(t *testing.T) {
	defs, err := cachefile.Load(strings.NewReader(testutil.Dedent(`
		NAME: demo
		ENABLED: true
		DISABLED: false
		EMPTY:
		SOURCES: [a.c, b.c]
		PREFIX:
		  value: /opt
		  type: PATH
		  help: Install prefix
		  advanced: true
		`)))
	require.NoError(t, err)

	var names []string
	byName := map[string]state.CacheEntry{}
	for _, def := range defs {
		names = append(names, def.Name)
		byName[def.Name] = def.Entry
	}
	assert.Equal(t, []string{"NAME", "ENABLED", "DISABLED", "EMPTY", "SOURCES", "PREFIX"}, names)
	assert.Equal(t, state.CacheEntry{Value: "demo", Type: state.CacheUninitialized, Help: cachefile.InitialCacheHelp}, byName["NAME"])
	assert.Equal(t, "ON", byName["ENABLED"].Value)
	assert.Equal(t, "OFF", byName["DISABLED"].Value)
	assert.Equal(t, "", byName["EMPTY"].Value)
	assert.Equal(t, "a.c;b.c", byName["SOURCES"].Value)
	assert.Equal(t, state.CacheEntry{Value: "/opt", Type: state.CachePath, Help: "Install prefix", Advanced: true}, byName["PREFIX"])
}

func TestLoad_Empty(t *testing.T) {
	defs, err := cachefile.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoad_Errors(t *testing.T) {
	for _, doc := range []string{
		"- a\n- b\n",
		"X:\n  type: NOPE\n",
		"X: [a: b]\n",
		"X: [\n",
	} {
		_, err := cachefile.Load(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadFile(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "init.yaml")
	must.WriteFile(name, "X: 1\n")
	defs, err := cachefile.LoadFile(name)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "1", defs[0].Entry.Value)

	_, err = cachefile.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_ErrorPosition(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "init.yaml")
	must.WriteFile(name, "A: 1\nX:\n  type: NOPE\n")
	_, err := cachefile.LoadFile(name)

	var e *diag.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, diag.Position{File: name, Line: 3, Column: 3}, e.Position)
	assert.Equal(t, `unknown cache entry type "NOPE"`, e.Message)
	assert.Contains(t, e.Show(""), name+":3:3")
}
