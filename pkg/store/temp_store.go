package store

import (
	"path/filepath"

	"src.cmk.sh/pkg/testutil"
)

// MustTempStore returns a store backed by a database in a temporary
// directory. The store is closed when the test finishes.
func MustTempStore(c testutil.Cleanuper) *DBStore {
	st, err := NewStore(filepath.Join(testutil.TempDir(c), FileName))
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() { st.Close() })
	return st
}
