// Package store persists the variable cache of a build tree.
//
// The cache lives in a bbolt database named CMakeCache.db in the binary
// directory. Entries are kept in the "cache" bucket as JSON documents keyed by
// variable name; the "meta" bucket records the schema version.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"src.cmk.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[store] ")

// FileName is the name of the cache database within a binary directory.
const FileName = "CMakeCache.db"

// SchemaVersion is the version of the on-disk layout.
const SchemaVersion = 1

const (
	bucketCache = "cache"
	bucketMeta  = "meta"

	keySchemaVersion = "schema"
	keyEngineVersion = "version"
)

// ErrSchemaVersion is returned when a database was written with a newer
// schema than this program understands.
var ErrSchemaVersion = errors.New("cache database has an unsupported schema version")

var initDB = map[string]func(*bolt.Tx) error{
	"initialize cache table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCache))
		return err
	},
	"initialize meta table": func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
		if err != nil {
			return err
		}
		if b.Get([]byte(keySchemaVersion)) == nil {
			return b.Put([]byte(keySchemaVersion), []byte(strconv.Itoa(SchemaVersion)))
		}
		return nil
	},
}

// DBStore is a cache database.
type DBStore struct {
	db *bolt.DB
}

// Path returns the path of the cache database in the given binary directory.
func Path(binaryDir string) string {
	return filepath.Join(binaryDir, FileName)
}

// NewStore opens the database at the given path, creating and initializing it
// if needed.
func NewStore(dbname string) (*DBStore, error) {
	db, err := bolt.Open(dbname, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	st, err := NewStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// NewStoreFromDB wraps an already opened database.
func NewStoreFromDB(db *bolt.DB) (*DBStore, error) {
	logger.Println("initializing store")
	defer logger.Println("initialized store")

	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	st := &DBStore{db}
	if v, err := st.SchemaVersion(); err != nil {
		return nil, err
	} else if v > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchemaVersion, v)
	}
	return st, nil
}

// Close closes the underlying database.
func (s *DBStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the schema version recorded in the database.
func (s *DBStore) SchemaVersion() (int, error) {
	var v int
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		v, err = strconv.Atoi(string(tx.Bucket([]byte(bucketMeta)).Get([]byte(keySchemaVersion))))
		return err
	})
	return v, err
}

// EngineVersion returns the version of the program that last saved the
// cache, or "" if the cache has never been saved.
func (s *DBStore) EngineVersion() (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket([]byte(bucketMeta)).Get([]byte(keyEngineVersion)))
		return nil
	})
	return v, err
}
