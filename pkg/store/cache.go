package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"src.cmk.sh/pkg/state"
)

type record struct {
	Value    string `json:"value"`
	Type     string `json:"type"`
	Help     string `json:"help,omitempty"`
	Advanced bool   `json:"advanced,omitempty"`
}

func marshalEntry(e state.CacheEntry) ([]byte, error) {
	return json.Marshal(record{e.Value, e.Type.String(), e.Help, e.Advanced})
}

func unmarshalEntry(data []byte) (state.CacheEntry, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return state.CacheEntry{}, err
	}
	t, ok := state.ParseCacheType(r.Type)
	if !ok {
		return state.CacheEntry{}, fmt.Errorf("unknown cache entry type %q", r.Type)
	}
	return state.CacheEntry{Value: r.Value, Type: t, Help: r.Help, Advanced: r.Advanced}, nil
}

// Entry returns a single cache entry. The boolean is false if there is no
// such entry.
func (s *DBStore) Entry(name string) (state.CacheEntry, bool, error) {
	var (
		e  state.CacheEntry
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketCache)).Get([]byte(name))
		if v == nil {
			return nil
		}
		var err error
		e, err = unmarshalEntry(v)
		if err != nil {
			return fmt.Errorf("entry %s: %w", name, err)
		}
		ok = true
		return nil
	})
	return e, ok, err
}

// SetEntry writes a single cache entry.
func (s *DBStore) SetEntry(name string, e state.CacheEntry) error {
	data, err := marshalEntry(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketCache)).Put([]byte(name), data)
	})
}

// DelEntry deletes a cache entry. Deleting a nonexistent entry is not an
// error.
func (s *DBStore) DelEntry(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketCache)).Delete([]byte(name))
	})
}

// Load reads all entries into an in-memory cache.
func (s *DBStore) Load() (*state.MemCache, error) {
	cache := state.NewMemCache()
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketCache)).ForEach(func(k, v []byte) error {
			e, err := unmarshalEntry(v)
			if err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			cache.Set(string(k), e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Printf("loaded %d cache entries", len(cache.Names()))
	return cache, nil
}

// Save replaces the content of the database with the entries of the given
// cache and records the engine version that wrote it. It happens in a single
// transaction.
func (s *DBStore) Save(cache state.Cache, engineVersion string) error {
	names := cache.Names()
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketCache)); err != nil {
			return err
		}
		b, err := tx.CreateBucket([]byte(bucketCache))
		if err != nil {
			return err
		}
		for _, name := range names {
			e, _ := cache.Get(name)
			data, err := marshalEntry(e)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(bucketMeta)).Put([]byte(keyEngineVersion), []byte(engineVersion))
	})
	if err == nil {
		logger.Printf("saved %d cache entries", len(names))
	}
	return err
}
