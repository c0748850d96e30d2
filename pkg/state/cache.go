package state

import (
	"sort"
	"strings"
)

// CacheType is the type of a cache entry.
type CacheType int

// Cache entry types.
const (
	CacheUninitialized CacheType = iota
	CacheBool
	CachePath
	CacheFilepath
	CacheString
	CacheInternal
	CacheStatic
)

var cacheTypeNames = [...]string{
	CacheUninitialized: "UNINITIALIZED",
	CacheBool:          "BOOL",
	CachePath:          "PATH",
	CacheFilepath:      "FILEPATH",
	CacheString:        "STRING",
	CacheInternal:      "INTERNAL",
	CacheStatic:        "STATIC",
}

func (t CacheType) String() string {
	if t < 0 || int(t) >= len(cacheTypeNames) {
		return "UNINITIALIZED"
	}
	return cacheTypeNames[t]
}

// ParseCacheType parses the name of a cache type, case-insensitively.
func ParseCacheType(s string) (CacheType, bool) {
	upper := strings.ToUpper(s)
	for i, name := range cacheTypeNames {
		if name == upper {
			return CacheType(i), true
		}
	}
	return CacheUninitialized, false
}

// CacheEntry is a persisted variable.
type CacheEntry struct {
	Value    string
	Type     CacheType
	Help     string
	Advanced bool
}

// Cache is the persisted store that variable lookups fall back to.
type Cache interface {
	Get(name string) (CacheEntry, bool)
	Set(name string, entry CacheEntry)
	Remove(name string)
	// Names returns the names of all entries, sorted.
	Names() []string
}

// MemCache is an in-memory Cache.
type MemCache struct {
	entries map[string]CacheEntry
}

// NewMemCache returns an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string]CacheEntry)}
}

func (c *MemCache) Get(name string) (CacheEntry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

func (c *MemCache) Set(name string, entry CacheEntry) {
	c.entries[name] = entry
}

func (c *MemCache) Remove(name string) {
	delete(c.entries, name)
}

func (c *MemCache) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
