package sources

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// Cache memoizes lookups by normalized query key. A cached nil record means
// "looked up, nothing found".
type Cache interface {
	Get(key string) (*model.MetadataRecord, bool)
	Add(key string, rec *model.MetadataRecord)
	Len() int
}

// mapCache never evicts. It lives as long as the source that owns it, which
// for the CLI is one run.
type mapCache struct {
	mu sync.Mutex
	m  map[string]*model.MetadataRecord
}

// NewCache returns an unbounded process-lifetime cache.
func NewCache() Cache {
	return &mapCache{m: map[string]*model.MetadataRecord{}}
}

func (c *mapCache) Get(key string) (*model.MetadataRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.m[key]
	return rec, ok
}

func (c *mapCache) Add(key string, rec *model.MetadataRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = rec
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// boundedCache wraps an LRU for callers embedding the engine in a
// long-running process.
type boundedCache struct {
	lru *lru.Cache[string, *model.MetadataRecord]
}

// NewBoundedCache returns a cache holding at most size entries, evicting the
// least recently used one.
func NewBoundedCache(size int) (Cache, error) {
	c, err := lru.New[string, *model.MetadataRecord](size)
	if err != nil {
		return nil, err
	}
	return &boundedCache{lru: c}, nil
}

func (c *boundedCache) Get(key string) (*model.MetadataRecord, bool) {
	return c.lru.Get(key)
}

func (c *boundedCache) Add(key string, rec *model.MetadataRecord) {
	c.lru.Add(key, rec)
}

func (c *boundedCache) Len() int {
	return c.lru.Len()
}
