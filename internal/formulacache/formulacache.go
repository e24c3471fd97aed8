// Package formulacache maps formula names to serialized Formula records on
// disk, one JSON file per name under <cache>/formulae/<name>.json. Reads
// are best-effort: a deserialization failure is treated as a miss rather
// than an error. Writes are last-writer-wins since every writer for a
// given name produces an identical serialized record.
package formulacache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/brewkeg/brewkeg/internal/formula"
)

// Cache is a flat on-disk cache of parsed Formula records.
type Cache struct {
	dir string
	ttl time.Duration
}

// meta is the CacheEntry sidecar persisted alongside each formula record.
type meta struct {
	CreatedAt time.Time `json:"created_at"`
}

// New returns a Cache rooted at dir, with entries considered stale after
// ttl has elapsed since creation. ttl of zero means entries never expire
// on age alone.
func New(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl}
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name+".json")
}

func (c *Cache) metaPath(name string) string {
	return filepath.Join(c.dir, name+".meta.json")
}

// Get returns the cached Formula for name, or (nil, false) on a miss —
// whether because no entry exists, the entry is malformed, or it has
// exceeded its TTL.
func (c *Cache) Get(name string) (*formula.Formula, bool) {
	if c.ttl > 0 {
		if m, err := c.readMeta(name); err == nil {
			if time.Since(m.CreatedAt) > c.ttl {
				return nil, false
			}
		}
	}

	data, err := os.ReadFile(c.path(name))
	if err != nil {
		return nil, false
	}
	var f formula.Formula
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false
	}
	return &f, true
}

// Put serializes f and writes it (and its metadata sidecar) to disk.
func (c *Cache) Put(f *formula.Formula) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path(f.Name), data, 0644); err != nil {
		return err
	}

	m := meta{CreatedAt: time.Now()}
	if mdata, err := json.Marshal(m); err == nil {
		_ = os.WriteFile(c.metaPath(f.Name), mdata, 0644)
	}
	return nil
}

func (c *Cache) readMeta(name string) (*meta, error) {
	data, err := os.ReadFile(c.metaPath(name))
	if err != nil {
		return nil, err
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Clear removes every cached entry. Formula Cache update invalidates the
// cache wholesale rather than pruning individual stale records.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0755)
}

// UpdateFormulae clears the cache then triggers updateAll, which callers
// wire to the Tap Store's UpdateAll so every tap is refreshed in lockstep
// with cache invalidation.
func (c *Cache) UpdateFormulae(updateAll func() error) error {
	if err := c.Clear(); err != nil {
		return err
	}
	return updateAll()
}
