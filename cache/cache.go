// Package cache implements the two-tier object cache (spec.md §4.4): a
// bounded in-memory LRU, backed by groupcache's lru.Cache, that spills
// evicted entries to an append-only temporary file through a go-billy
// filesystem instead of dropping them.
package cache

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	"github.com/packforge/packengine/hash"
	"github.com/packforge/packengine/object"
)

// perEntryOverhead is the fixed bookkeeping cost attributed to every
// resident entry in addition to its byte length (spec.md §4.4).
const perEntryOverhead = 64

// Entry is what Get returns: a cached object's kind and bytes.
type Entry struct {
	Kind  object.Kind
	Bytes []byte
}

type record struct {
	id   hash.ObjectID
	kind object.Kind

	// Exactly one of (inMemory, spilled) is populated.
	bytes []byte // present while resident in RAM

	spilled    bool
	spillOff   int64
	spillLen   int64
	heapCost   int64 // 0 once spilled
}

// Cache is the two-tier store described by spec.md §4.4. The zero value
// is not usable; construct with New.
type Cache struct {
	budget int64

	mu      sync.Mutex
	ll      *lru.Cache // key: hex id string, value: *record
	curSize int64

	fs        billy.Filesystem
	spillPath string
	spillFile billy.File
	spillOff  int64

	group singleflight.Group
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithSpillDirectory overrides the directory used for the spill file.
// Defaults to the OS temp directory.
func WithSpillDirectory(dir string) Option {
	return func(c *Cache) {
		c.fs = osfs.New(dir)
	}
}

// New creates a Cache bounded to budgetBytes of in-memory heap cost.
func New(budgetBytes int64, opts ...Option) (*Cache, error) {
	c := &Cache{budget: budgetBytes}
	for _, o := range opts {
		o(c)
	}
	if c.fs == nil {
		c.fs = osfs.New(os.TempDir())
	}

	f, err := c.fs.TempFile("", "packengine-cache-*.spill")
	if err != nil {
		return nil, fmt.Errorf("cache: creating spill file: %w", err)
	}
	c.spillFile = f
	c.spillPath = f.Name()

	c.ll = &lru.Cache{
		OnEvicted: func(key lru.Key, value interface{}) {
			c.onEvicted(value.(*record))
		},
	}

	return c, nil
}

// Insert stores an object's kind and bytes, evicting least-recently-used
// entries to spill if the insertion would exceed the configured budget.
func (c *Cache) Insert(id hash.ObjectID, kind object.Kind, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cost := int64(len(data)) + perEntryOverhead
	r := &record{id: id, kind: kind, bytes: append([]byte(nil), data...), heapCost: cost}

	if old, ok := c.ll.Get(lru.Key(id.Hex())); ok {
		c.curSize -= old.(*record).heapCost
	}
	c.ll.Add(lru.Key(id.Hex()), r)
	c.curSize += cost

	return c.evictUntilWithinBudget()
}

// InsertSpilled stores data for id directly in the disk tier, bypassing
// the in-memory budget entirely. Used for objects at or above the
// decoder's large-object streaming threshold, so a single oversized
// blob never displaces the rest of the budget's resident working set
// the way a normal Insert-then-evict would.
func (c *Cache) InsertSpilled(id hash.ObjectID, kind object.Kind, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	off := c.spillOff
	n, err := c.spillFile.Write(data)
	if err != nil {
		return fmt.Errorf("cache: spilling large object: %w", err)
	}
	c.spillOff += int64(n)

	if old, ok := c.ll.Get(lru.Key(id.Hex())); ok {
		c.curSize -= old.(*record).heapCost
	}
	c.ll.Add(lru.Key(id.Hex()), &record{
		id:       id,
		kind:     kind,
		spilled:  true,
		spillOff: off,
		spillLen: int64(n),
	})

	return nil
}

// evictUntilWithinBudget must be called with mu held.
func (c *Cache) evictUntilWithinBudget() error {
	for c.curSize > c.budget && c.ll.Len() > 0 {
		c.ll.RemoveOldest()
	}
	return nil
}

// onEvicted spills a record's bytes to the append-only file, frees its
// RAM cost and re-adds the record to the LRU as a spilled entry, so it
// stays reachable by ID. Called by lru.Cache with mu already held by the
// caller of RemoveOldest (only called from evictUntilWithinBudget, whose
// callers hold mu), so no further locking is needed here.
func (c *Cache) onEvicted(r *record) {
	if r.spilled {
		// Already on disk and free of RAM cost: keep it reachable.
		c.ll.Add(lru.Key(r.id.Hex()), r)
		return
	}

	off := c.spillOff
	n, err := c.spillFile.Write(r.bytes)
	if err != nil {
		// Degrade to dropping the entry: it leaves the cache, so later
		// Contains and Get calls for it miss.
		c.curSize -= r.heapCost
		r.bytes = nil
		r.heapCost = 0
		return
	}

	c.spillOff += int64(n)
	r.spillOff = off
	r.spillLen = int64(n)
	r.spilled = true
	c.curSize -= r.heapCost
	r.heapCost = 0
	r.bytes = nil
	c.ll.Add(lru.Key(r.id.Hex()), r)
}

// Get returns a cached entry by ID, promoting it to most-recently-used.
// A spilled entry is read back from disk and promoted back into the
// in-memory tier; if that exceeds the budget, least-recently-used
// entries are spilled to make room. A failed read is reported as a miss.
func (c *Cache) Get(id hash.ObjectID) (Entry, bool) {
	c.mu.Lock()
	v, ok := c.ll.Get(lru.Key(id.Hex()))
	if !ok {
		c.mu.Unlock()
		return Entry{}, false
	}
	r := v.(*record)

	if !r.spilled {
		out := Entry{Kind: r.kind, Bytes: append([]byte(nil), r.bytes...)}
		c.mu.Unlock()
		return out, true
	}

	off, n, spillFile := r.spillOff, r.spillLen, c.spillPath
	kind := r.kind
	c.mu.Unlock()

	data, err, _ := c.group.Do(id.Hex(), func() (interface{}, error) {
		return c.readSpilled(spillFile, off, n)
	})
	if err != nil {
		return Entry{}, false
	}
	bytesOut := data.([]byte)

	c.mu.Lock()
	if v, ok := c.ll.Get(lru.Key(id.Hex())); ok {
		rr := v.(*record)
		if rr.spilled {
			rr.bytes = append([]byte(nil), bytesOut...)
			rr.heapCost = int64(len(rr.bytes)) + perEntryOverhead
			rr.spilled = false
			c.curSize += rr.heapCost
			_ = c.evictUntilWithinBudget()
		}
	}
	c.mu.Unlock()

	return Entry{Kind: kind, Bytes: bytesOut}, true
}

func (c *Cache) readSpilled(path string, off, n int64) ([]byte, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: reopening spill file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("cache: seeking spill file: %w", err)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("cache: reading spill file: %w", err)
	}
	return buf, nil
}

// Contains reports whether id is present (in either tier). Like Get, it
// marks a present entry as most-recently-used; it does not read spilled
// bytes back.
func (c *Cache) Contains(id hash.ObjectID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ll.Get(lru.Key(id.Hex()))
	return ok
}

// Pin re-touches id to make it most-recently-used. It is a recency hint
// only: it does not make the entry ineligible for eviction, and a pinned
// entry is still spilled under budget pressure (it stays reachable from
// the disk tier).
func (c *Cache) Pin(id hash.ObjectID) {
	c.mu.Lock()
	c.ll.Get(lru.Key(id.Hex()))
	c.mu.Unlock()
}

// Clear releases all in-memory entries and deletes the spill file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.ll = &lru.Cache{OnEvicted: c.ll.OnEvicted}
	c.curSize = 0
	path := c.spillPath
	f := c.spillFile
	c.mu.Unlock()

	if f != nil {
		_ = f.Close()
	}
	if path != "" {
		return c.fs.Remove(path)
	}
	return nil
}

// Size returns the current in-memory resident byte cost.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curSize
}

