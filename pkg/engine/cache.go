package engine

import (
	"encoding/binary"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
)

// CacheHit is returned by Lookup when the decision was found.
const CacheHit = ^uint32(0)

// cacheEntry stores one search result. rows is kept so that hash collisions
// never return a decision for a different board.
type cacheEntry struct {
	valid    bool
	hash     uint64
	kind     int
	rows     []uint32
	decision Decision
}

// cacheNode holds primary and secondary entries for two-way associative cache
type cacheNode struct {
	primary   cacheEntry
	secondary cacheEntry
}

// DecisionCache is a thread-safe two-way associative cache of placement
// searches keyed by piece kind and board rows.
type DecisionCache struct {
	entries  []cacheNode
	size     uint32
	hashMask uint32

	// Statistics
	lookups atomic.Uint64
	hits    atomic.Uint64
	adds    atomic.Uint64

	mu sync.RWMutex
}

// NewDecisionCache creates a cache holding about size decisions. Size is
// rounded up to a power of two, minimum 2.
func NewDecisionCache(size uint32) *DecisionCache {
	if size > 1<<31 {
		size = 1 << 31
	}
	p := uint32(2)
	for p < size {
		p <<= 1
	}
	return &DecisionCache{
		entries:  make([]cacheNode, p/2),
		size:     p,
		hashMask: p/2 - 1,
	}
}

// Size returns the capacity in entries.
func (c *DecisionCache) Size() uint32 { return c.size }

// Flush clears all entries and statistics.
func (c *DecisionCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.lookups.Store(0)
	c.hits.Store(0)
	c.adds.Store(0)
}

// HashKey hashes a piece kind index together with board rows.
func HashKey(kind int, rows []uint32) uint64 {
	buf := make([]byte, 0, 4+4*len(rows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(kind))
	for _, r := range rows {
		buf = binary.LittleEndian.AppendUint32(buf, r)
	}
	return xxhash.Sum64(buf)
}

func (e *cacheEntry) matches(hash uint64, kind int, rows []uint32) bool {
	return e.valid && e.hash == hash && e.kind == kind && slices.Equal(e.rows, rows)
}

// Lookup checks if a decision is cached.
// Returns CacheHit if found (d filled), otherwise returns the slot for Add.
func (c *DecisionCache) Lookup(kind int, rows []uint32, d *Decision) uint32 {
	hash := HashKey(kind, rows)
	slot := uint32(hash) & c.hashMask

	c.mu.RLock()
	defer c.mu.RUnlock()

	c.lookups.Add(1)
	node := &c.entries[slot]
	if node.primary.matches(hash, kind, rows) {
		*d = node.primary.decision
		c.hits.Add(1)
		return CacheHit
	}
	if node.secondary.matches(hash, kind, rows) {
		*d = node.secondary.decision
		c.hits.Add(1)
		return CacheHit
	}
	return slot
}

// Add stores a decision in the slot returned by a previous Lookup miss.
func (c *DecisionCache) Add(kind int, rows []uint32, d Decision, slot uint32) {
	entry := cacheEntry{
		valid:    true,
		hash:     HashKey(kind, rows),
		kind:     kind,
		rows:     slices.Clone(rows),
		decision: d,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Move primary to secondary, add new as primary
	node := &c.entries[slot&c.hashMask]
	node.secondary = node.primary
	node.primary = entry
	c.adds.Add(1)
}

// Stats returns cache statistics
func (c *DecisionCache) Stats() (lookups, hits, adds uint64) {
	return c.lookups.Load(), c.hits.Load(), c.adds.Load()
}

// HitRate returns the cache hit rate as a percentage
func (c *DecisionCache) HitRate() float64 {
	lookups := c.lookups.Load()
	if lookups == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(lookups) * 100
}
