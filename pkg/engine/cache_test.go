package engine

import (
	"sync"
	"testing"

	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
)

func TestNewDecisionCacheSize(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, 2},
		{1, 2},
		{3, 4},
		{4096, 4096},
		{5000, 8192},
	}
	for _, tc := range tests {
		if got := NewDecisionCache(tc.in).Size(); got != tc.want {
			t.Errorf("NewDecisionCache(%d).Size() = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDecisionCacheLookupAdd(t *testing.T) {
	c := NewDecisionCache(16)
	rows := []uint32{0b11, 0b1, 0, 0}
	want := Decision{Move: Move{Orientation: 1, Column: 2}, Score: -12.5, Found: true, Candidates: 9}

	var d Decision
	slot := c.Lookup(2, rows, &d)
	if slot == CacheHit {
		t.Fatal("hit on empty cache")
	}
	c.Add(2, rows, want, slot)

	if c.Lookup(2, rows, &d) != CacheHit {
		t.Fatal("miss after Add")
	}
	if d != want {
		t.Errorf("Lookup = %+v, want %+v", d, want)
	}
	if c.Lookup(3, rows, &d) == CacheHit {
		t.Error("hit for a different kind")
	}
	if c.Lookup(2, []uint32{0b11, 0b1, 0, 1}, &d) == CacheHit {
		t.Error("hit for a different board")
	}

	// The caller's slice may change after Add.
	rows[0] = 0
	if c.Lookup(2, []uint32{0b11, 0b1, 0, 0}, &d) != CacheHit {
		t.Error("entry aliased the caller's rows")
	}
}

func TestDecisionCacheTwoWay(t *testing.T) {
	// A 2-entry cache has a single node, so every key shares the slot.
	c := NewDecisionCache(2)
	keys := [][]uint32{{1}, {2}, {3}}
	for i, k := range keys {
		var d Decision
		slot := c.Lookup(0, k, &d)
		c.Add(0, k, Decision{Candidates: i}, slot)
	}
	var d Decision
	if c.Lookup(0, keys[0], &d) == CacheHit {
		t.Error("oldest entry should have been evicted")
	}
	for i, k := range keys[1:] {
		if c.Lookup(0, k, &d) != CacheHit || d.Candidates != i+1 {
			t.Errorf("key %v: lost or wrong (%+v)", k, d)
		}
	}
}

func TestDecisionCacheFlush(t *testing.T) {
	c := NewDecisionCache(8)
	var d Decision
	slot := c.Lookup(0, []uint32{7}, &d)
	c.Add(0, []uint32{7}, Decision{Found: true}, slot)
	c.Flush()
	if c.Lookup(0, []uint32{7}, &d) == CacheHit {
		t.Error("hit after Flush")
	}
	lookups, hits, adds := c.Stats()
	if lookups != 1 || hits != 0 || adds != 0 {
		t.Errorf("Stats after Flush = %d/%d/%d, want 1/0/0", lookups, hits, adds)
	}
}

func TestDecisionCacheHitRate(t *testing.T) {
	c := NewDecisionCache(8)
	if c.HitRate() != 0 {
		t.Errorf("HitRate on fresh cache = %v, want 0", c.HitRate())
	}
	var d Decision
	slot := c.Lookup(0, []uint32{1}, &d)
	c.Add(0, []uint32{1}, Decision{}, slot)
	c.Lookup(0, []uint32{1}, &d)
	if got := c.HitRate(); got != 50 {
		t.Errorf("HitRate = %v, want 50", got)
	}
}

func TestDecisionCacheConcurrent(t *testing.T) {
	e := newTestEngine(t, 18, 10, 128)
	b := e.Board()
	var wg sync.WaitGroup
	results := make([]Decision, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := e.Decide(b, i%e.Catalog().Len())
			if err != nil {
				t.Error(err)
			}
			results[i] = d
		}()
	}
	wg.Wait()
	for i, d := range results {
		want := Search(b, e.Catalog().Kind(i%e.Catalog().Len()))
		if d != want {
			t.Errorf("goroutine %d: %+v, want %+v", i, d, want)
		}
	}
}

func TestEngineCachePerCatalog(t *testing.T) {
	kinds := catalog.Default().Kinds()
	reversed := make([]catalog.Kind, len(kinds))
	for i, k := range kinds {
		reversed[len(kinds)-1-i] = k
	}
	cat, err := catalog.New(reversed)
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}

	a := newTestEngine(t, 18, 10, 64)
	b, err := NewEngine(EngineOptions{Rows: 18, Columns: 10, CacheSize: 64, Catalog: cat})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if a.Cache() == b.Cache() {
		t.Fatal("engines share a decision cache")
	}

	board := a.Board()
	if _, err := a.Decide(board, 0); err != nil {
		t.Fatal(err)
	}
	got, err := b.Decide(board, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := Search(board, cat.Kind(0)); got != want {
		t.Errorf("Decide = %+v, want %+v", got, want)
	}
	if _, hits, _ := b.Cache().Stats(); hits != 0 {
		t.Errorf("hits = %d, want 0", hits)
	}
}
