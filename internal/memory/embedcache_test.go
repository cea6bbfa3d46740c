package memory

import "testing"

func TestEmbedCache_SetThenGetHits(t *testing.T) {
	c := NewEmbedCache(10)
	c.Set("hello world", []float32{0.1, 0.2})

	got, ok := c.Get("hello world")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0] != 0.1 {
		t.Errorf("got = %v", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEmbedCache_MissIncrementsCounter(t *testing.T) {
	c := NewEmbedCache(10)
	_, ok := c.Get("never seen")
	if ok {
		t.Fatal("expected cache miss")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("Misses = %d, want 1", c.Stats().Misses)
	}
}

func TestEmbedCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbedCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a") // touch a, making b the LRU entry
	c.Set("c", []float32{3})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestEmbedCache_DefaultSize(t *testing.T) {
	c := NewEmbedCache(0)
	if c.maxSize != defaultEmbedCacheSize {
		t.Errorf("maxSize = %d, want %d", c.maxSize, defaultEmbedCacheSize)
	}
}

func TestEmbedCache_ShouldSkipShortMessages(t *testing.T) {
	c := NewEmbedCache(10)
	if !c.ShouldSkip("thanks a lot") {
		t.Error("expected short message to be skipped")
	}
	if c.ShouldSkip("can you tell me more about the history of the roman empire and its economy") {
		t.Error("expected long message not to be skipped")
	}
}
