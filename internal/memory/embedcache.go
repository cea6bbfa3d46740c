package memory

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
)

// defaultEmbedCacheSize keeps the cache's footprint negligible: 50
// entries of a typical embedding dimension is a few hundred KB at most.
const defaultEmbedCacheSize = 50

// shortMessageWordThreshold is the word count at or below which semantic search
// isn't worth an embedding call — recency ranking serves short messages
// just as well.
const shortMessageWordThreshold = 6

type embedCacheEntry struct {
	key   string
	value []float32
}

// EmbedCache is an in-process LRU cache over text→embedding, avoiding a
// round trip to the embedding model for repeated or recently-seen text.
type EmbedCache struct {
	mu      sync.Mutex
	maxSize int
	ll      *list.List
	index   map[string]*list.Element
	hits    int
	misses  int
}

// NewEmbedCache creates an LRU cache with the given capacity. maxSize <= 0
// defaults to 50.
func NewEmbedCache(maxSize int) *EmbedCache {
	if maxSize <= 0 {
		maxSize = defaultEmbedCacheSize
	}
	return &EmbedCache{
		maxSize: maxSize,
		ll:      list.New(),
		index:   make(map[string]*list.Element),
	}
}

func embedCacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached embedding for text, promoting it to most-recently
// used, or (nil, false) on a miss.
func (c *EmbedCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := embedCacheKey(text)
	el, ok := c.index[k]
	if !ok {
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return el.Value.(*embedCacheEntry).value, true
}

// Set stores an embedding for text, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *EmbedCache) Set(text string, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := embedCacheKey(text)
	if el, ok := c.index[k]; ok {
		el.Value.(*embedCacheEntry).value = embedding
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&embedCacheEntry{key: k, value: embedding})
	c.index[k] = el

	if c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*embedCacheEntry).key)
		}
	}
}

// ShouldSkip reports whether text is short enough that semantic search
// isn't worth the embedding call — the caller should fall back to
// recency-based retrieval instead.
func (c *EmbedCache) ShouldSkip(text string) bool {
	return len(strings.Fields(text)) <= shortMessageWordThreshold
}

// EmbedCacheStats summarizes cache effectiveness for diagnostics.
type EmbedCacheStats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Entries int `json:"cached_entries"`
}

// Stats reports the cache's hit/miss counters and current size.
func (c *EmbedCache) Stats() EmbedCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EmbedCacheStats{Hits: c.hits, Misses: c.misses, Entries: c.ll.Len()}
}
