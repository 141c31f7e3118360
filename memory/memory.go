package memory

import (
	"sync"
	"time"

	"brain/types"
)

// Clock is injected so eviction is testable without real waiting.
type Clock func() time.Time

// PageCache holds extracted page texts per document id. Entries expire
// after a TTL and the cache keeps at most maxEntries documents,
// evicting the least recently used one first. The cache is shared by
// concurrent requests, so every access takes the lock.
type PageCache struct {
	mu         sync.Mutex
	entries    map[string]*pageEntry
	order      []string // ids, oldest use first
	maxEntries int
	ttl        time.Duration
	now        Clock
}

type pageEntry struct {
	pages    []string
	storedAt time.Time
}

func NewPageCache(maxEntries int, ttl time.Duration, now Clock) *PageCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if now == nil {
		now = time.Now
	}
	return &PageCache{
		entries:    make(map[string]*pageEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
	}
}

func (c *PageCache) Put(id string, pages []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()
	if _, ok := c.entries[id]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[id] = &pageEntry{pages: pages, storedAt: c.now()}
	c.touch(id)
}

func (c *PageCache) Get(id string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.expired(entry) {
		c.remove(id)
		return nil, false
	}
	c.touch(id)
	return entry.pages, true
}

// Latest returns the most recently stored live document. Mirrors the
// "summary of the last uploaded PDF" behavior.
func (c *PageCache) Latest() (string, []string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()
	if len(c.order) == 0 {
		return "", nil, false
	}
	id := c.order[len(c.order)-1]
	return id, c.entries[id].pages, true
}

func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpired()
	return len(c.entries)
}

func (c *PageCache) expired(e *pageEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

func (c *PageCache) evictExpired() {
	for id, e := range c.entries {
		if c.expired(e) {
			c.remove(id)
		}
	}
}

func (c *PageCache) evictOldest() {
	if len(c.order) > 0 {
		c.remove(c.order[0])
	}
}

func (c *PageCache) remove(id string) {
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *PageCache) touch(id string) {
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, id)
}

// History is the per-user long-term conversation memory: an
// append-only log of question/answer turns, replayed into later
// prompts. The store keeps everything for the process lifetime; the
// prompt assembler caps how many turns are replayed.
type History struct {
	mu    sync.RWMutex
	turns map[string][]types.Turn
}

func NewHistory() *History {
	return &History{turns: make(map[string][]types.Turn)}
}

func (h *History) AddInteraction(userID, question, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns[userID] = append(h.turns[userID], types.Turn{Question: question, Answer: answer})
}

// GetInteractions returns the user's turns in insertion order. The
// returned slice is a copy.
func (h *History) GetInteractions(userID string) []types.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	turns := h.turns[userID]
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out
}
