package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRoundTrip(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 25; i++ {
		h.AddInteraction("alice", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := h.GetInteractions("alice")
	require.Len(t, turns, 25)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("q%d", i), turn.Question)
		assert.Equal(t, fmt.Sprintf("a%d", i), turn.Answer)
	}

	assert.Empty(t, h.GetInteractions("bob"))
}

func TestHistoryUsersIsolated(t *testing.T) {
	h := NewHistory()
	h.AddInteraction("alice", "q", "a")
	h.AddInteraction("bob", "other", "answer")

	require.Len(t, h.GetInteractions("alice"), 1)
	assert.Equal(t, "q", h.GetInteractions("alice")[0].Question)
	assert.Equal(t, "other", h.GetInteractions("bob")[0].Question)
}

func TestHistoryConcurrentAppends(t *testing.T) {
	h := NewHistory()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				h.AddInteraction("alice", "q", "a")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, h.GetInteractions("alice"), 100)
}

func TestPageCacheTTL(t *testing.T) {
	current := time.Unix(0, 0)
	clock := func() time.Time { return current }

	c := NewPageCache(10, time.Hour, clock)
	c.Put("doc1", []string{"page one"})

	pages, ok := c.Get("doc1")
	require.True(t, ok)
	assert.Equal(t, []string{"page one"}, pages)

	current = current.Add(2 * time.Hour)
	_, ok = c.Get("doc1")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestPageCacheEvictsOldest(t *testing.T) {
	c := NewPageCache(2, 0, nil)
	c.Put("a", []string{"a"})
	c.Put("b", []string{"b"})
	c.Put("c", []string{"c"})

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestPageCacheLatest(t *testing.T) {
	c := NewPageCache(10, 0, nil)
	_, _, ok := c.Latest()
	assert.False(t, ok)

	c.Put("first", []string{"1"})
	c.Put("second", []string{"2"})

	id, pages, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "second", id)
	assert.Equal(t, []string{"2"}, pages)
}
