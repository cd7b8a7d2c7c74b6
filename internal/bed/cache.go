package bed

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// Key identifies a decoded bed: its source and the format it was aligned to.
type Key struct {
	Source     string
	SampleRate int
	Channels   int
}

// KeyFor builds the cache key for source aligned to format.
func KeyFor(source string, format audio.Format) Key {
	return Key{Source: source, SampleRate: format.SampleRate, Channels: format.Channels}
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%dHz/%dch", k.Source, k.SampleRate, k.Channels)
}

// Stats counts cache activity since creation or the last Purge.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// LoadFunc produces the buffer for a missing key.
type LoadFunc func(ctx context.Context) (*audio.Buffer, error)

// Cache is a bounded least-recently-used map of decoded beds. It is safe for
// concurrent use. Concurrent misses on the same key share a single load.
//
// Cached buffers are immutable, so callers may hold them after eviction.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element
	stats    Stats

	group singleflight.Group
}

type entry struct {
	key Key
	buf *audio.Buffer
}

// NewCache returns a cache holding at most capacity beds. Capacities below
// one are raised to one.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: max(1, capacity),
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
}

// Get returns the cached buffer for key, calling load on a miss. Failed loads
// are not cached. The load itself outlives a cancelled caller so that other
// requests waiting on the same key still get the result.
func (c *Cache) Get(ctx context.Context, key Key, load LoadFunc) (*audio.Buffer, error) {
	if buf, ok := c.lookup(key); ok {
		return buf, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// A concurrent load may have finished between lookup and DoChan.
		if buf, ok := c.peek(key); ok {
			return buf, nil
		}
		buf, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.add(key, buf)
		return buf, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*audio.Buffer), nil
	}
}

// Len returns the number of cached beds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the maximum number of cached beds.
func (c *Cache) Capacity() int { return c.capacity }

// Stats returns a snapshot of the hit, miss and eviction counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Purge drops every entry and resets the counters.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
	c.stats = Stats{}
}

func (c *Cache) lookup(key Key) (*audio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.stats.Hits++
		return el.Value.(*entry).buf, true
	}
	c.stats.Misses++
	return nil, false
}

func (c *Cache) peek(key Key) (*audio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry).buf, true
	}
	return nil, false
}

func (c *Cache) add(key Key, buf *audio.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).buf = buf
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, buf: buf})
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
		c.stats.Evictions++
	}
}
