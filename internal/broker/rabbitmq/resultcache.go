package rabbitmq

import "container/list"

// Result-cache bounds (spec §3, §5): whichever binds first.
const (
	maxCacheEntries = 102400
	maxCacheBytes   = 10 * 1024 * 1024 // 10 MiB
)

// cachedResult is one out-of-order result message held for a waiter that
// has not yet asked for it.
type cachedResult struct {
	correlationID string
	body          []byte
}

// resultCache is a bounded, LRU-by-insertion cache of result messages
// keyed by correlation id, scoped to one (connection, function) pair.
//
// While a client awaits its own job's result on a shared reply queue, it
// may receive results belonging to other still-outstanding jobs of the
// same function; those are held here until their own waiter arrives.
type resultCache struct {
	entries   map[string]*list.Element
	order     *list.List // front = most recently inserted
	totalSize int

	onEvict func(correlationID string)
}

func newResultCache() *resultCache {
	return &resultCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Put inserts a result under its correlation id, evicting the oldest
// entry (by insertion order) if the new entry would push the cache over
// either bound. Eviction never drops the entry being inserted.
func (c *resultCache) Put(correlationID string, body []byte) {
	if existing, ok := c.entries[correlationID]; ok {
		c.order.Remove(existing)
		c.totalSize -= len(existing.Value.(*cachedResult).body)
		delete(c.entries, correlationID)
	}

	entry := &cachedResult{correlationID: correlationID, body: body}
	elem := c.order.PushFront(entry)
	c.entries[correlationID] = elem
	c.totalSize += len(body)

	for (len(c.entries) > maxCacheEntries || c.totalSize > maxCacheBytes) && c.order.Len() > 1 {
		c.evictOldest()
	}
}

// Take removes and returns the cached result for correlationID, if any.
func (c *resultCache) Take(correlationID string) ([]byte, bool) {
	elem, ok := c.entries[correlationID]
	if !ok {
		return nil, false
	}
	c.order.Remove(elem)
	delete(c.entries, correlationID)
	c.totalSize -= len(elem.Value.(*cachedResult).body)
	return elem.Value.(*cachedResult).body, true
}

func (c *resultCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*cachedResult)
	c.order.Remove(oldest)
	delete(c.entries, entry.correlationID)
	c.totalSize -= len(entry.body)

	if c.onEvict != nil {
		c.onEvict(entry.correlationID)
	}
}

// Len returns the number of entries currently cached.
func (c *resultCache) Len() int {
	return len(c.entries)
}
