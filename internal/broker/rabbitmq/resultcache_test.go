package rabbitmq

import (
	"strconv"
	"testing"
)

func TestResultCache_PutAndTake(t *testing.T) {
	c := newResultCache()
	c.Put("job-a", []byte(`{"a":1}`))
	c.Put("job-b", []byte(`{"b":2}`))

	body, ok := c.Take("job-a")
	if !ok {
		t.Fatal("expected job-a to be cached")
	}
	if string(body) != `{"a":1}` {
		t.Fatalf("unexpected body: %s", body)
	}

	if _, ok := c.Take("job-a"); ok {
		t.Fatal("expected job-a to be removed after Take")
	}

	if _, ok := c.Take("job-c"); ok {
		t.Fatal("expected miss for unknown key")
	}

	if c.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", c.Len())
	}
}

func TestResultCache_OutOfOrderScenario(t *testing.T) {
	// Client awaits job A; job B's result for the same function arrives
	// first on the shared reply queue.
	c := newResultCache()
	c.Put("job-B", []byte(`"zyx"`))

	if _, ok := c.Take("job-A"); ok {
		t.Fatal("job A should not be cached yet")
	}

	c.Put("job-A", []byte(`"cba"`))
	resultA, ok := c.Take("job-A")
	if !ok || string(resultA) != `"cba"` {
		t.Fatalf("expected job A's own result, got ok=%v body=%s", ok, resultA)
	}

	resultB, ok := c.Take("job-B")
	if !ok || string(resultB) != `"zyx"` {
		t.Fatalf("expected job B's result still retrievable, got ok=%v body=%s", ok, resultB)
	}
}

func TestResultCache_EvictsOldestOnEntryCap(t *testing.T) {
	var evicted []string
	c := newResultCache()
	c.onEvict = func(id string) { evicted = append(evicted, id) }

	for i := 0; i < maxCacheEntries; i++ {
		c.Put(keyFor(i), []byte("x"))
	}
	if c.Len() != maxCacheEntries {
		t.Fatalf("expected cache at capacity, got %d", c.Len())
	}

	// One more insertion should evict exactly one prior (the oldest) entry.
	c.Put("overflow", []byte("x"))

	if c.Len() != maxCacheEntries {
		t.Fatalf("expected cache to stay at capacity, got %d", c.Len())
	}
	if len(evicted) != 1 {
		t.Fatalf("expected exactly one eviction, got %d", len(evicted))
	}
	if evicted[0] != keyFor(0) {
		t.Fatalf("expected LRU (oldest, key 0) to be evicted, got %q", evicted[0])
	}
	if _, ok := c.Take("overflow"); !ok {
		t.Fatal("expected newly inserted entry to survive its own insertion")
	}
}

func TestResultCache_EvictsOnByteCap(t *testing.T) {
	c := newResultCache()
	big := make([]byte, maxCacheBytes/2+1)

	c.Put("first", big)
	c.Put("second", big) // pushes totalSize over maxCacheBytes

	if c.Len() != 1 {
		t.Fatalf("expected byte cap to evict down to 1 entry, got %d", c.Len())
	}
	if _, ok := c.Take("first"); ok {
		t.Fatal("expected first (oldest) entry evicted by byte cap")
	}
	if _, ok := c.Take("second"); !ok {
		t.Fatal("expected second entry to survive")
	}
}

func keyFor(i int) string {
	return "job-" + strconv.Itoa(i)
}
