package expression

import (
	"sync"

	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize is the default maximum number of compiled single-form
// expressions a Cache will hold (§4.1).
const DefaultCacheSize = 512

// Cache is a process-safe mapping from single-expression source text to
// its compiled expr-lang program. Many concurrent readers, occasional
// inserts; grounded on the RWMutex+map compiled-program cache pattern in
// LiamCoop-rules' rules.Engine (programs map[string]cel.Program protected
// by sync.RWMutex). Insertion is idempotent: if two goroutines race to
// compile the same source, the second result is discarded rather than
// overwriting the first, so identity is stable for callers that compare
// *vm.Program pointers.
type Cache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	order    []string
	maxSize  int
}

// NewCache creates an empty cache with the given max size. A non-positive
// size falls back to DefaultCacheSize.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		programs: make(map[string]*vm.Program),
		maxSize:  maxSize,
	}
}

// Get returns the cached program for source, if present.
func (c *Cache) Get(source string) (*vm.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.programs[source]
	return p, ok
}

// Put inserts program under source unless an entry already exists. If the
// cache is at capacity, the oldest entry is evicted first (simple FIFO, adequate for a bounded compile cache that is never
// expected to thrash under normal rule-engine workloads).
func (c *Cache) Put(source string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.programs[source]; exists {
		return
	}
	if len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.programs, oldest)
	}
	c.programs[source] = program
	c.order = append(c.order, source)
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}
