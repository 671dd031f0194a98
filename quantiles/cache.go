package quantiles

import (
	"sync"

	"github.com/golang/groupcache/lru"
	q "github.com/invertedv/qdash"
)

// DefaultCacheSize bounds the number of quantile tables kept in memory.
const DefaultCacheSize = 64

// Cache holds loaded quantile tables. Implementations are safe for concurrent use.
type Cache interface {
	Get(k Key) (*q.Table, bool)
	Add(k Key, t *q.Table)
	// Generation of dir. It changes whenever RemoveDir or Purge touches dir.
	Generation(dir string) uint64
	// AddAt adds t only if the generation of k.Dir is still gen.
	AddAt(k Key, t *q.Table, gen uint64) bool
	// RemoveDir evicts every entry of an output directory and returns how many went.
	RemoveDir(dir string) int
	Purge()
	Len() int
}

// LRU is a Cache that evicts the least recently used table once full.
type LRU struct {
	mu    sync.Mutex
	lru   *lru.Cache
	keys  map[Key]struct{}
	gens  map[string]uint64
	epoch uint64
}

func NewLRU(size int) *LRU {
	if size <= 0 {
		size = DefaultCacheSize
	}

	c := &LRU{lru: lru.New(size), keys: make(map[Key]struct{}), gens: make(map[string]uint64)}
	c.lru.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(c.keys, key.(Key))
	}

	return c
}

func (c *LRU) Get(k Key) (*q.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}

	return v.(*q.Table), true
}

func (c *LRU) Add(k Key, t *q.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(k, t)
	c.keys[k] = struct{}{}
}

func (c *LRU) Generation(dir string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epoch + c.gens[dir]
}

func (c *LRU) AddAt(k Key, t *q.Table, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch+c.gens[k.Dir] != gen {
		return false
	}

	c.lru.Add(k, t)
	c.keys[k] = struct{}{}

	return true
}

func (c *LRU) RemoveDir(dir string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[dir]++

	var gone []Key
	for k := range c.keys {
		if k.Dir == dir {
			gone = append(gone, k)
		}
	}

	for _, k := range gone {
		c.lru.Remove(k)
		delete(c.keys, k)
	}

	return len(gone)
}

func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Clear()
	c.keys = make(map[Key]struct{})
	c.epoch++
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}
