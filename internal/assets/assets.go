// Package assets handles disc resource loading and caching.
package assets

import (
	"fmt"
	"sync"

	"github.com/Faultbox/fftmap/pkg/disc"
)

// Manager reads resources from a disc image and caches their bytes.
// It is safe for concurrent use.
type Manager struct {
	img   *disc.Image
	cache *Cache
}

// NewManager creates a new asset manager over img.
func NewManager(img *disc.Image) *Manager {
	return &Manager{
		img:   img,
		cache: NewCache(),
	}
}

// Image returns the underlying disc image.
func (m *Manager) Image() *disc.Image {
	return m.img
}

// Load returns a fresh cursor over the resource at sector. Cached bytes are
// shared between cursors and must not be modified.
func (m *Manager) Load(sector, length int) (*disc.Resource, error) {
	key := Key{Sector: sector, Length: length}

	if data, ok := m.cache.Get(key); ok {
		return disc.NewResource(data)
	}

	r, err := m.img.ReadFile(sector, length)
	if err != nil {
		return nil, fmt.Errorf("loading sector %d (%d bytes): %w", sector, length, err)
	}
	m.cache.Set(key, r.Bytes())
	return r, nil
}

// Cache returns the manager's cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Key identifies a resource by its start sector and byte length.
type Key struct {
	Sector int
	Length int
}

// Cache is a simple in-memory cache for loaded resources.
type Cache struct {
	data map[Key][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[Key][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key Key, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Len returns the number of cached resources.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
