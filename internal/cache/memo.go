package cache

import (
	"fmt"
	"sync"
	"time"

	"allday/domain/core"
	"allday/internal"
	"allday/internal/metrics"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// Memo memoizes computed results by cache key. Every entry shares one
// expiry: once the TTL has passed since the first entry was stored the
// whole cache is dropped and results are recomputed on demand. Stored
// values must not be mutated by callers.
//
// Purge and Replace start a new generation. A computation that began in an
// earlier generation is returned to its caller but never stored.
type Memo struct {
	size   int
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
	logger *internal.Logger

	mu    sync.Mutex
	cache *lru.Cache
	epoch time.Time
	gen   uint64
}

// New creates a memo holding at most size entries
func New(size int, ttl time.Duration, logger *internal.Logger) (*Memo, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: cache ttl must be positive", core.ErrConfiguration)
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfiguration, err)
	}
	return &Memo{size: size, cache: c, ttl: ttl, now: time.Now, logger: logger.WithComponent("cache")}, nil
}

// Fresh returns an empty memo with the same size and TTL, used to stage a
// full recomputation before swapping it in with Replace
func (m *Memo) Fresh() (*Memo, error) {
	c, err := lru.New(m.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfiguration, err)
	}
	return &Memo{size: m.size, cache: c, ttl: m.ttl, now: m.now, logger: m.logger}, nil
}

// entries returns the live cache and its generation, dropping everything
// first if the TTL has elapsed
func (m *Memo) entries() (*lru.Cache, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.epoch.IsZero() && m.now().Sub(m.epoch) >= m.ttl {
		n := m.cache.Len()
		m.cache.Purge()
		m.epoch = time.Time{}
		metrics.SetCacheEntries(0)
		m.logger.Info("cache expired: dropped %d entries", n)
	}
	return m.cache, m.gen
}

// store adds a value unless the memo moved on to another generation
func (m *Memo) store(gen uint64, canonical string, value any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	if m.epoch.IsZero() {
		m.epoch = m.now()
	}
	m.cache.Add(canonical, value)
	metrics.SetCacheEntries(m.cache.Len())
	return true
}

// Get returns a stored value
func (m *Memo) Get(key core.CacheKey) (any, bool) {
	c, _ := m.entries()
	v, ok := c.Get(key.Canonical())
	if ok {
		metrics.CacheHit()
	} else {
		metrics.CacheMiss()
	}
	return v, ok
}

// Put stores a value
func (m *Memo) Put(key core.CacheKey, value any) {
	_, gen := m.entries()
	m.store(gen, key.Canonical(), value)
}

// Do returns the stored value for key, computing and storing it on a miss.
// Concurrent misses on one key share a single computation. Errors are not
// stored.
func (m *Memo) Do(key core.CacheKey, compute func() (any, error)) (any, error) {
	canonical := key.Canonical()
	c, gen := m.entries()
	if v, ok := c.Get(canonical); ok {
		metrics.CacheHit()
		return v, nil
	}
	metrics.CacheMiss()

	v, err, _ := m.group.Do(fmt.Sprintf("%d/%s", gen, canonical), func() (any, error) {
		if v, ok := c.Get(canonical); ok {
			return v, nil
		}
		m.logger.Debug("computing %s", canonical)
		v, err := compute()
		if err != nil {
			return nil, err
		}
		if !m.store(gen, canonical, v) {
			m.logger.Debug("%s was computed for a replaced generation, not stored", canonical)
		}
		return v, nil
	})
	return v, err
}

// Fetch is the typed form of Do
func Fetch[T any](m *Memo, key core.CacheKey, compute func() (T, error)) (T, error) {
	v, err := m.Do(key, func() (any, error) { return compute() })
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return out, nil
}

// Keys lists the canonical keys currently stored, oldest first
func (m *Memo) Keys() []string {
	c, _ := m.entries()
	keys := c.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s, ok := k.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetCanonical looks a value up by its canonical key string
func (m *Memo) GetCanonical(canonical string) (any, bool) {
	c, _ := m.entries()
	return c.Get(canonical)
}

// Len returns the number of stored entries
func (m *Memo) Len() int {
	c, _ := m.entries()
	return c.Len()
}

// Purge drops everything
func (m *Memo) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
	m.epoch = time.Time{}
	m.gen++
	metrics.SetCacheEntries(0)
}

// Replace takes over the entries of staged, which must not be used
// afterwards. Readers see either the old entries or the new ones, never an
// empty cache in between.
func (m *Memo) Replace(staged *Memo) {
	staged.mu.Lock()
	c, epoch := staged.cache, staged.epoch
	staged.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache, m.epoch = c, epoch
	m.gen++
	metrics.SetCacheEntries(c.Len())
}
