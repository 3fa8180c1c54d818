package cache

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/askfolio/chat-backend/internal/entity"
	gocache "github.com/patrickmn/go-cache"
)

// ResponseCache stores completed generation results keyed by normalized
// message and intent, so repeated questions skip retrieval and generation.
type ResponseCache struct {
	store      *gocache.Cache
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64
}

type Stats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Entries        int     `json:"entries"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

func New(ttl time.Duration, maxEntries int) *ResponseCache {
	return &ResponseCache{
		store:      gocache.New(ttl, ttl/2),
		maxEntries: maxEntries,
	}
}

// Key normalizes the message (trim, lowercase) and hashes it together with
// the intent, so casing and surrounding whitespace do not fragment entries.
func Key(message string, intent entity.Intent) string {
	normalized := strings.ToLower(strings.TrimSpace(message)) + ":" + intent.String()
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func (c *ResponseCache) Get(key string) (*entity.GenerationResult, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)

	result := v.(entity.GenerationResult)
	result.Cached = true
	return &result, true
}

// Set stores a copy of the result. When the cache is full the entry closest
// to expiry (the oldest insert, since all entries share one TTL) is evicted.
func (c *ResponseCache) Set(key string, result entity.GenerationResult) {
	result.Cached = false

	if c.store.ItemCount() >= c.maxEntries {
		c.evictOldest()
	}

	c.store.SetDefault(key, result)
}

func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestExpiry int64

	for key, item := range c.store.Items() {
		if oldestKey == "" || item.Expiration < oldestExpiry {
			oldestKey = key
			oldestExpiry = item.Expiration
		}
	}

	if oldestKey != "" {
		c.store.Delete(oldestKey)
	}
}

func (c *ResponseCache) Clear() {
	c.store.Flush()
}

func (c *ResponseCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = math.Round(float64(hits)/float64(total)*10000) / 100
	}

	return Stats{
		Hits:           hits,
		Misses:         misses,
		Entries:        c.store.ItemCount(),
		HitRatePercent: hitRate,
	}
}
