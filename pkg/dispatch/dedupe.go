package dispatch

import (
	"sync"
	"time"

	"github.com/karlseguin/ccache"
)

const defaultDedupeTTL = 10 * time.Minute

// seenCache remembers recently delivered events so redeliveries of the same
// event can be dropped.
type seenCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *ccache.Cache
}

func newSeenCache(ttl time.Duration) *seenCache {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &seenCache{
		ttl:   ttl,
		cache: ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(100)),
	}
}

// Seen reports whether the event was recorded within the TTL. Events without
// an id are never considered seen.
func (c *seenCache) Seen(eventType, eventID string) bool {
	if eventID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item := c.cache.Get(key(eventType, eventID))
	return item != nil && !item.Expired()
}

// Record remembers the event for the TTL.
func (c *seenCache) Record(eventType, eventID string) {
	if eventID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Set(key(eventType, eventID), struct{}{}, c.ttl)
}

func key(eventType, eventID string) string {
	return eventType + "/" + eventID
}
