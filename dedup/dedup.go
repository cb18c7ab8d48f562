// Package dedup gates Recruit/Asset events through a content-hash TTL cache
// so repeated, unchanged posts don't flood the UI; Chat events always pass.
package dedup

import (
	"hash/fnv"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/resonance-relay/sniffer/protocol"
)

const (
	entryTTL = 300 * time.Second

	// SweepInterval is the cadence at which the watchdog is expected to
	// call Sweep; kept here so the two stay in lockstep with a single
	// source of truth.
	SweepInterval = 60 * time.Second
)

type entry struct {
	hash uint64
}

// Gate deduplicates Recruit/Asset events by content hash over a TTL window.
type Gate struct {
	cache *cache.Cache
}

// NewGate builds a gate whose entries expire after entryTTL. No janitor
// goroutine runs automatically; the watchdog drives eviction explicitly via
// Sweep on its own 60 s cadence, per the sweeper-lives-in-the-watchdog
// design. onExpire, if non-nil, is invoked with the dedup key of every entry
// a sweep drops, so the caller can emit a remove-entity notification for it.
func NewGate(onExpire func(key string)) *Gate {
	return newGate(entryTTL, onExpire)
}

func newGate(ttl time.Duration, onExpire func(key string)) *Gate {
	c := cache.New(ttl, cache.NoExpiration)
	if onExpire != nil {
		c.OnEvicted(func(key string, _ interface{}) {
			onExpire(key)
		})
	}
	return &Gate{cache: c}
}

// Sweep drops every entry whose TTL has elapsed, invoking onExpire for each.
// The watchdog calls it every SweepInterval.
func (g *Gate) Sweep() {
	g.cache.DeleteExpired()
}

// Pass reports whether ev should be emitted. Chat events always pass. For
// Recruit/Asset events, a first sighting of a key always passes; a
// resighting with the same content hash is suppressed; a resighting with a
// changed hash passes and refreshes the cached hash.
func (g *Gate) Pass(ev protocol.Event) bool {
	key, content, ok := dedupFields(ev)
	if !ok {
		return true
	}

	newHash := fnv1a(content)

	if cached, found := g.cache.Get(key); found {
		old := cached.(entry)
		g.cache.Set(key, entry{hash: newHash}, cache.DefaultExpiration)
		return old.hash != newHash
	}

	g.cache.Set(key, entry{hash: newHash}, cache.DefaultExpiration)
	return true
}

func dedupFields(ev protocol.Event) (key string, content []byte, ok bool) {
	switch {
	case ev.Recruit != nil:
		return ev.Recruit.DedupKey(), ev.Recruit.DedupContent(), true
	case ev.Asset != nil:
		return ev.Asset.DedupKey(), ev.Asset.DedupContent(), true
	default:
		return "", nil, false
	}
}

func fnv1a(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}
