package events

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/groupcache/lru"

	"github.com/TimurManjosov/goflagship/ldcontext"
)

// seenContexts is the bounded, TTL'd cache of which contexts have already
// generated an index event, keyed by the xxhash of the fully-qualified
// context key (xxhash chosen over the bucketing package's SHA-1 since this
// is a non-cryptographic hot-path dedup, not a cross-SDK-consistent
// bucketing decision -- grounded on goflagship's own use of xxhash for
// exactly this kind of low-stakes hashing in internal/rollout/hash.go).
type seenContexts struct {
	mu       sync.Mutex
	cache    *lru.Cache
	ttl      time.Duration
}

type seenEntry struct {
	expires time.Time
}

func newSeenContexts(capacity int, ttl time.Duration) *seenContexts {
	return &seenContexts{cache: lru.New(capacity), ttl: ttl}
}

// noticeContext returns true if this is the first time (or first time
// since TTL expiry) this context has been seen, which should trigger an
// index event.
func (s *seenContexts) noticeContext(ctx ldcontext.Context) bool {
	key := xxhash.Sum64String(ctx.FullyQualifiedKey())
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(key); ok {
		entry := v.(seenEntry)
		if time.Now().Before(entry.expires) {
			return false
		}
	}
	s.cache.Add(key, seenEntry{expires: time.Now().Add(s.ttl)})
	return true
}
