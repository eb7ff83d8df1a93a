// Package bigsegments implements the Big Segment Bridge: a bounded,
// TTL'd per-context membership cache in front of an external store
// adapter, with staleness detection. goflagship has no big-segment
// concept to ground this on; the interface-first adapter shape follows
// internal/store.Store's design, and the bounded cache is built on
// golang/groupcache's lru.Cache, adopted from matt-riley-flagz's
// dependency graph since no LRU exists anywhere in the chosen teacher.
package bigsegments

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/TimurManjosov/goflagship/ldcontext"
)

var tracer = otel.Tracer("github.com/TimurManjosov/goflagship/internal/bigsegments")

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = 5 * time.Second
	defaultStaleAfter = 2 * time.Minute
)

// Status mirrors the evaluator's BigSegmentsProvider status strings.
const (
	StatusHealthy       = "HEALTHY"
	StatusStale         = "STALE"
	StatusNotConfigured = "NOT_CONFIGURED"
	StatusStoreError    = "STORE_ERROR"
)

// StoreAdapter is the external big-segment store this bridge consults.
// Implementations typically wrap a database that a companion relay
// process populates out-of-band.
type StoreAdapter interface {
	// Membership returns the set of segment keys (with inclusion sign: a
	// leading '-' means excluded) the given fully-qualified context key
	// currently belongs to.
	Membership(ctx context.Context, contextKey string) (map[string]bool, error)
	// LastSynced returns the last time the external store was updated by
	// its populator, used for staleness detection.
	LastSynced(ctx context.Context) (time.Time, error)
}

type cacheEntry struct {
	membership map[string]bool
	err        error
	expires    time.Time
}

// Bridge is the evaluator-facing Big Segment lookup surface.
type Bridge struct {
	adapter    StoreAdapter
	cacheSize  int
	cacheTTL   time.Duration
	staleAfter time.Duration

	mu    sync.Mutex
	cache *lru.Cache
}

// New returns a Bridge. A nil adapter produces NOT_CONFIGURED for every
// lookup, matching a host that never wired big-segment support.
func New(adapter StoreAdapter) *Bridge {
	return &Bridge{
		adapter:    adapter,
		cacheSize:  defaultCacheSize,
		cacheTTL:   defaultCacheTTL,
		staleAfter: defaultStaleAfter,
		cache:      lru.New(defaultCacheSize),
	}
}

// MembershipStatus implements evaluator.BigSegmentsProvider.
func (b *Bridge) MembershipStatus(segmentKey string, ctx ldcontext.Context) (*bool, string) {
	if b.adapter == nil {
		return nil, StatusNotConfigured
	}

	contextKey := ctx.FullyQualifiedKey()
	entry, err := b.lookup(contextKey)
	if err != nil {
		return nil, StatusStoreError
	}

	status := b.healthStatus()

	if included, ok := entry.membership["-"+segmentKey]; ok && included {
		f := false
		return &f, status
	}
	if included, ok := entry.membership[segmentKey]; ok && included {
		t := true
		return &t, status
	}
	f := false
	return &f, status
}

func (b *Bridge) lookup(contextKey string) (cacheEntry, error) {
	b.mu.Lock()
	if v, ok := b.cache.Get(contextKey); ok {
		entry := v.(cacheEntry)
		if time.Now().Before(entry.expires) {
			b.mu.Unlock()
			return entry, entry.err
		}
	}
	b.mu.Unlock()

	ctx, span := tracer.Start(context.Background(), "bigsegments.Membership")
	span.SetAttributes(attribute.Int("membership.cache_size", b.cacheSize))
	membership, err := b.adapter.Membership(ctx, contextKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "membership lookup failed")
	}
	span.End()
	entry := cacheEntry{membership: membership, err: err, expires: time.Now().Add(b.cacheTTL)}

	b.mu.Lock()
	b.cache.Add(contextKey, entry)
	b.mu.Unlock()

	return entry, err
}

func (b *Bridge) healthStatus() string {
	ctx, span := tracer.Start(context.Background(), "bigsegments.LastSynced")
	defer span.End()

	synced, err := b.adapter.LastSynced(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "last-synced lookup failed")
		return StatusStoreError
	}
	if time.Since(synced) > b.staleAfter {
		return StatusStale
	}
	return StatusHealthy
}
