// Package cachingwrapper wraps a persistent datastore.Store with a
// short-TTL read cache and an availability poller, the way goflagship's
// internal/db pool tunes a HealthCheckPeriod for connection liveness. Only
// persistent stores need wrapping; memstore is already as fast as a cache.
package cachingwrapper

import (
	"context"
	"sync"
	"time"

	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

const defaultTTL = 15 * time.Second
const defaultPollInterval = 500 * time.Millisecond

type cacheEntry struct {
	item    ldmodel.ItemDescriptor
	ok      bool
	expires time.Time
}

// Wrapper adds caching and availability polling in front of an underlying
// persistent Store.
type Wrapper struct {
	underlying datastore.Store
	ttl        time.Duration
	log        ldlog.Loggers
	statusBroadcaster *status.Broadcaster[status.DataStoreStatus]

	mu    sync.RWMutex
	cache map[ldmodel.Kind]map[string]cacheEntry

	stopPoll chan struct{}
	available bool
}

var _ datastore.Store = (*Wrapper)(nil)

func New(underlying datastore.Store, ttl time.Duration, log ldlog.Loggers, broadcaster *status.Broadcaster[status.DataStoreStatus]) *Wrapper {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = ldlog.NoOp()
	}
	w := &Wrapper{
		underlying:        underlying,
		ttl:               ttl,
		log:               log,
		statusBroadcaster: broadcaster,
		cache:             map[ldmodel.Kind]map[string]cacheEntry{},
		stopPoll:          make(chan struct{}),
		available:         true,
	}
	go w.pollAvailability()
	return w
}

func (w *Wrapper) pollAvailability() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopPoll:
			return
		case <-ticker.C:
			_, err := w.underlying.Initialized(context.Background())
			available := err == nil
			w.mu.Lock()
			changed := available != w.available
			w.available = available
			w.mu.Unlock()
			if changed {
				w.log.Warn("data store availability changed", "available", available)
				if w.statusBroadcaster != nil {
					w.statusBroadcaster.Publish(status.DataStoreStatus{Available: available, NeedsRefresh: available})
				}
			}
		}
	}
}

func (w *Wrapper) Init(ctx context.Context, allData map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor) error {
	if err := w.underlying.Init(ctx, allData); err != nil {
		return err
	}
	w.mu.Lock()
	w.cache = map[ldmodel.Kind]map[string]cacheEntry{}
	w.mu.Unlock()
	return nil
}

func (w *Wrapper) Get(ctx context.Context, kind ldmodel.Kind, key string) (ldmodel.ItemDescriptor, bool, error) {
	w.mu.RLock()
	if m, ok := w.cache[kind]; ok {
		if entry, ok := m[key]; ok && time.Now().Before(entry.expires) {
			w.mu.RUnlock()
			return entry.item, entry.ok, nil
		}
	}
	w.mu.RUnlock()

	item, ok, err := w.underlying.Get(ctx, kind, key)
	if err != nil {
		return item, ok, err
	}
	w.mu.Lock()
	if w.cache[kind] == nil {
		w.cache[kind] = map[string]cacheEntry{}
	}
	w.cache[kind][key] = cacheEntry{item: item, ok: ok, expires: time.Now().Add(w.ttl)}
	w.mu.Unlock()
	return item, ok, nil
}

func (w *Wrapper) All(ctx context.Context, kind ldmodel.Kind) (map[string]ldmodel.ItemDescriptor, error) {
	return w.underlying.All(ctx, kind)
}

func (w *Wrapper) Upsert(ctx context.Context, kind ldmodel.Kind, key string, item ldmodel.ItemDescriptor) (bool, error) {
	applied, err := w.underlying.Upsert(ctx, kind, key, item)
	if applied {
		w.mu.Lock()
		if w.cache[kind] != nil {
			delete(w.cache[kind], key)
		}
		w.mu.Unlock()
	}
	return applied, err
}

func (w *Wrapper) Initialized(ctx context.Context) (bool, error) {
	return w.underlying.Initialized(ctx)
}

func (w *Wrapper) Close() error {
	close(w.stopPoll)
	return w.underlying.Close()
}
