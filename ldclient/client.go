// Package ldclient is the Client Core: the top-level orchestrator that
// wires the Data Store, Data Source, Evaluator, Big Segment Bridge and
// Event Pipeline together and exposes the public evaluation surface
// (Variation/VariationDetail/AllFlagsState/Identify/Track/Flush/Close).
// Construction and shutdown ordering is grounded on goflagship's
// cmd/server/main.go (build dependencies in order, install a signal
// handler, shut down in reverse order with a bounded timeout) adapted
// from a main() into a reusable constructor.
package ldclient

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/goflagship/internal/bigsegments"
	"github.com/TimurManjosov/goflagship/internal/datasource"
	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/internal/datastore/memstore"
	"github.com/TimurManjosov/goflagship/internal/events"
	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/internal/ldconfig"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// Client is the in-process SDK entrypoint. A nil *Client method receiver
// never happens in practice: use MakeClient to construct one.
type Client struct {
	cfg   *ldconfig.Config
	log   ldlog.Loggers
	store datastore.Store
	eval  *evaluator.Evaluator
	events *events.Processor
	sender *events.Sender
	diagnostics *events.DiagnosticsManager
	dataSource  datasource.DataSource
	bigSegments *bigsegments.Bridge

	statusBroadcaster *status.Broadcaster[status.DataSourceStatus]
	changeBroadcaster *status.Broadcaster[status.FlagChangeEvent]
	cancelDataSource  context.CancelFunc

	initialized atomic.Bool
	closed      atomic.Bool
	lastStatus  atomic.Value // status.DataSourceStatus
}

// storeDataProvider adapts a datastore.Store to evaluator.DataProvider.
type storeDataProvider struct {
	store datastore.Store
}

func (p storeDataProvider) GetFlag(key string) (*ldmodel.Flag, bool) {
	item, ok, err := p.store.Get(context.Background(), ldmodel.KindFlag, key)
	if err != nil || !ok || item.IsTombstone() {
		return nil, false
	}
	return item.Flag, true
}

func (p storeDataProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	item, ok, err := p.store.Get(context.Background(), ldmodel.KindSegment, key)
	if err != nil || !ok || item.IsTombstone() {
		return nil, false
	}
	return item.Segment, true
}

// MakeClient constructs a Client and starts its Data Source, blocking up
// to waitFor for initialization (mirroring the SDK's usual blocking
// constructor contract) before returning. A waitFor of 0 returns
// immediately without waiting.
func MakeClient(cfg *ldconfig.Config, log ldlog.Loggers, bigSegmentsAdapter bigsegments.StoreAdapter, waitFor time.Duration) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = ldlog.NewDefault()
	}

	store := memstore.New()
	statusBroadcaster := status.NewBroadcaster[status.DataSourceStatus]()
	changeBroadcaster := status.NewBroadcaster[status.FlagChangeEvent]()

	bsb := bigsegments.New(bigSegmentsAdapter)
	eval := evaluator.New(storeDataProvider{store: store}, bsb)

	c := &Client{
		cfg:               cfg,
		log:               log,
		store:             store,
		eval:              eval,
		bigSegments:       bsb,
		statusBroadcaster: statusBroadcaster,
		changeBroadcaster: changeBroadcaster,
	}

	if !cfg.Offline {
		c.sender = events.NewSender(cfg.EventsBaseURI+"/bulk", authHeader(cfg.SDKKey), nil, log)
		c.events = events.NewProcessor(events.Config{
			Capacity:      cfg.EventCapacity,
			FlushInterval: cfg.EventFlushInterval,
		}, c.sender, log, nil)
		c.sender.OnServerTime(c.events.NoteServerTime)

		if !cfg.DiagnosticOptOut {
			c.diagnostics = events.NewDiagnosticsManager(cfg.EventsBaseURI+"/diagnostic", authHeader(cfg.SDKKey), nil, cfg.DiagnosticInterval, log)
			c.diagnostics.Start(time.Now().UnixMilli())
		}

		if cfg.Stream {
			c.dataSource = datasource.NewStreaming(datasource.StreamingConfig{
				StreamURI:  cfg.StreamBaseURI + "/all",
				AuthHeader: authHeader(cfg.SDKKey),
			}, store, log, statusBroadcaster, changeBroadcaster)
		} else {
			c.dataSource = datasource.NewPolling(datasource.PollingConfig{
				PollURI:    cfg.PollBaseURI + "/sdk/latest-all",
				AuthHeader: authHeader(cfg.SDKKey),
				Interval:   cfg.PollInterval,
			}, store, log, statusBroadcaster, changeBroadcaster)
		}

		ctx, cancel := context.WithCancel(context.Background())
		c.cancelDataSource = cancel
		c.trackStatus(statusBroadcaster)
		if err := c.dataSource.Start(ctx); err != nil {
			return nil, fmt.Errorf("start data source: %w", err)
		}
		c.awaitInitialization(statusBroadcaster, waitFor)
	} else {
		_ = store.Init(context.Background(), map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor{
			ldmodel.KindFlag:    {},
			ldmodel.KindSegment: {},
		})
		c.initialized.Store(true)
		c.lastStatus.Store(status.DataSourceStatus{State: status.DataSourceOff})
	}

	return c, nil
}

func authHeader(sdkKey string) string {
	if sdkKey == "" {
		return ""
	}
	return sdkKey
}

func (c *Client) awaitInitialization(b *status.Broadcaster[status.DataSourceStatus], waitFor time.Duration) {
	if waitFor <= 0 {
		return
	}
	ch, unsub := b.Subscribe()
	defer unsub()
	deadline := time.After(waitFor)
	for {
		select {
		case s := <-ch:
			if s.State == status.DataSourceValid {
				c.initialized.Store(true)
				return
			}
			if s.State == status.DataSourceOff {
				return
			}
		case <-deadline:
			return
		}
	}
}

// trackStatus mirrors every published DataSourceStatus into lastStatus so
// Status() can report the current state without blocking on a subscribe,
// and marks the client initialized on the first VALID status.
func (c *Client) trackStatus(b *status.Broadcaster[status.DataSourceStatus]) {
	c.lastStatus.Store(status.DataSourceStatus{State: status.DataSourceInitializing})
	ch, unsub := b.Subscribe()
	go func() {
		defer unsub()
		for s := range ch {
			c.lastStatus.Store(s)
			if s.State == status.DataSourceValid {
				c.initialized.Store(true)
			}
		}
	}()
}

// Status returns the most recently observed Data Source status.
func (c *Client) Status() status.DataSourceStatus {
	if v := c.lastStatus.Load(); v != nil {
		return v.(status.DataSourceStatus)
	}
	return status.DataSourceStatus{State: status.DataSourceInitializing}
}

// IsInitialized reports whether the Data Source has completed at least
// one successful sync.
func (c *Client) IsInitialized() bool {
	return c.initialized.Load()
}

// Flush requests an immediate delivery of any buffered events.
func (c *Client) Flush() {
	if c.events != nil {
		c.events.Flush()
	}
}

// Close shuts down the Data Source, flushes and stops the Event Pipeline,
// then closes the Data Store -- in that order, matching the
// spec-mandated orchestration sequence (stop DSrc -> flush EP -> stop EP
// -> close DS).
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.dataSource != nil {
		if c.cancelDataSource != nil {
			c.cancelDataSource()
		}
		_ = c.dataSource.Close()
	}
	if c.diagnostics != nil {
		c.diagnostics.Stop()
	}
	if c.events != nil {
		c.events.Flush()
		_ = c.events.Close()
	}
	return c.store.Close()
}
