// Package events implements the Event Pipeline: a bounded inbound queue,
// summarization, per-context seen-LRU for index events, debug filtering,
// context redaction, periodic flushing, and HTTP delivery with a single
// retry. Grounded most heavily on goflagship's internal/audit.Service
// (queue + worker + atomic-CAS idempotent Close, drop-on-full with a
// warning) and internal/webhook.Dispatcher (retry-with-idempotency-header
// delivery, HMAC-flavored request signing reused here only for the
// payload-id header, not signing).
package events

import (
	"time"

	"github.com/TimurManjosov/goflagship/ldcontext"
)

// InputEventKind distinguishes the events the public API accepts.
type InputEventKind string

const (
	InputEvaluation InputEventKind = "feature"
	InputIdentify   InputEventKind = "identify"
	InputCustom     InputEventKind = "custom"
	InputMigrationOp InputEventKind = "migration_op"
)

// InputEvent is what Client Core hands to the pipeline's inbound API.
type InputEvent struct {
	Kind           InputEventKind
	CreationDate   int64
	Context        ldcontext.Context
	FlagKey        string
	FlagVersion    int
	Value          any
	Default        any
	VariationIndex *int
	Reason         any
	TrackEvents    bool
	DebugEventsUntilDate *int64
	SamplingRatio  int
	ExcludeFromSummaries bool

	EventName string // custom events
	Data      any    // custom events

	MigrationOp string
	MigrationLatenciesMs map[string]int64
	MigrationErrors      map[string]bool
	MigrationConsistent  *bool
}

// Config controls pipeline sizing and timing, defaults matching spec.
type Config struct {
	Capacity            int
	FlushInterval       time.Duration
	SeenContextCapacity int
	SeenContextTTL      time.Duration
	DiagnosticInterval  time.Duration
	EventsURI           string
	AuthHeader          string
}

func (c *Config) applyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.SeenContextCapacity <= 0 {
		c.SeenContextCapacity = 1000
	}
	if c.SeenContextTTL <= 0 {
		c.SeenContextTTL = 5 * time.Minute
	}
	if c.DiagnosticInterval <= 0 {
		c.DiagnosticInterval = 15 * time.Minute
	}
	if c.DiagnosticInterval < 60*time.Second {
		c.DiagnosticInterval = 60 * time.Second
	}
}
