// Package ldmodel defines the wire data model for flags and segments:
// rules, clauses, rollouts, targets and prerequisites. These types are
// JSON-tagged to match the data-source payload format.
package ldmodel

// Kind identifies which collection an item belongs to in the Data Store.
type Kind string

const (
	KindFlag    Kind = "flags"
	KindSegment Kind = "segments"
)

// VariationIndex references one of a Flag's Variations by position.
type VariationIndex = int

// Clause is one condition within a Rule.
type Clause struct {
	ContextKind string   `json:"contextKind,omitempty"`
	Attribute   string   `json:"attribute"`
	Op          string   `json:"op"`
	Values      []any    `json:"values"`
	Negate      bool     `json:"negate,omitempty"`
}

// WeightedVariation is one entry of a percentage Rollout.
type WeightedVariation struct {
	Variation VariationIndex `json:"variation"`
	Weight    int            `json:"weight"` // 0..100000, thousandths of a percent
}

// RolloutKind distinguishes a plain percentage rollout from an experiment.
type RolloutKind string

const (
	RolloutKindRollout    RolloutKind = "rollout"
	RolloutKindExperiment RolloutKind = "experiment"
)

// Rollout describes a weighted, hash-bucketed variation split.
type Rollout struct {
	Kind          RolloutKind         `json:"kind,omitempty"`
	Variations    []WeightedVariation `json:"variations"`
	BucketBy      string              `json:"bucketBy,omitempty"`
	ContextKind   string              `json:"contextKind,omitempty"`
	Seed          *int                `json:"seed,omitempty"`
}

// VariationOrRollout is the rule/fallthrough target: either a fixed
// variation index or a weighted Rollout.
type VariationOrRollout struct {
	Variation *VariationIndex `json:"variation,omitempty"`
	Rollout   *Rollout        `json:"rollout,omitempty"`
}

// FlagRule is one entry of Flag.Rules: a list of AND'd clauses plus the
// variation/rollout to apply when all clauses match.
type FlagRule struct {
	ID                  string   `json:"id"`
	Clauses             []Clause `json:"clauses"`
	VariationOrRollout   `json:",inline"`
	TrackEvents         bool   `json:"trackEvents,omitempty"`
}

// Target lists context keys of a single kind that map directly to a
// variation, bypassing rule evaluation.
type Target struct {
	ContextKind string         `json:"contextKind,omitempty"`
	Values      []string       `json:"values"`
	Variation   VariationIndex `json:"variation"`
}

// Prerequisite names a flag that must evaluate to a specific variation for
// this flag to be considered on.
type Prerequisite struct {
	Key       string         `json:"key"`
	Variation VariationIndex `json:"variation"`
}

// Flag is the evaluable unit: on/off state, variation list, targeting
// rules, prerequisites, and the fallback distribution.
type Flag struct {
	Key                    string         `json:"key"`
	Version                int            `json:"version"`
	Deleted                bool           `json:"deleted,omitempty"`
	On                     bool           `json:"on"`
	Variations             []any          `json:"variations"`
	OffVariation           *VariationIndex `json:"offVariation,omitempty"`
	Fallthrough            VariationOrRollout `json:"fallthrough"`
	Targets                []Target       `json:"targets,omitempty"`
	ContextTargets         []Target       `json:"contextTargets,omitempty"`
	Rules                  []FlagRule     `json:"rules,omitempty"`
	Prerequisites          []Prerequisite `json:"prerequisites,omitempty"`
	Salt                   string         `json:"salt,omitempty"`
	TrackEvents            bool           `json:"trackEvents,omitempty"`
	TrackEventsFallthrough bool           `json:"trackEventsFallthrough,omitempty"`
	DebugEventsUntilDate   *int64         `json:"debugEventsUntilDate,omitempty"`
	ClientSideAvailability *ClientSideAvailability `json:"clientSideAvailability,omitempty"`
	SamplingRatio          *int           `json:"samplingRatio,omitempty"`
	ExcludeFromSummaries   bool           `json:"excludeFromSummaries,omitempty"`
}

// ClientSideAvailability controls whether a flag may be evaluated/served
// to client-side or mobile SDKs; the server-side evaluator ignores it but
// the Data Store and events pipeline preserve it round-trip.
type ClientSideAvailability struct {
	UsingMobileKey     bool `json:"usingMobileKey"`
	UsingEnvironmentID bool `json:"usingEnvironmentId"`
}

// SegmentRule is one entry of Segment.Rules: clauses plus an optional
// rollout controlling partial segment membership.
type SegmentRule struct {
	ID       string   `json:"id,omitempty"`
	Clauses  []Clause `json:"clauses"`
	Weight   *int     `json:"weight,omitempty"`
	BucketBy string   `json:"bucketBy,omitempty"`
}

// Segment is a reusable, named set of contexts referenced by clauses with
// op == "segmentMatch".
type Segment struct {
	Key           string        `json:"key"`
	Version       int           `json:"version"`
	Deleted       bool          `json:"deleted,omitempty"`
	Included      []string      `json:"included,omitempty"`
	Excluded      []string      `json:"excluded,omitempty"`
	IncludedContexts []Target   `json:"includedContexts,omitempty"`
	ExcludedContexts []Target   `json:"excludedContexts,omitempty"`
	Rules         []SegmentRule `json:"rules,omitempty"`
	Salt          string        `json:"salt,omitempty"`
	Unbounded     bool          `json:"unbounded,omitempty"`
	UnboundedContextKind string `json:"unboundedContextKind,omitempty"`
	Generation    *int          `json:"generation,omitempty"`
}

// ItemDescriptor wraps an item with its version for the Data Store,
// representing deletions as a descriptor whose Flag and Segment are both
// nil, keeping only the Version (a tombstone).
type ItemDescriptor struct {
	Version int
	Flag    *Flag
	Segment *Segment
}

// IsTombstone reports whether this descriptor represents a deletion.
func (d ItemDescriptor) IsTombstone() bool {
	return d.Flag == nil && d.Segment == nil
}
