package events

import "sync"

// summaryKey identifies one bucket of the summary table.
type summaryKey struct {
	flagKey        string
	contextKinds   string // sorted, joined context kinds
	variationIndex int
	hasVariation   bool
	isDefault      bool
}

type summaryCounter struct {
	count   int
	value   any
	version int
}

// summarizer accumulates per-flag variation counts between flushes,
// grounded on the spec's summary-table design; goflagship has no analog
// (the teacher never aggregates events, it dispatches each one), so the
// table shape follows the spec directly.
type summarizer struct {
	mu        sync.Mutex
	startTime int64
	endTime   int64
	counters  map[summaryKey]*summaryCounter
	defaults  map[string]any
}

func newSummarizer() *summarizer {
	return &summarizer{counters: map[summaryKey]*summaryCounter{}, defaults: map[string]any{}}
}

func (s *summarizer) record(e InputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startTime == 0 || e.CreationDate < s.startTime {
		s.startTime = e.CreationDate
	}
	if e.CreationDate > s.endTime {
		s.endTime = e.CreationDate
	}

	key := summaryKey{flagKey: e.FlagKey, contextKinds: contextKindsTuple(e)}
	isDefault := e.VariationIndex == nil
	if !isDefault {
		key.variationIndex = *e.VariationIndex
		key.hasVariation = true
	}
	key.isDefault = isDefault

	c, ok := s.counters[key]
	if !ok {
		c = &summaryCounter{value: e.Value, version: e.FlagVersion}
		s.counters[key] = c
	}
	c.count++
	s.defaults[e.FlagKey] = e.Default
}

func contextKindsTuple(e InputEvent) string {
	kinds := e.Context.KindsInOrder()
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += ","
		}
		out += k
	}
	return out
}

// SummaryPayload is the flush-time JSON shape of one summary event.
type SummaryPayload struct {
	Kind      string                    `json:"kind"`
	StartDate int64                     `json:"startDate"`
	EndDate   int64                     `json:"endDate"`
	Features  map[string]FeatureSummary `json:"features"`
}

type FeatureSummary struct {
	Default   any              `json:"default"`
	Counters  []CounterSummary `json:"counters"`
	ContextKinds []string      `json:"contextKinds,omitempty"`
}

type CounterSummary struct {
	Value     any  `json:"value"`
	Version   int  `json:"version"`
	Count     int  `json:"count"`
	Variation *int `json:"variation,omitempty"`
	Unknown   bool `json:"unknown,omitempty"`
}

// flush drains the table into a SummaryPayload, or returns ok=false if
// nothing was recorded since the last flush.
func (s *summarizer) flush() (SummaryPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.counters) == 0 {
		return SummaryPayload{}, false
	}

	features := map[string]FeatureSummary{}
	for key, c := range s.counters {
		fs, ok := features[key.flagKey]
		if !ok {
			fs = FeatureSummary{Default: s.defaults[key.flagKey]}
		}
		cs := CounterSummary{Value: c.value, Version: c.version, Count: c.count}
		if key.hasVariation {
			v := key.variationIndex
			cs.Variation = &v
		} else {
			cs.Unknown = true
		}
		fs.Counters = append(fs.Counters, cs)
		features[key.flagKey] = fs
	}

	payload := SummaryPayload{
		Kind:      "summary",
		StartDate: s.startTime,
		EndDate:   s.endTime,
		Features:  features,
	}
	s.counters = map[summaryKey]*summaryCounter{}
	s.defaults = map[string]any{}
	s.startTime, s.endTime = 0, 0
	return payload, true
}
