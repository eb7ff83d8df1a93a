package events

import (
	"testing"

	"github.com/TimurManjosov/goflagship/ldcontext"
)

func TestSummarizer_FlushEmptyReturnsFalse(t *testing.T) {
	s := newSummarizer()
	_, ok := s.flush()
	if ok {
		t.Errorf("expected flush() on an empty summarizer to return ok=false")
	}
}

func TestSummarizer_RecordAccumulatesCounts(t *testing.T) {
	s := newSummarizer()
	idx := 1
	ev := InputEvent{
		Kind: InputEvaluation, FlagKey: "f1", FlagVersion: 3,
		Context: ldcontext.New("u1"), Value: true, Default: false,
		VariationIndex: &idx, CreationDate: 1000,
	}
	s.record(ev)
	s.record(ev)

	payload, ok := s.flush()
	if !ok {
		t.Fatalf("expected flush() to return ok=true after recording events")
	}
	fs, present := payload.Features["f1"]
	if !present {
		t.Fatalf("Features[f1] missing: %+v", payload.Features)
	}
	if len(fs.Counters) != 1 || fs.Counters[0].Count != 2 {
		t.Fatalf("Counters = %+v, want one counter with count 2", fs.Counters)
	}
	if fs.Default != false {
		t.Errorf("Default = %v, want false", fs.Default)
	}
}

func TestSummarizer_DistinctVariationsGetSeparateCounters(t *testing.T) {
	s := newSummarizer()
	idx0, idx1 := 0, 1
	s.record(InputEvent{Kind: InputEvaluation, FlagKey: "f1", Context: ldcontext.New("u1"), VariationIndex: &idx0})
	s.record(InputEvent{Kind: InputEvaluation, FlagKey: "f1", Context: ldcontext.New("u2"), VariationIndex: &idx1})

	payload, _ := s.flush()
	if len(payload.Features["f1"].Counters) != 2 {
		t.Fatalf("expected two distinct counters for two variations, got %+v", payload.Features["f1"].Counters)
	}
}

func TestSummarizer_DefaultValueMarkedUnknown(t *testing.T) {
	s := newSummarizer()
	s.record(InputEvent{Kind: InputEvaluation, FlagKey: "f1", Context: ldcontext.New("u1"), VariationIndex: nil})

	payload, _ := s.flush()
	counters := payload.Features["f1"].Counters
	if len(counters) != 1 || !counters[0].Unknown {
		t.Fatalf("expected a nil VariationIndex to produce an Unknown counter, got %+v", counters)
	}
}

func TestSummarizer_FlushResetsState(t *testing.T) {
	s := newSummarizer()
	idx := 0
	s.record(InputEvent{Kind: InputEvaluation, FlagKey: "f1", Context: ldcontext.New("u1"), VariationIndex: &idx})
	s.flush()

	_, ok := s.flush()
	if ok {
		t.Errorf("expected a second flush with no new events to return ok=false")
	}
}
