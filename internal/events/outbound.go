package events

// OutboundEvent is one item destined for the flush payload: either a
// feature/identify/custom/migration_op event or a summary event.
type OutboundEvent struct {
	Kind         string
	CreationDate int64
	Context      RedactedContext
	FlagKey      string
	FlagVersion  int
	Value        any
	Default      any
	Variation    *int
	Reason       any
	Debug        bool

	EventName string
	Data      any

	MigrationOp          string
	MigrationLatenciesMs map[string]int64
	MigrationErrors      map[string]bool
	MigrationConsistent  *bool

	Summary *SummaryPayload
}

func toOutboundEvent(e InputEvent, isNewContext, debug bool, globalPrivateAttrs []string) OutboundEvent {
	kind := string(e.Kind)
	if debug {
		kind = "debug"
	} else if isNewContext && e.Kind == InputEvaluation && !e.TrackEvents {
		kind = "index"
	}

	return OutboundEvent{
		Kind:                 kind,
		CreationDate:         e.CreationDate,
		Context:              Redact(e.Context, globalPrivateAttrs, e.Context.PrivateAttributes()),
		FlagKey:              e.FlagKey,
		FlagVersion:          e.FlagVersion,
		Value:                e.Value,
		Default:              e.Default,
		Variation:            e.VariationIndex,
		Reason:               e.Reason,
		Debug:                debug,
		EventName:            e.EventName,
		Data:                 e.Data,
		MigrationOp:          e.MigrationOp,
		MigrationLatenciesMs: e.MigrationLatenciesMs,
		MigrationErrors:      e.MigrationErrors,
		MigrationConsistent:  e.MigrationConsistent,
	}
}
