package evaluator

// ReasonKind enumerates why an evaluation produced the variation it did.
type ReasonKind string

const (
	ReasonOff                ReasonKind = "OFF"
	ReasonFallthrough        ReasonKind = "FALLTHROUGH"
	ReasonTargetMatch        ReasonKind = "TARGET_MATCH"
	ReasonRuleMatch          ReasonKind = "RULE_MATCH"
	ReasonPrerequisiteFailed ReasonKind = "PREREQUISITE_FAILED"
	ReasonError              ReasonKind = "ERROR"
)

// ErrorKind enumerates the ERROR reason sub-kinds.
type ErrorKind string

const (
	ErrorKindClientNotReady  ErrorKind = "CLIENT_NOT_READY"
	ErrorKindFlagNotFound    ErrorKind = "FLAG_NOT_FOUND"
	ErrorKindMalformedFlag   ErrorKind = "MALFORMED_FLAG"
	ErrorKindUserNotSpecified ErrorKind = "USER_NOT_SPECIFIED"
	ErrorKindWrongType       ErrorKind = "WRONG_TYPE"
	ErrorKindException      ErrorKind = "EXCEPTION"
)

// Reason describes the outcome of evaluating one flag.
type Reason struct {
	Kind              ReasonKind
	RuleIndex         *int
	RuleID            string
	PrerequisiteKey   string
	ErrorKind         ErrorKind
	InExperiment      bool
	BigSegmentsStatus string
}

func off() Reason                      { return Reason{Kind: ReasonOff} }
func fallthroughReason(inExp bool) Reason { return Reason{Kind: ReasonFallthrough, InExperiment: inExp} }
func targetMatch() Reason               { return Reason{Kind: ReasonTargetMatch} }
func ruleMatch(idx int, id string, inExp bool) Reason {
	return Reason{Kind: ReasonRuleMatch, RuleIndex: &idx, RuleID: id, InExperiment: inExp}
}
func prerequisiteFailed(key string) Reason {
	return Reason{Kind: ReasonPrerequisiteFailed, PrerequisiteKey: key}
}
func errorReason(kind ErrorKind) Reason { return Reason{Kind: ReasonError, ErrorKind: kind} }
