// Package evaluator implements the pure flag-evaluation decision
// procedure: off checks, prerequisites, targets, rules, clause matching,
// segment matching and bucketed fallthrough. It is grounded on
// goflagship's internal/engine.Evaluate control flow (off -> rules ->
// fallthrough), generalized to add prerequisites, per-kind targets and
// segments, none of which the teacher's flat rollout model supported.
package evaluator

import (
	"github.com/TimurManjosov/goflagship/internal/bucketing"
	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// MaxSegmentRecursionDepth bounds segmentMatch-referencing-segment cycles,
// resolving spec Open Question (b).
const MaxSegmentRecursionDepth = 20

// DataProvider is the read-only view of the Data Store the evaluator
// needs: single-item lookups by key, keyed by the item's own kind.
type DataProvider interface {
	GetFlag(key string) (*ldmodel.Flag, bool)
	GetSegment(key string) (*ldmodel.Segment, bool)
}

// BigSegmentsProvider resolves membership for unbounded ("big") segments.
// Status is one of "HEALTHY", "STALE", or "NOT_CONFIGURED" / "STORE_ERROR".
type BigSegmentsProvider interface {
	MembershipStatus(segmentKey string, ctx ldcontext.Context) (member *bool, status string)
}

// Result is the outcome of evaluating one flag against one context.
type Result struct {
	VariationIndex *ldmodel.VariationIndex
	Value          any
	Reason         Reason
}

// Evaluator evaluates flags against a DataProvider and an optional
// BigSegmentsProvider.
type Evaluator struct {
	data        DataProvider
	bigSegments BigSegmentsProvider
}

func New(data DataProvider, bigSegments BigSegmentsProvider) *Evaluator {
	return &Evaluator{data: data, bigSegments: bigSegments}
}

// evalState carries information that must survive across the whole
// Evaluate call, including into recursively-evaluated prerequisites and
// segment-referencing clauses: the Big Segment status of the last BSSA
// query made during evaluation, which ends up on the top-level Result's
// Reason per spec.md's big_segments_status, and whether a prerequisite
// cycle was found, which turns the whole evaluation into a MALFORMED_FLAG
// error.
type evalState struct {
	bigSegmentsStatus string
	prerequisiteCycle bool
}

// Evaluate runs the full decision procedure for one flag.
func (e *Evaluator) Evaluate(flag *ldmodel.Flag, ctx ldcontext.Context) Result {
	if valid, _ := ctx.Valid(); !valid {
		return errorResult(errorReason(ErrorKindUserNotSpecified))
	}
	visited := map[string]struct{}{}
	st := &evalState{}
	result := e.evaluateFlag(flag, ctx, visited, st)
	if st.prerequisiteCycle {
		return errorResult(errorReason(ErrorKindMalformedFlag))
	}
	if st.bigSegmentsStatus != "" {
		result.Reason.BigSegmentsStatus = st.bigSegmentsStatus
	}
	return result
}

func (e *Evaluator) evaluateFlag(flag *ldmodel.Flag, ctx ldcontext.Context, visitedFlags map[string]struct{}, st *evalState) Result {
	if !flag.On {
		return e.offResult(flag)
	}

	if prereqFailKey, ok := e.checkPrerequisites(flag, ctx, visitedFlags, st); !ok {
		return e.offResultWithReason(flag, prerequisiteFailed(prereqFailKey))
	}

	if idx, r, ok := e.checkTargets(flag, ctx); ok {
		return e.variationResult(flag, idx, r)
	}

	for i, rule := range flag.Rules {
		matched, err := e.ruleMatches(rule, ctx, st)
		if err != nil {
			return errorResult(errorReason(ErrorKindMalformedFlag))
		}
		if matched {
			idx, inExp, ok := e.resolveVariationOrRollout(rule.VariationOrRollout, flag, ctx)
			if !ok {
				return errorResult(errorReason(ErrorKindMalformedFlag))
			}
			return e.variationResult(flag, idx, ruleMatch(i, rule.ID, inExp))
		}
	}

	idx, inExp, ok := e.resolveVariationOrRollout(flag.Fallthrough, flag, ctx)
	if !ok {
		return errorResult(errorReason(ErrorKindMalformedFlag))
	}
	return e.variationResult(flag, idx, fallthroughReason(inExp))
}

func (e *Evaluator) offResult(flag *ldmodel.Flag) Result {
	return e.offResultWithReason(flag, off())
}

func (e *Evaluator) offResultWithReason(flag *ldmodel.Flag, reason Reason) Result {
	if flag.OffVariation == nil {
		return Result{Value: nil, Reason: reason}
	}
	return e.variationResult(flag, *flag.OffVariation, reason)
}

func (e *Evaluator) variationResult(flag *ldmodel.Flag, idx ldmodel.VariationIndex, reason Reason) Result {
	if idx < 0 || idx >= len(flag.Variations) {
		return errorResult(errorReason(ErrorKindMalformedFlag))
	}
	v := idx
	return Result{VariationIndex: &v, Value: flag.Variations[idx], Reason: reason}
}

func errorResult(reason Reason) Result {
	return Result{Value: nil, Reason: reason}
}

// checkPrerequisites returns ("", true) if all prerequisites pass, or
// (failedKey, false) naming the first prerequisite that failed. A flag met
// again while its own prerequisites are being checked (a direct or
// transitive cycle) sets st.prerequisiteCycle, which Evaluate reports as a
// MALFORMED_FLAG error.
func (e *Evaluator) checkPrerequisites(flag *ldmodel.Flag, ctx ldcontext.Context, visitedFlags map[string]struct{}, st *evalState) (string, bool) {
	if _, seen := visitedFlags[flag.Key]; seen {
		st.prerequisiteCycle = true
		return flag.Key, false
	}
	visitedFlags[flag.Key] = struct{}{}
	defer delete(visitedFlags, flag.Key)

	for _, prereq := range flag.Prerequisites {
		prereqFlag, found := e.data.GetFlag(prereq.Key)
		if !found {
			return prereq.Key, false
		}
		result := e.evaluateFlag(prereqFlag, ctx, visitedFlags, st)
		if !prereqFlag.On || result.VariationIndex == nil || *result.VariationIndex != prereq.Variation {
			return prereq.Key, false
		}
	}
	return "", true
}

func (e *Evaluator) checkTargets(flag *ldmodel.Flag, ctx ldcontext.Context) (ldmodel.VariationIndex, Reason, bool) {
	for _, t := range flag.ContextTargets {
		kind := t.ContextKind
		if kind == "" {
			kind = ldcontext.DefaultKind
		}
		ic, ok := ctx.IndividualContext(kind)
		if !ok {
			continue
		}
		if containsString(t.Values, ic.Key()) {
			return t.Variation, targetMatch(), true
		}
	}
	for _, t := range flag.Targets {
		ic, ok := ctx.IndividualContext(ldcontext.DefaultKind)
		if !ok {
			continue
		}
		if containsString(t.Values, ic.Key()) {
			return t.Variation, targetMatch(), true
		}
	}
	return 0, Reason{}, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (e *Evaluator) ruleMatches(rule ldmodel.FlagRule, ctx ldcontext.Context, st *evalState) (bool, error) {
	for _, clause := range rule.Clauses {
		matched, err := e.clauseMatches(clause, ctx, 0, st)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) clauseMatches(clause ldmodel.Clause, ctx ldcontext.Context, depth int, st *evalState) (bool, error) {
	if clause.Op == "segmentMatch" {
		matched, err := e.matchesAnySegment(clause.Values, ctx, depth, st)
		if err != nil {
			return false, err
		}
		return matched != clause.Negate, nil
	}

	kind := clause.ContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	ic, found := ctx.IndividualContext(kind)
	if !found {
		return clause.Negate, nil
	}
	ref := ldcontext.NewAttrRef(clause.Attribute)
	contextValue, found := ref.Get(ic)
	if !found {
		return clause.Negate, nil
	}

	handler, ok := opHandlers[clause.Op]
	if !ok {
		return false, unknownOperatorError{op: clause.Op}
	}
	matched := evalMaybeArray(contextValue, clause.Values, handler)
	return matched != clause.Negate, nil
}

// evalMaybeArray applies handler once per element if contextValue is a
// slice (a multi-value attribute matches if any element matches).
func evalMaybeArray(contextValue any, clauseValues []any, handler opHandler) bool {
	if arr, ok := contextValue.([]any); ok {
		for _, elem := range arr {
			if handler(elem, clauseValues) {
				return true
			}
		}
		return false
	}
	return handler(contextValue, clauseValues)
}

type unknownOperatorError struct{ op string }

func (e unknownOperatorError) Error() string { return "unknown clause operator: " + e.op }

func (e *Evaluator) matchesAnySegment(segmentKeys []any, ctx ldcontext.Context, depth int, st *evalState) (bool, error) {
	if depth >= MaxSegmentRecursionDepth {
		return false, segmentRecursionError{}
	}
	for _, sk := range segmentKeys {
		key, ok := sk.(string)
		if !ok {
			continue
		}
		seg, found := e.data.GetSegment(key)
		if !found {
			continue
		}
		matched, err := e.segmentContainsContext(seg, ctx, depth+1, st)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

type segmentRecursionError struct{}

func (segmentRecursionError) Error() string { return "segment reference recursion too deep" }

// segmentContainsContext checks excluded -> included -> SegmentRules for
// every segment first. Only when none of those matched, and the segment
// is unbounded, does it fall back to querying the BigSegmentsProvider --
// whose status (HEALTHY/STALE/STORE_ERROR/NOT_CONFIGURED) is recorded on
// st for the top-level Result's Reason.
func (e *Evaluator) segmentContainsContext(seg *ldmodel.Segment, ctx ldcontext.Context, depth int, st *evalState) (bool, error) {
	kind := seg.UnboundedContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	ic, hasKind := ctx.IndividualContext(kind)

	if hasKind {
		if containsString(seg.Excluded, ic.Key()) {
			return false, nil
		}
		if containsString(seg.Included, ic.Key()) {
			return true, nil
		}
	}
	for _, t := range seg.ExcludedContexts {
		tk := t.ContextKind
		if tk == "" {
			tk = ldcontext.DefaultKind
		}
		if tic, ok := ctx.IndividualContext(tk); ok && containsString(t.Values, tic.Key()) {
			return false, nil
		}
	}
	for _, t := range seg.IncludedContexts {
		tk := t.ContextKind
		if tk == "" {
			tk = ldcontext.DefaultKind
		}
		if tic, ok := ctx.IndividualContext(tk); ok && containsString(t.Values, tic.Key()) {
			return true, nil
		}
	}

	matched, err := e.segmentRulesMatch(seg, ctx, kind, depth, st)
	if err != nil {
		return false, err
	}
	if matched {
		return true, nil
	}

	if !seg.Unbounded {
		return false, nil
	}
	if e.bigSegments == nil || !hasKind {
		return false, nil
	}
	member, status := e.bigSegments.MembershipStatus(seg.Key, ic)
	st.bigSegmentsStatus = status
	if member != nil {
		return *member, nil
	}
	return false, nil
}

func (e *Evaluator) segmentRulesMatch(seg *ldmodel.Segment, ctx ldcontext.Context, kind string, depth int, st *evalState) (bool, error) {
	for _, rule := range seg.Rules {
		allMatch := true
		for _, clause := range rule.Clauses {
			matched, err := e.clauseMatches(clause, ctx, depth, st)
			if err != nil {
				return false, err
			}
			if !matched {
				allMatch = false
				break
			}
		}
		if !allMatch {
			continue
		}
		if rule.Weight == nil {
			return true, nil
		}
		bucketBy := rule.BucketBy
		if bucketBy == "" {
			bucketBy = "key"
		}
		bucket, ok := bucketing.Bucket(ctx, kind, bucketBy, seg.Key, seg.Salt, nil)
		if !ok {
			continue
		}
		if bucket < float64(*rule.Weight)/100000.0 {
			return true, nil
		}
	}
	return false, nil
}

// resolveVariationOrRollout returns the chosen variation index, whether it
// was chosen via an experiment rollout (for event tracking), and whether
// resolution succeeded.
func (e *Evaluator) resolveVariationOrRollout(vr ldmodel.VariationOrRollout, flag *ldmodel.Flag, ctx ldcontext.Context) (ldmodel.VariationIndex, bool, bool) {
	if vr.Variation != nil {
		return *vr.Variation, false, true
	}
	if vr.Rollout == nil || len(vr.Rollout.Variations) == 0 {
		return 0, false, false
	}
	rollout := vr.Rollout
	contextKind := rollout.ContextKind
	bucket, ok := bucketing.Bucket(ctx, contextKind, rollout.BucketBy, flag.Key, flag.Salt, rollout.Seed)
	if !ok {
		bucket = 0
	}
	idx := bucketing.VariationForBucket(bucket, rollout.Variations)
	return idx, rollout.Kind == ldmodel.RolloutKindExperiment, true
}
