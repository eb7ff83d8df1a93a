// Package validation validates flags and segments before they reach the
// Data Store/Evaluator, grounded on goflagship's internal/validation
// (a ValidationResult accumulator merged field-by-field via ValidateFlag/
// ValidateVariants), generalized from the teacher's flat Env/int32-Rollout
// model to ldmodel's rules/clauses/weighted rollouts.
package validation

import (
	"regexp"

	"github.com/TimurManjosov/goflagship/ldmodel"
)

// MaxKeyLength is the maximum length for flag and segment keys.
const MaxKeyLength = 64

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidationResult holds the result of validation.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true, Errors: make(map[string]string)}
}

// AddError adds a field error and marks the result as invalid.
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one.
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// ValidateKey validates a flag or segment key.
func ValidateKey(key string) *ValidationResult {
	result := NewValidationResult()
	if key == "" {
		result.AddError("key", "key is required")
		return result
	}
	if len(key) > MaxKeyLength {
		result.AddError("key", "key must not exceed 64 characters")
		return result
	}
	if !keyPattern.MatchString(key) {
		result.AddError("key", "key must contain only alphanumeric characters, '.', '_' and '-'")
	}
	return result
}

// ValidateFlag validates a flag's structural invariants: a valid key, a
// non-empty variation list, an off-variation index in range, rollout
// weights summing to 100000, and unique rule IDs.
func ValidateFlag(f *ldmodel.Flag) *ValidationResult {
	result := NewValidationResult()
	result.Merge(ValidateKey(f.Key))

	if len(f.Variations) == 0 {
		result.AddError("variations", "flag must declare at least one variation")
	}
	if f.OffVariation != nil && !inRange(*f.OffVariation, len(f.Variations)) {
		result.AddError("offVariation", "offVariation index out of range")
	}
	result.Merge(validateVariationOrRollout(f.Fallthrough, len(f.Variations)))

	seenRuleIDs := make(map[string]bool)
	for _, rule := range f.Rules {
		if rule.ID != "" {
			if seenRuleIDs[rule.ID] {
				result.AddError("rules", "duplicate rule id: "+rule.ID)
			}
			seenRuleIDs[rule.ID] = true
		}
		if len(rule.Clauses) == 0 {
			result.AddError("rules", "rule has no clauses")
			continue
		}
		for _, clause := range rule.Clauses {
			result.Merge(validateClause(clause))
		}
		result.Merge(validateVariationOrRollout(rule.VariationOrRollout, len(f.Variations)))
	}

	for _, t := range f.Targets {
		if !inRange(t.Variation, len(f.Variations)) {
			result.AddError("targets", "target variation index out of range")
		}
	}
	for _, ct := range f.ContextTargets {
		if !inRange(ct.Variation, len(f.Variations)) {
			result.AddError("contextTargets", "context target variation index out of range")
		}
	}
	for _, p := range f.Prerequisites {
		if p.Key == f.Key {
			result.AddError("prerequisites", "flag cannot be its own prerequisite")
		}
	}
	return result
}

func validateVariationOrRollout(vr ldmodel.VariationOrRollout, variationCount int) *ValidationResult {
	result := NewValidationResult()
	switch {
	case vr.Variation != nil:
		if !inRange(*vr.Variation, variationCount) {
			result.AddError("variation", "variation index out of range")
		}
	case vr.Rollout != nil:
		if len(vr.Rollout.Variations) == 0 {
			result.AddError("rollout", "rollout must declare at least one weighted variation")
			return result
		}
		total := 0
		for _, wv := range vr.Rollout.Variations {
			if !inRange(wv.Variation, variationCount) {
				result.AddError("rollout", "rollout variation index out of range")
			}
			total += wv.Weight
		}
		if total != 100000 {
			result.AddError("rollout", "rollout weights must sum to 100000")
		}
	default:
		result.AddError("fallthrough", "must specify either a variation or a rollout")
	}
	return result
}

func validateClause(c ldmodel.Clause) *ValidationResult {
	result := NewValidationResult()
	if c.Attribute == "" && c.Op != "segmentMatch" {
		result.AddError("clauses", "clause attribute is required")
	}
	if c.Op == "" {
		result.AddError("clauses", "clause op is required")
	}
	if len(c.Values) == 0 {
		result.AddError("clauses", "clause must declare at least one value")
	}
	return result
}

// ValidateSegment validates a segment's structural invariants.
func ValidateSegment(s *ldmodel.Segment) *ValidationResult {
	result := NewValidationResult()
	result.Merge(ValidateKey(s.Key))
	for _, rule := range s.Rules {
		for _, clause := range rule.Clauses {
			result.Merge(validateClause(clause))
		}
		if rule.Weight != nil && (*rule.Weight < 0 || *rule.Weight > 100000) {
			result.AddError("rules", "rule weight must be between 0 and 100000")
		}
	}
	if s.Unbounded && s.UnboundedContextKind == "" {
		result.AddError("unboundedContextKind", "required when unbounded is true")
	}
	return result
}

func inRange(idx, count int) bool {
	return idx >= 0 && idx < count
}
