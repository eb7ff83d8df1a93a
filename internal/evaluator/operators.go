// Clause operator handlers, generalized from goflagship's
// internal/engine/operators.go OperatorHandler map. The teacher's handlers
// covered equality, string-matching, numeric/semver comparison and
// list-membership; this adds the date comparisons and segmentMatch that
// the clause op table requires and drops the teacher's free-form alias
// normalization in favor of the fixed op names the data model emits.
package evaluator

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

type opHandler func(contextValue any, clauseValues []any) bool

var regexCache sync.Map // pattern string -> *regexp.Regexp

var opHandlers = map[string]opHandler{
	"in":                 opIn,
	"endsWith":           opEndsWith,
	"startsWith":         opStartsWith,
	"matches":            opMatches,
	"contains":           opContains,
	"lessThan":           numericOp(func(a, b float64) bool { return a < b }),
	"lessThanOrEqual":    numericOp(func(a, b float64) bool { return a <= b }),
	"greaterThan":        numericOp(func(a, b float64) bool { return a > b }),
	"greaterThanOrEqual": numericOp(func(a, b float64) bool { return a >= b }),
	"before":             dateOp(func(a, b time.Time) bool { return a.Before(b) }),
	"after":              dateOp(func(a, b time.Time) bool { return a.After(b) }),
	"semVerEqual":        semverOp(func(a, b *semver.Version) bool { return a.Equal(b) }),
	"semVerLessThan":     semverOp(func(a, b *semver.Version) bool { return a.LessThan(b) }),
	"semVerGreaterThan":  semverOp(func(a, b *semver.Version) bool { return a.GreaterThan(b) }),
}

func opIn(contextValue any, clauseValues []any) bool {
	for _, v := range clauseValues {
		if valuesEqual(contextValue, v) {
			return true
		}
	}
	return false
}

func opContains(contextValue any, clauseValues []any) bool {
	s, ok := contextValue.(string)
	if !ok {
		return false
	}
	for _, v := range clauseValues {
		if cv, ok := v.(string); ok && strings.Contains(s, cv) {
			return true
		}
	}
	return false
}

func opStartsWith(contextValue any, clauseValues []any) bool {
	s, ok := contextValue.(string)
	if !ok {
		return false
	}
	for _, v := range clauseValues {
		if cv, ok := v.(string); ok && strings.HasPrefix(s, cv) {
			return true
		}
	}
	return false
}

func opEndsWith(contextValue any, clauseValues []any) bool {
	s, ok := contextValue.(string)
	if !ok {
		return false
	}
	for _, v := range clauseValues {
		if cv, ok := v.(string); ok && strings.HasSuffix(s, cv) {
			return true
		}
	}
	return false
}

func opMatches(contextValue any, clauseValues []any) bool {
	s, ok := contextValue.(string)
	if !ok {
		return false
	}
	for _, v := range clauseValues {
		pattern, ok := v.(string)
		if !ok {
			continue
		}
		re, err := getCompiledRegex(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func getCompiledRegex(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

func numericOp(cmp func(a, b float64) bool) opHandler {
	return func(contextValue any, clauseValues []any) bool {
		a, ok := toFloat64(contextValue)
		if !ok {
			return false
		}
		for _, v := range clauseValues {
			b, ok := toFloat64(v)
			if ok && cmp(a, b) {
				return true
			}
		}
		return false
	}
}

func dateOp(cmp func(a, b time.Time) bool) opHandler {
	return func(contextValue any, clauseValues []any) bool {
		a, ok := toTime(contextValue)
		if !ok {
			return false
		}
		for _, v := range clauseValues {
			b, ok := toTime(v)
			if ok && cmp(a, b) {
				return true
			}
		}
		return false
	}
}

func semverOp(cmp func(a, b *semver.Version) bool) opHandler {
	return func(contextValue any, clauseValues []any) bool {
		s, ok := contextValue.(string)
		if !ok {
			return false
		}
		a, err := semver.NewVersion(s)
		if err != nil {
			return false
		}
		for _, v := range clauseValues {
			cs, ok := v.(string)
			if !ok {
				continue
			}
			b, err := semver.NewVersion(cs)
			if err != nil {
				continue
			}
			if cmp(a, b) {
				return true
			}
		}
		return false
	}
}

func valuesEqual(a, b any) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toTime parses an RFC-3339 timestamp string or a Unix epoch-millis number.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		ms, ok := toFloat64(v)
		if !ok {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}
}
