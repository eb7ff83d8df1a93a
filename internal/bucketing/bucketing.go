// Package bucketing implements the hash-based bucketing algorithm used to
// assign a context to a weighted variation, grounded on goflagship's
// internal/rollout package (BucketUser, GetVariant) but generalized from
// xxhash/mod-100 to the SHA-1/float-bucket algorithm required for
// cross-SDK-consistent rollouts.
package bucketing

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

const bucketDivisor = 0xFFFFFFFFFFFFFFF // first 15 hex chars, max value

// ErrContextMissing is returned when the bucket-by attribute or the
// relevant single-kind context cannot be resolved.
var ErrContextMissing = fmt.Errorf("bucketing: context not found for context kind")

// Bucket computes the [0, 1) bucket value for a context under a given
// flag/segment key, salt and bucket-by attribute. ok is false if the
// bucket-by attribute couldn't be resolved (the value itself is
// well-defined but callers should treat an unresolved context as the
// lowest bucket per spec, not as an error).
func Bucket(ctx ldcontext.Context, contextKind, bucketBy string, key, salt string, seed *int) (value float64, ok bool) {
	if contextKind == "" {
		contextKind = ldcontext.DefaultKind
	}
	ic, found := ctx.IndividualContext(contextKind)
	if !found {
		return 0, false
	}

	if bucketBy == "" {
		bucketBy = "key"
	}
	var bucketableValue string
	if bucketBy == "key" {
		bucketableValue = ic.Key()
	} else {
		ref := ldcontext.NewAttrRef(bucketBy)
		v, found := ref.Get(ic)
		if !found {
			return 0, false
		}
		bucketableValue, ok = stringify(v)
		if !ok {
			return 0, false
		}
	}

	var input string
	if seed != nil {
		input = fmt.Sprintf("%d.%s", *seed, bucketableValue)
	} else {
		input = fmt.Sprintf("%s.%s.%s", key, salt, bucketableValue)
	}

	h := sha1.Sum([]byte(input))
	hexStr := hex.EncodeToString(h[:])[:15]
	n, err := strconv.ParseUint(hexStr, 16, 64)
	if err != nil {
		return 0, false
	}
	return float64(n) / float64(bucketDivisor), true
}

// stringify converts a bucket-by attribute value into its bucketing
// string form. Booleans fall through to the default case deliberately:
// a bool is never bucketable, matching the real SDK's behavior of
// treating a boolean bucket-by value as unresolved rather than "true"/
// "false".
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// VariationForBucket walks a rollout's weighted variations in order,
// accumulating thresholds, and returns the first variation whose
// cumulative weight exceeds the bucket value. If rounding leaves a
// remainder (the common case with integer weights not summing exactly to
// 100000), the last variation absorbs it: the walk always returns a
// variation, never falling through.
func VariationForBucket(bucket float64, variations []ldmodel.WeightedVariation) ldmodel.VariationIndex {
	var cumulative float64
	for _, wv := range variations {
		cumulative += float64(wv.Weight) / 100000.0
		if bucket < cumulative {
			return wv.Variation
		}
	}
	// Absorb rounding: land on the last variation.
	if len(variations) > 0 {
		return variations[len(variations)-1].Variation
	}
	return 0
}
