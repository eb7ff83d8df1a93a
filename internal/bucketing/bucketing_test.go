package bucketing

import (
	"strconv"
	"testing"

	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

func TestBucket_Deterministic(t *testing.T) {
	ctx := ldcontext.New("user-123")

	b1, ok1 := Bucket(ctx, "", "", "flag-key", "salt", nil)
	b2, ok2 := Bucket(ctx, "", "", "flag-key", "salt", nil)

	if !ok1 || !ok2 {
		t.Fatalf("expected bucket to resolve, got ok1=%v ok2=%v", ok1, ok2)
	}
	if b1 != b2 {
		t.Errorf("Bucket is not deterministic: got %v and %v", b1, b2)
	}
	if b1 < 0 || b1 >= 1 {
		t.Errorf("bucket out of [0,1) range: %v", b1)
	}
}

func TestBucket_DifferentContextsDistribute(t *testing.T) {
	buckets := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		ctx := ldcontext.New("user-" + strconv.Itoa(i))
		b, ok := Bucket(ctx, "", "", "flag-key", "salt", nil)
		if !ok {
			t.Fatalf("expected bucket to resolve for user-%d", i)
		}
		buckets[strconv.FormatFloat(b, 'f', 4, 64)] = struct{}{}
	}
	if len(buckets) < 40 {
		t.Errorf("expected roughly distinct buckets across 50 users, got %d distinct values", len(buckets))
	}
}

func TestBucket_MissingContextKind(t *testing.T) {
	ctx := ldcontext.NewWithKind("user", "u1")
	_, ok := Bucket(ctx, "org", "", "flag-key", "salt", nil)
	if ok {
		t.Errorf("expected ok=false when the requested context kind is absent")
	}
}

func TestBucket_MissingBucketByAttribute(t *testing.T) {
	ctx := ldcontext.New("u1")
	_, ok := Bucket(ctx, "", "missingAttr", "flag-key", "salt", nil)
	if ok {
		t.Errorf("expected ok=false when the bucket-by attribute is unresolved")
	}
}

func TestBucket_BucketByBooleanAttributeUnresolved(t *testing.T) {
	ctx := ldcontext.New("u1").WithAttribute("verified", true)
	_, ok := Bucket(ctx, "", "verified", "flag-key", "salt", nil)
	if ok {
		t.Errorf("expected ok=false when the bucket-by attribute is a boolean")
	}
}

func TestBucket_BucketByCustomAttribute(t *testing.T) {
	ctx := ldcontext.New("u1").WithAttribute("accountId", "acct-42")
	byKey, _ := Bucket(ctx, "", "key", "flag-key", "salt", nil)
	byAttr, _ := Bucket(ctx, "", "accountId", "flag-key", "salt", nil)
	if byKey == byAttr {
		t.Errorf("expected bucketing by a different attribute to produce a different bucket value")
	}
}

func TestBucket_SeedOverridesKeyAndSalt(t *testing.T) {
	ctx := ldcontext.New("u1")
	seed := 42

	withSeed, _ := Bucket(ctx, "", "", "flag-a", "salt-a", &seed)
	withSeedOtherFlag, _ := Bucket(ctx, "", "", "flag-b", "salt-b", &seed)

	if withSeed != withSeedOtherFlag {
		t.Errorf("expected the seed to make the bucket independent of flag key/salt")
	}
}

func TestVariationForBucket_WalksCumulativeWeights(t *testing.T) {
	variations := []ldmodel.WeightedVariation{
		{Variation: 0, Weight: 50000},
		{Variation: 1, Weight: 50000},
	}

	if got := VariationForBucket(0.1, variations); got != 0 {
		t.Errorf("VariationForBucket(0.1) = %d, want 0", got)
	}
	if got := VariationForBucket(0.6, variations); got != 1 {
		t.Errorf("VariationForBucket(0.6) = %d, want 1", got)
	}
}

func TestVariationForBucket_AbsorbsRoundingRemainder(t *testing.T) {
	variations := []ldmodel.WeightedVariation{
		{Variation: 0, Weight: 33333},
		{Variation: 1, Weight: 33333},
		{Variation: 2, Weight: 33333},
	}

	if got := VariationForBucket(0.99999, variations); got != 2 {
		t.Errorf("VariationForBucket(0.99999) = %d, want the last variation (2) to absorb the rounding remainder", got)
	}
}

func TestVariationForBucket_EmptyVariations(t *testing.T) {
	if got := VariationForBucket(0.5, nil); got != 0 {
		t.Errorf("VariationForBucket with no variations = %d, want 0", got)
	}
}
