package ldclient

import (
	"context"
	"testing"
	"time"

	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/internal/ldconfig"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

func offlineConfig() *ldconfig.Config {
	return &ldconfig.Config{
		Offline:            true,
		PollInterval:       30 * time.Second,
		EventFlushInterval: 5 * time.Second,
		EventCapacity:      100,
		DiagnosticInterval: 60 * time.Second,
	}
}

func boolFlag(key string) *ldmodel.Flag {
	off, on := 0, 1
	return &ldmodel.Flag{
		Key:          key,
		Version:      1,
		On:           true,
		Variations:   []any{false, true},
		OffVariation: &off,
		Fallthrough:  ldmodel.VariationOrRollout{Variation: &on},
	}
}

func TestMakeClient_OfflineConstructsSuccessfully(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	if !c.IsInitialized() {
		t.Error("expected an offline client to report initialized")
	}
	if c.Status().State != status.DataSourceOff {
		t.Errorf("Status().State = %v, want DataSourceOff", c.Status().State)
	}
}

func TestMakeClient_InvalidConfigRejected(t *testing.T) {
	cfg := offlineConfig()
	cfg.EventCapacity = 0
	if _, err := MakeClient(cfg, ldlog.NoOp(), nil, 0); err == nil {
		t.Fatal("expected MakeClient() to reject an invalid configuration")
	}
}

func TestVariationDetail_ReturnsEvaluatedValueFromStore(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	flag := boolFlag("my-flag")
	if _, err := c.store.Upsert(context.Background(), ldmodel.KindFlag, flag.Key, ldmodel.ItemDescriptor{Version: flag.Version, Flag: flag}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	ctx := ldcontext.New("user-1")
	detail := c.VariationDetail(ctx, "my-flag", false)
	if detail.Value != true {
		t.Errorf("Value = %v, want true", detail.Value)
	}
	if detail.VariationIndex == nil || *detail.VariationIndex != 1 {
		t.Errorf("VariationIndex = %v, want 1", detail.VariationIndex)
	}
}

func TestVariationDetail_UnknownFlagReturnsDefault(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	ctx := ldcontext.New("user-1")
	detail := c.VariationDetail(ctx, "missing-flag", "fallback")
	if detail.Value != "fallback" {
		t.Errorf("Value = %v, want fallback", detail.Value)
	}
	if detail.Reason.Kind != evaluator.ReasonError || detail.Reason.ErrorKind != evaluator.ErrorKindFlagNotFound {
		t.Errorf("Reason = %+v, want ErrorKindFlagNotFound", detail.Reason)
	}
}

func TestVariation_ReturnsBareValue(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	flag := boolFlag("my-flag")
	c.store.Upsert(context.Background(), ldmodel.KindFlag, flag.Key, ldmodel.ItemDescriptor{Version: flag.Version, Flag: flag})

	if got := c.Variation(ldcontext.New("user-1"), "my-flag", false); got != true {
		t.Errorf("Variation() = %v, want true", got)
	}
}

func TestAllFlagsState_EvaluatesEveryStoredFlag(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	flag := boolFlag("my-flag")
	c.store.Upsert(context.Background(), ldmodel.KindFlag, flag.Key, ldmodel.ItemDescriptor{Version: flag.Version, Flag: flag})

	state := c.AllFlagsState(ldcontext.New("user-1"))
	if v, ok := state["my-flag"]; !ok || v != true {
		t.Errorf("AllFlagsState()[my-flag] = %v, %v, want true, true", v, ok)
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

func TestSecureModeHash_DeterministicPerKeyAndSDKKey(t *testing.T) {
	cfg := offlineConfig()
	cfg.SDKKey = "secret"
	c, err := MakeClient(cfg, ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	h1 := c.SecureModeHash(ldcontext.New("user-1"))
	h2 := c.SecureModeHash(ldcontext.New("user-1"))
	h3 := c.SecureModeHash(ldcontext.New("user-2"))
	if h1 != h2 {
		t.Errorf("expected SecureModeHash to be deterministic, got %q and %q", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("expected different context keys to produce different hashes")
	}
}
