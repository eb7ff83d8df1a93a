package ldconfig

import (
	"os"
	"testing"
	"time"
)

func baseValidConfig() *Config {
	return &Config{
		SDKKey:             "sdk-123",
		PollInterval:       30 * time.Second,
		EventFlushInterval: 5 * time.Second,
		EventCapacity:      1000,
		DiagnosticInterval: 60 * time.Second,
	}
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	if err := baseValidConfig().Validate(); err != nil {
		t.Fatalf("expected a valid config to pass, got %v", err)
	}
}

func TestValidate_MissingSDKKey(t *testing.T) {
	c := baseValidConfig()
	c.SDKKey = ""
	err := c.Validate()
	ve, ok := err.(*ValidationError)
	if !ok || ve.Field != "sdk_key" {
		t.Fatalf("Validate() = %v, want a ValidationError on sdk_key", err)
	}
}

func TestValidate_OfflineSkipsSDKKeyRequirement(t *testing.T) {
	c := baseValidConfig()
	c.SDKKey = ""
	c.Offline = true
	if err := c.Validate(); err != nil {
		t.Fatalf("expected offline mode to not require sdk_key, got %v", err)
	}
}

func TestValidate_PollIntervalTooShort(t *testing.T) {
	c := baseValidConfig()
	c.PollInterval = time.Second
	err := c.Validate()
	ve, ok := err.(*ValidationError)
	if !ok || ve.Field != "poll_interval" {
		t.Fatalf("Validate() = %v, want a ValidationError on poll_interval", err)
	}
}

func TestValidate_NonPositiveEventFlushInterval(t *testing.T) {
	c := baseValidConfig()
	c.EventFlushInterval = 0
	err := c.Validate()
	ve, ok := err.(*ValidationError)
	if !ok || ve.Field != "event_flush_interval" {
		t.Fatalf("Validate() = %v, want a ValidationError on event_flush_interval", err)
	}
}

func TestValidate_NonPositiveEventCapacity(t *testing.T) {
	c := baseValidConfig()
	c.EventCapacity = 0
	err := c.Validate()
	ve, ok := err.(*ValidationError)
	if !ok || ve.Field != "event_capacity" {
		t.Fatalf("Validate() = %v, want a ValidationError on event_capacity", err)
	}
}

func TestValidate_DiagnosticIntervalTooShort(t *testing.T) {
	c := baseValidConfig()
	c.DiagnosticInterval = time.Second
	err := c.Validate()
	ve, ok := err.(*ValidationError)
	if !ok || ve.Field != "diagnostic_interval" {
		t.Fatalf("Validate() = %v, want a ValidationError on diagnostic_interval", err)
	}
}

func TestLoad_ReadsEnvironmentOverrides(t *testing.T) {
	os.Setenv("LAUNCHDARKLY_SDK_KEY", "from-env")
	os.Setenv("LAUNCHDARKLY_STREAM", "false")
	defer os.Unsetenv("LAUNCHDARKLY_SDK_KEY")
	defer os.Unsetenv("LAUNCHDARKLY_STREAM")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SDKKey != "from-env" {
		t.Errorf("SDKKey = %q, want from-env", cfg.SDKKey)
	}
	if cfg.Stream {
		t.Errorf("Stream = true, want false from LAUNCHDARKLY_STREAM override")
	}
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("LAUNCHDARKLY_SDK_KEY")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want default 30s", cfg.PollInterval)
	}
	if cfg.EventCapacity != 10000 {
		t.Errorf("EventCapacity = %d, want default 10000", cfg.EventCapacity)
	}
	if !cfg.Stream {
		t.Errorf("Stream = false, want default true")
	}
}
