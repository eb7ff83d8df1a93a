// Package ldconfig loads SDK-level configuration, grounded on goflagship's
// internal/config.Config: viper-backed Load() with defaults-then-override
// precedence, a dedicated ValidationError type, and a Validate() method
// that applies stricter rules outside development environments.
package ldconfig

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the SDK-level configuration consumed by ldclient.MakeClient.
type Config struct {
	SDKKey string

	StreamBaseURI string
	PollBaseURI   string
	EventsBaseURI string

	Stream bool

	PollInterval       time.Duration
	EventFlushInterval time.Duration
	EventCapacity      int
	DiagnosticInterval time.Duration
	DiagnosticOptOut   bool

	BigSegmentsPollInterval time.Duration
	BigSegmentsStaleAfter   time.Duration

	Offline bool
}

// ValidationError reports a single field-level misconfiguration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stream_base_uri", "https://stream.launchdarkly.com")
	v.SetDefault("poll_base_uri", "https://sdk.launchdarkly.com")
	v.SetDefault("events_base_uri", "https://events.launchdarkly.com")
	v.SetDefault("stream", true)
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("event_flush_interval", 5*time.Second)
	v.SetDefault("event_capacity", 10000)
	v.SetDefault("diagnostic_interval", 15*time.Minute)
	v.SetDefault("diagnostic_opt_out", false)
	v.SetDefault("big_segments_poll_interval", 5*time.Second)
	v.SetDefault("big_segments_stale_after", 2*time.Minute)
	v.SetDefault("offline", false)
}

// Load reads SDK configuration from environment variables prefixed
// LAUNCHDARKLY_ (e.g. LAUNCHDARKLY_SDK_KEY), the way goflagship's
// config.Load() reads FLAGSHIP_-prefixed env vars via viper's
// AutomaticEnv, with an optional .env file for local development.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LAUNCHDARKLY")
	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional; absence is not an error

	cfg := &Config{
		SDKKey:             v.GetString("sdk_key"),
		StreamBaseURI:      v.GetString("stream_base_uri"),
		PollBaseURI:        v.GetString("poll_base_uri"),
		EventsBaseURI:      v.GetString("events_base_uri"),
		Stream:             v.GetBool("stream"),
		PollInterval:       v.GetDuration("poll_interval"),
		EventFlushInterval: v.GetDuration("event_flush_interval"),
		EventCapacity:      v.GetInt("event_capacity"),
		DiagnosticInterval: v.GetDuration("diagnostic_interval"),
		DiagnosticOptOut:   v.GetBool("diagnostic_opt_out"),
		BigSegmentsPollInterval: v.GetDuration("big_segments_poll_interval"),
		BigSegmentsStaleAfter:   v.GetDuration("big_segments_stale_after"),
		Offline:            v.GetBool("offline"),
	}
	return cfg, nil
}

// Validate applies fail-fast checks, stricter than what Load enforces on
// its own, matching the teacher's production-environment validation
// pattern (internal/config.Config.Validate).
func (c *Config) Validate() error {
	if !c.Offline && c.SDKKey == "" {
		return &ValidationError{Field: "sdk_key", Message: "required unless running in offline mode"}
	}
	if c.PollInterval < 30*time.Second {
		return &ValidationError{Field: "poll_interval", Message: "must be at least 30s"}
	}
	if c.EventFlushInterval <= 0 {
		return &ValidationError{Field: "event_flush_interval", Message: "must be positive"}
	}
	if c.EventCapacity <= 0 {
		return &ValidationError{Field: "event_capacity", Message: "must be positive"}
	}
	if c.DiagnosticInterval < 60*time.Second {
		return &ValidationError{Field: "diagnostic_interval", Message: "must be at least 60s"}
	}
	return nil
}
