package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TimurManjosov/goflagship/internal/ldconfig"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/ldclient"
)

func newTestClient(t *testing.T) *ldclient.Client {
	t.Helper()
	cfg := &ldconfig.Config{
		Offline:            true,
		PollInterval:       30 * time.Second,
		EventFlushInterval: 5 * time.Second,
		EventCapacity:      100,
		DiagnosticInterval: 60 * time.Second,
	}
	c, err := ldclient.MakeClient(cfg, ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHealthz(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleStatus_ReportsInitializedAndDataSource(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if initialized, _ := body["initialized"].(bool); !initialized {
		t.Errorf("initialized = %v, want true for an offline client", body["initialized"])
	}
}

func TestHandleEvaluate_UnknownFlagReturnsDefault(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	payload := `{"flagKey":"missing","context":{"key":"u1"},"default":"fallback"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp evaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Value != "fallback" {
		t.Errorf("Value = %v, want fallback", resp.Value)
	}
}

func TestHandleEvaluate_MissingFlagKey(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	payload := `{"context":{"key":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEvaluate_MissingContextKey(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	payload := `{"flagKey":"f1","context":{}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEvaluate_InvalidJSON(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuthAdmin_DisabledWhenNoHashConfigured(t *testing.T) {
	srv := NewServer(newTestClient(t), nil)
	payload := `{"flagKey":"f1","context":{"key":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code == http.StatusUnauthorized {
		t.Fatal("expected admin auth to be disabled when no key hash is configured")
	}
}

func TestAuthAdmin_RejectsMissingBearerToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	srv := NewServer(newTestClient(t), hash)

	payload := `{"flagKey":"f1","context":{"key":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAdmin_AcceptsValidBearerToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	srv := NewServer(newTestClient(t), hash)

	payload := `{"flagKey":"f1","context":{"key":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthAdmin_RejectsWrongToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	srv := NewServer(newTestClient(t), hash)

	payload := `{"flagKey":"f1","context":{"key":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
