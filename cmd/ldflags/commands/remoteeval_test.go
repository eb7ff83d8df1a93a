package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/goflagship/internal/cli"
)

func TestEvalRemote_SendsBearerTokenAndDecodesResponse(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody remoteEvaluateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(remoteEvaluateResponse{FlagKey: "f1", Value: true})
	}))
	defer server.Close()

	row, err := evalRemote(&cli.EnvConfig{BaseURL: server.URL, APIKey: "my-key"}, "f1", "user-1", false)
	if err != nil {
		t.Fatalf("evalRemote() error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/evaluate" {
		t.Errorf("request = %s %s, want POST /v1/evaluate", gotMethod, gotPath)
	}
	if gotAuth != "Bearer my-key" {
		t.Errorf("Authorization = %q, want Bearer my-key", gotAuth)
	}
	if gotBody.FlagKey != "f1" || gotBody.Context.Key != "user-1" {
		t.Errorf("request body = %+v, want flagKey=f1 context.key=user-1", gotBody)
	}
	if row.Key != "f1" || row.Value != true {
		t.Errorf("evalRemote() = %+v, want Key=f1 Value=true", row)
	}
}

func TestEvalRemote_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := evalRemote(&cli.EnvConfig{BaseURL: server.URL}, "f1", "user-1", false)
	if err == nil {
		t.Fatal("expected a non-200 response to produce an error")
	}
}

func TestEvalRemote_NoAPIKeyOmitsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(remoteEvaluateResponse{FlagKey: "f1"})
	}))
	defer server.Close()

	if _, err := evalRemote(&cli.EnvConfig{BaseURL: server.URL}, "f1", "user-1", nil); err != nil {
		t.Fatalf("evalRemote() error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty when no API key configured", gotAuth)
	}
}

func TestRemoteStatus_DecodesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"initialized": true})
	}))
	defer server.Close()

	out, err := remoteStatus(&cli.EnvConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("remoteStatus() error: %v", err)
	}
	if initialized, _ := out["initialized"].(bool); !initialized {
		t.Errorf("initialized = %v, want true", out["initialized"])
	}
}
