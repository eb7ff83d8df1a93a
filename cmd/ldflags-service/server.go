// Package main is a small chi-based HTTP demo host that wires an
// ldclient.Client behind POST /v1/evaluate, GET /healthz and GET /status,
// purely a smoke-test harness for exercising the SDK's construction and
// evaluation path end-to-end -- grounded on goflagship's
// internal/api/server.go (chi router, RequestID/RealIP/Recoverer/Timeout
// middleware, constant-time bearer auth) and internal/api/evaluate.go
// (decode a user/context, evaluate, encode a response), generalized from
// a DB-backed admin API to an in-process evaluation client.
package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"golang.org/x/crypto/bcrypt"

	"github.com/TimurManjosov/goflagship/internal/telemetry"
	"github.com/TimurManjosov/goflagship/ldclient"
	"github.com/TimurManjosov/goflagship/ldcontext"
)

// Server exposes ldclient.Client over HTTP for manual smoke-testing.
type Server struct {
	client       *ldclient.Client
	adminKeyHash []byte // bcrypt hash; empty disables admin auth entirely
}

func NewServer(client *ldclient.Client, adminKeyHash []byte) *Server {
	return &Server{client: client, adminKeyHash: adminKeyHash}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(telemetry.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Post("/v1/evaluate", s.authAdmin(s.handleEvaluate))

	return r
}

type evaluateRequest struct {
	FlagKey string         `json:"flagKey"`
	Context contextPayload `json:"context"`
	Default any            `json:"default"`
}

type contextPayload struct {
	Kind       string         `json:"kind,omitempty"`
	Key        string         `json:"key"`
	Name       string         `json:"name,omitempty"`
	Anonymous  bool           `json:"anonymous,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (p contextPayload) toContext() ldcontext.Context {
	b := ldcontext.NewBuilder(p.Key)
	if p.Kind != "" {
		b.Kind(p.Kind)
	}
	if p.Name != "" {
		b.Name(p.Name)
	}
	if p.Anonymous {
		b.Anonymous(true)
	}
	for k, v := range p.Attributes {
		b.Attribute(k, v)
	}
	return b.Build()
}

type evaluateResponse struct {
	FlagKey        string `json:"flagKey"`
	Value          any    `json:"value"`
	VariationIndex *int   `json:"variationIndex,omitempty"`
	Reason         any    `json:"reason"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.FlagKey) == "" {
		writeError(w, http.StatusBadRequest, "flagKey is required")
		return
	}
	if strings.TrimSpace(req.Context.Key) == "" {
		writeError(w, http.StatusBadRequest, "context.key is required")
		return
	}

	detail := s.client.VariationDetail(req.Context.toContext(), req.FlagKey, req.Default)
	writeJSON(w, http.StatusOK, evaluateResponse{
		FlagKey:        req.FlagKey,
		Value:          detail.Value,
		VariationIndex: detail.VariationIndex,
		Reason:         detail.Reason,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": s.client.IsInitialized(),
		"dataSource":  s.client.Status(),
	})
}

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	if len(s.adminKeyHash) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" || bcrypt.CompareHashAndPassword(s.adminKeyHash, []byte(got)) != nil {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": http.StatusText(code), "message": msg})
}
