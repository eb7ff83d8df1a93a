package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/TimurManjosov/goflagship/internal/cli"
)

// remoteEvaluateRequest/Response mirror cmd/ldflags-service's wire shapes.
type remoteEvaluateRequest struct {
	FlagKey string                 `json:"flagKey"`
	Context remoteContextPayload   `json:"context"`
	Default any                    `json:"default"`
}

type remoteContextPayload struct {
	Key string `json:"key"`
}

type remoteEvaluateResponse struct {
	FlagKey        string `json:"flagKey"`
	Value          any    `json:"value"`
	VariationIndex *int   `json:"variationIndex,omitempty"`
	Reason         any    `json:"reason"`
}

// evalRemote evaluates a flag against a running cmd/ldflags-service
// instance, mirroring goflagship's internal/client.Client method-per-
// operation shape over the evaluate endpoint instead of the admin CRUD
// endpoints.
func evalRemote(envCfg *cli.EnvConfig, flagKey, ctxKey string, defaultValue any) (cli.EvalRow, error) {
	body, err := json.Marshal(remoteEvaluateRequest{
		FlagKey: flagKey,
		Context: remoteContextPayload{Key: ctxKey},
		Default: defaultValue,
	})
	if err != nil {
		return cli.EvalRow{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, envCfg.BaseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return cli.EvalRow{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if envCfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+envCfg.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return cli.EvalRow{}, fmt.Errorf("evaluate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cli.EvalRow{}, fmt.Errorf("evaluate request returned %s", resp.Status)
	}

	var out remoteEvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return cli.EvalRow{}, fmt.Errorf("decode response: %w", err)
	}

	return cli.EvalRow{Key: out.FlagKey, Value: out.Value}, nil
}

// remoteStatus fetches GET /status from a running cmd/ldflags-service.
func remoteStatus(envCfg *cli.EnvConfig) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, envCfg.BaseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
