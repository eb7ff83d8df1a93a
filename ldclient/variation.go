package ldclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/internal/events"
	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// EvalDetail is the public evaluation result returned by VariationDetail.
type EvalDetail struct {
	Value          any
	VariationIndex *int
	Reason         evaluator.Reason
}

// BoolVariation, StringVariation etc. are thin convenience wrappers; the
// canonical entry point is Variation/VariationDetail.
func (c *Client) BoolVariation(ctx ldcontext.Context, key string, defaultValue bool) bool {
	v, _ := c.Variation(ctx, key, defaultValue).(bool)
	return v
}

func (c *Client) StringVariation(ctx ldcontext.Context, key string, defaultValue string) string {
	v, ok := c.Variation(ctx, key, defaultValue).(string)
	if !ok {
		return defaultValue
	}
	return v
}

// Variation evaluates key for ctx and returns the resulting value, or
// defaultValue if the flag is missing, malformed, or the client isn't
// ready.
func (c *Client) Variation(ctx ldcontext.Context, key string, defaultValue any) any {
	return c.VariationDetail(ctx, key, defaultValue).Value
}

// VariationDetail evaluates key for ctx and returns the value plus the
// full reason, generating an evaluation event as a side effect (unless
// the client is offline).
func (c *Client) VariationDetail(ctx ldcontext.Context, key string, defaultValue any) EvalDetail {
	if !c.IsInitialized() && !c.cfg.Offline {
		return c.errorDetail(ctx, key, defaultValue, evaluator.ErrorKindClientNotReady, nil)
	}

	flag, found := c.flagProvider().GetFlag(key)
	if !found {
		return c.errorDetail(ctx, key, defaultValue, evaluator.ErrorKindFlagNotFound, nil)
	}

	result := c.eval.Evaluate(flag, ctx)
	if result.Reason.Kind == evaluator.ReasonError {
		return c.errorDetail(ctx, key, defaultValue, result.Reason.ErrorKind, flag)
	}

	c.sendEvaluationEvent(ctx, flag, result, defaultValue)
	return EvalDetail{Value: result.Value, VariationIndex: result.VariationIndex, Reason: result.Reason}
}

func (c *Client) flagProvider() storeDataProvider {
	return storeDataProvider{store: c.store}
}

func (c *Client) errorDetail(ctx ldcontext.Context, key string, defaultValue any, kind evaluator.ErrorKind, flag *ldmodel.Flag) EvalDetail {
	reason := evaluator.Reason{Kind: evaluator.ReasonError, ErrorKind: kind}
	if c.events != nil {
		version := 0
		if flag != nil {
			version = flag.Version
		}
		c.events.Send(events.InputEvent{
			Kind:         events.InputEvaluation,
			CreationDate: time.Now().UnixMilli(),
			Context:      ctx,
			FlagKey:      key,
			FlagVersion:  version,
			Value:        defaultValue,
			Default:      defaultValue,
			Reason:       reason,
		})
	}
	return EvalDetail{Value: defaultValue, Reason: reason}
}

func (c *Client) sendEvaluationEvent(ctx ldcontext.Context, flag *ldmodel.Flag, result evaluator.Result, defaultValue any) {
	if c.events == nil {
		return
	}
	c.events.Send(events.InputEvent{
		Kind:                 events.InputEvaluation,
		CreationDate:         time.Now().UnixMilli(),
		Context:              ctx,
		FlagKey:              flag.Key,
		FlagVersion:          flag.Version,
		Value:                result.Value,
		Default:              defaultValue,
		VariationIndex:       result.VariationIndex,
		Reason:               result.Reason,
		TrackEvents:          flag.TrackEvents,
		DebugEventsUntilDate: flag.DebugEventsUntilDate,
		ExcludeFromSummaries: flag.ExcludeFromSummaries,
	})
}

// AllFlagsState evaluates every known flag for ctx, used by client-side
// SDK bootstrapping endpoints.
func (c *Client) AllFlagsState(ctx ldcontext.Context) map[string]any {
	flags, err := c.store.All(context.Background(), ldmodel.KindFlag)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(flags))
	for key, item := range flags {
		if item.Flag == nil {
			continue
		}
		out[key] = c.eval.Evaluate(item.Flag, ctx).Value
	}
	return out
}

// Identify emits an identify event for ctx.
func (c *Client) Identify(ctx ldcontext.Context) {
	if c.events == nil {
		return
	}
	c.events.Send(events.InputEvent{
		Kind:         events.InputIdentify,
		CreationDate: time.Now().UnixMilli(),
		Context:      ctx,
	})
}

// Track emits a custom event for ctx.
func (c *Client) Track(ctx ldcontext.Context, eventName string, data any) {
	if c.events == nil {
		return
	}
	c.events.Send(events.InputEvent{
		Kind:         events.InputCustom,
		CreationDate: time.Now().UnixMilli(),
		Context:      ctx,
		EventName:    eventName,
		Data:         data,
	})
}

// TrackMigrationOp emits a migration_op event summarizing one dual-write
// migration operation.
func (c *Client) TrackMigrationOp(ctx ldcontext.Context, op string, latencies map[string]int64, errors map[string]bool, consistent *bool) {
	if c.events == nil {
		return
	}
	c.events.Send(events.InputEvent{
		Kind:                 events.InputMigrationOp,
		CreationDate:         time.Now().UnixMilli(),
		Context:              ctx,
		MigrationOp:          op,
		MigrationLatenciesMs: latencies,
		MigrationErrors:      errors,
		MigrationConsistent:  consistent,
	})
}

// SecureModeHash computes the HMAC-SHA256 of ctx's key under the SDK key,
// used by client-side SDKs in secure mode.
func (c *Client) SecureModeHash(ctx ldcontext.Context) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SDKKey))
	mac.Write([]byte(ctx.Key()))
	return hex.EncodeToString(mac.Sum(nil))
}
