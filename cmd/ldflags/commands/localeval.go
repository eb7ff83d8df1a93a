package commands

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/goflagship/internal/bigsegments"
	"github.com/TimurManjosov/goflagship/internal/cli"
	"github.com/TimurManjosov/goflagship/internal/datasource"
	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/internal/datastore/memstore"
	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/ldclient"
	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// localProvider adapts a datastore.Store to evaluator.DataProvider, the
// same shape as ldclient's storeDataProvider but kept local to this
// package since cmd/ldflags's offline mode never constructs a full
// ldclient.Client (no event pipeline, no live Data Source).
type localProvider struct {
	store datastore.Store
}

func (p localProvider) GetFlag(key string) (*ldmodel.Flag, bool) {
	item, ok, err := p.store.Get(context.Background(), ldmodel.KindFlag, key)
	if err != nil || !ok || item.IsTombstone() {
		return nil, false
	}
	return item.Flag, true
}

func (p localProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	item, ok, err := p.store.Get(context.Background(), ldmodel.KindSegment, key)
	if err != nil || !ok || item.IsTombstone() {
		return nil, false
	}
	return item.Segment, true
}

// loadLocalEvaluator reads a flags/segments test-data file into an
// in-memory Data Store and returns an Evaluator over it -- the offline
// counterpart to ldclient.MakeClient, used when --data is supplied
// instead of --base-url.
func loadLocalEvaluator(path string) (*evaluator.Evaluator, datastore.Store, error) {
	store := memstore.New()
	file := datasource.NewFile(path, store)
	if err := file.Start(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("load test data: %w", err)
	}
	bsb := bigsegments.New(nil)
	return evaluator.New(localProvider{store: store}, bsb), store, nil
}

// evalLocal evaluates a single flag against the local test-data file.
func evalLocal(dataFile, flagKey string, ctxKey string, defaultValue any) (cli.EvalRow, error) {
	eval, store, err := loadLocalEvaluator(dataFile)
	if err != nil {
		return cli.EvalRow{}, err
	}
	defer store.Close()

	provider := localProvider{store: store}
	flag, ok := provider.GetFlag(flagKey)
	if !ok {
		return cli.EvalRow{Key: flagKey, Value: defaultValue, Detail: ldclient.EvalDetail{
			Value: defaultValue,
			Reason: evaluator.Reason{Kind: evaluator.ReasonError, ErrorKind: evaluator.ErrorKindFlagNotFound},
		}}, nil
	}

	result := eval.Evaluate(flag, ldcontext.New(ctxKey))
	return cli.EvalRow{
		Key:   flagKey,
		Value: result.Value,
		Detail: ldclient.EvalDetail{
			Value:          result.Value,
			VariationIndex: result.VariationIndex,
			Reason:         result.Reason,
		},
	}, nil
}

// allFlagsLocal evaluates every flag in the local test-data file.
func allFlagsLocal(dataFile, ctxKey string) ([]cli.EvalRow, error) {
	eval, store, err := loadLocalEvaluator(dataFile)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	items, err := store.All(context.Background(), ldmodel.KindFlag)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}

	ctx := ldcontext.New(ctxKey)
	rows := make([]cli.EvalRow, 0, len(items))
	for key, item := range items {
		if item.Flag == nil {
			continue
		}
		result := eval.Evaluate(item.Flag, ctx)
		rows = append(rows, cli.EvalRow{
			Key:   key,
			Value: result.Value,
			Detail: ldclient.EvalDetail{
				Value:          result.Value,
				VariationIndex: result.VariationIndex,
				Reason:         result.Reason,
			},
		})
	}
	return rows, nil
}
