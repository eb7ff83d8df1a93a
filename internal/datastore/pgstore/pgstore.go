// Package pgstore is the Postgres-backed Data Store. Grounded on
// goflagship's internal/store/postgres.go and internal/db/pool.go for
// connection-pool construction, but writes SQL directly instead of going
// through the teacher's sqlc-generated dbgen package, which the retrieved
// sources reference but never ship; see DESIGN.md.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

var tracer = otel.Tracer("github.com/TimurManjosov/goflagship/internal/datastore/pgstore")

// Schema creates the item table (ld_items, keyed by kind and key) and a
// single-row marker table (ld_store_meta) for Initialized().
// Hosts run this once via migration tooling; the store itself never runs
// DDL automatically.
const Schema = `
CREATE TABLE IF NOT EXISTS ld_items (
	kind    TEXT NOT NULL,
	key     TEXT NOT NULL,
	version INTEGER NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	payload JSONB,
	PRIMARY KEY (kind, key)
);
CREATE TABLE IF NOT EXISTS ld_store_meta (
	singleton   BOOLEAN PRIMARY KEY DEFAULT TRUE,
	initialized BOOLEAN NOT NULL DEFAULT FALSE
);
`

type Store struct {
	pool *pgxpool.Pool
}

var _ datastore.Store = (*Store)(nil)

// NewPool mirrors goflagship's internal/db.NewPool tuning.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Init(ctx context.Context, allData map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ld_items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	for kind, items := range allData {
		for key, item := range items {
			if err := upsertTx(ctx, tx, kind, key, item); err != nil {
				return err
			}
		}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO ld_store_meta (singleton, initialized) VALUES (true, true)
		ON CONFLICT (singleton) DO UPDATE SET initialized = true`); err != nil {
		return fmt.Errorf("set initialized: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, kind ldmodel.Kind, key string) (ldmodel.ItemDescriptor, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("ld.kind", string(kind)),
		attribute.String("ld.key", key),
	))
	defer span.End()

	var version int
	var deleted bool
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT version, deleted, payload FROM ld_items WHERE kind=$1 AND key=$2`, string(kind), key)
	if err := row.Scan(&version, &deleted, &payload); err != nil {
		return ldmodel.ItemDescriptor{}, false, nil
	}
	item, err := decode(kind, version, deleted, payload)
	if err != nil {
		return ldmodel.ItemDescriptor{}, false, err
	}
	return item, true, nil
}

func (s *Store) All(ctx context.Context, kind ldmodel.Kind) (map[string]ldmodel.ItemDescriptor, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, version, deleted, payload FROM ld_items WHERE kind=$1 AND deleted=false`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	result := make(map[string]ldmodel.ItemDescriptor)
	for rows.Next() {
		var key string
		var version int
		var deleted bool
		var payload []byte
		if err := rows.Scan(&key, &version, &deleted, &payload); err != nil {
			return nil, err
		}
		item, err := decode(kind, version, deleted, payload)
		if err != nil {
			return nil, err
		}
		result[key] = item
	}
	return result, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, kind ldmodel.Kind, key string, item ldmodel.ItemDescriptor) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Upsert", trace.WithAttributes(
		attribute.String("ld.kind", string(kind)),
		attribute.String("ld.key", key),
		attribute.Int("ld.version", item.Version),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin transaction failed")
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingVersion int
	err = tx.QueryRow(ctx, `SELECT version FROM ld_items WHERE kind=$1 AND key=$2`, string(kind), key).Scan(&existingVersion)
	if err == nil && existingVersion >= item.Version {
		return false, nil
	}
	if err := upsertTx(ctx, tx, kind, key, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func upsertTx(ctx context.Context, tx pgx.Tx, kind ldmodel.Kind, key string, item ldmodel.ItemDescriptor) error {
	var payload []byte
	var err error
	var deleted bool
	switch {
	case item.Flag != nil:
		payload, err = json.Marshal(item.Flag)
	case item.Segment != nil:
		payload, err = json.Marshal(item.Segment)
	default:
		deleted = true
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO ld_items (kind, key, version, deleted, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, key) DO UPDATE SET version=$3, deleted=$4, payload=$5`,
		string(kind), key, item.Version, deleted, payload)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func decode(kind ldmodel.Kind, version int, deleted bool, payload []byte) (ldmodel.ItemDescriptor, error) {
	if deleted || len(payload) == 0 {
		return ldmodel.ItemDescriptor{Version: version}, nil
	}
	switch kind {
	case ldmodel.KindFlag:
		var f ldmodel.Flag
		if err := json.Unmarshal(payload, &f); err != nil {
			return ldmodel.ItemDescriptor{}, fmt.Errorf("decode flag: %w", err)
		}
		return ldmodel.ItemDescriptor{Version: version, Flag: &f}, nil
	case ldmodel.KindSegment:
		var s ldmodel.Segment
		if err := json.Unmarshal(payload, &s); err != nil {
			return ldmodel.ItemDescriptor{}, fmt.Errorf("decode segment: %w", err)
		}
		return ldmodel.ItemDescriptor{Version: version, Segment: &s}, nil
	default:
		return ldmodel.ItemDescriptor{}, fmt.Errorf("unknown kind %q", kind)
	}
}

func (s *Store) Initialized(ctx context.Context) (bool, error) {
	var initialized bool
	err := s.pool.QueryRow(ctx, `SELECT initialized FROM ld_store_meta WHERE singleton=true`).Scan(&initialized)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return initialized, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
