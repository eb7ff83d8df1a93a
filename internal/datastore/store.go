// Package datastore defines the Data Store interface shared by the
// in-memory (memstore), persistent (pgstore) and caching-wrapper
// implementations, generalized from goflagship's internal/store.Store
// (GetAllFlags/GetFlagByKey/UpsertFlag/DeleteFlag) into a kind-generic
// interface that also carries flags and segments and enforces monotonic
// versioning with tombstones instead of hard deletes.
package datastore

import (
	"context"

	"github.com/TimurManjosov/goflagship/ldmodel"
)

// Store is the pluggable persistence interface for flags and segments.
type Store interface {
	// Init replaces the entire contents of the store with the given full
	// data set, used when a Data Source delivers an initial "put".
	Init(ctx context.Context, allData map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor) error

	// Get returns the current descriptor for key under kind. A tombstone
	// (IsTombstone() == true) is returned rather than "not found" once an
	// item has been deleted, so callers can still see its version.
	Get(ctx context.Context, kind ldmodel.Kind, key string) (ldmodel.ItemDescriptor, bool, error)

	// All returns every non-deleted item under kind.
	All(ctx context.Context, kind ldmodel.Kind) (map[string]ldmodel.ItemDescriptor, error)

	// Upsert applies item if item.Version is greater than the currently
	// stored version for key (or if there is none yet). Returns whether
	// the update was applied.
	Upsert(ctx context.Context, kind ldmodel.Kind, key string, item ldmodel.ItemDescriptor) (applied bool, err error)

	// Initialized reports whether Init has ever been called successfully.
	Initialized(ctx context.Context) (bool, error)

	Close() error
}

// Tombstone builds a deletion marker for the given version.
func Tombstone(version int) ldmodel.ItemDescriptor {
	return ldmodel.ItemDescriptor{Version: version}
}
