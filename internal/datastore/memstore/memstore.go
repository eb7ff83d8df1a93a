// Package memstore is the in-memory Data Store, grounded on goflagship's
// internal/store/memory.go: a single sync.RWMutex guarding a map, with
// read methods taking RLock and writes taking Lock. Generalized from one
// flat map[string]Flag to a map-of-kind-to-map carrying both flags and
// segments, and from hard deletes to monotonic-version tombstones.
package memstore

import (
	"context"
	"sync"

	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

type Store struct {
	mu          sync.RWMutex
	data        map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor
	initialized bool
}

var _ datastore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		data: map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor{
			ldmodel.KindFlag:    {},
			ldmodel.KindSegment: {},
		},
	}
}

func (s *Store) Init(_ context.Context, allData map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor{
		ldmodel.KindFlag:    {},
		ldmodel.KindSegment: {},
	}
	for kind, items := range allData {
		m := make(map[string]ldmodel.ItemDescriptor, len(items))
		for k, v := range items {
			m[k] = v
		}
		s.data[kind] = m
	}
	s.initialized = true
	return nil
}

func (s *Store) Get(_ context.Context, kind ldmodel.Kind, key string) (ldmodel.ItemDescriptor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.data[kind][key]
	return item, ok, nil
}

func (s *Store) All(_ context.Context, kind ldmodel.Kind) (map[string]ldmodel.ItemDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]ldmodel.ItemDescriptor)
	for k, v := range s.data[kind] {
		if !v.IsTombstone() {
			result[k] = v
		}
	}
	return result, nil
}

func (s *Store) Upsert(_ context.Context, kind ldmodel.Kind, key string, item ldmodel.ItemDescriptor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.data[kind]; ok {
		if existing, found := m[key]; found && existing.Version >= item.Version {
			return false, nil
		}
	} else {
		s.data[kind] = map[string]ldmodel.ItemDescriptor{}
	}
	s.data[kind][key] = item
	return true, nil
}

func (s *Store) Initialized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, nil
}

func (s *Store) Close() error { return nil }
