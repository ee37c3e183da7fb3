package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/lumen/pkg/lumen/internalerr"
	"github.com/cognicore/lumen/pkg/lumen/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	records map[string]store.Record
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{records: make(map[string]store.Record)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveExplanation inserts or replaces a record, keyed by id.
func (s *Store) SaveExplanation(ctx context.Context, rec store.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record has no id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = copyRecord(rec)
	return nil
}

// GetExplanation implements store.Store.
func (s *Store) GetExplanation(ctx context.Context, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return store.Record{}, fmt.Errorf("%w: explanation %s", internalerr.ErrNotFound, id)
	}
	return copyRecord(rec), nil
}

// RecentExplanations returns up to limit records, newest first.
func (s *Store) RecentExplanations(ctx context.Context, limit int) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRecord(rec store.Record) store.Record {
	out := rec
	out.ClassNames = append([]string(nil), rec.ClassNames...)
	out.PredictProba = append([]float64(nil), rec.PredictProba...)
	out.TopLabels = append([]int(nil), rec.TopLabels...)
	out.Labels = make(map[int][]store.FeatureWeight, len(rec.Labels))
	for label, features := range rec.Labels {
		out.Labels[label] = append([]store.FeatureWeight(nil), features...)
	}
	return out
}
