package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/lumen/pkg/lumen/internalerr"
	"github.com/cognicore/lumen/pkg/lumen/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "lumen.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string, at time.Time) store.Record {
	return store.Record{
		ID:           id,
		CreatedAt:    at,
		Text:         "This is a good movie",
		ClassNames:   []string{"negative", "positive"},
		PredictProba: []float64{0.1, 0.9},
		TopLabels:    []int{1, 0},
		Labels: map[int][]store.FeatureWeight{
			1: {
				{Feature: 3, Word: "good", Weight: 0.62},
				{Feature: 4, Word: "movie", Weight: 0.11},
			},
		},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := sampleRecord("01ARZ3NDEKTSV4RRFFQ69G5FAV", time.Now().UTC())
	if err := s.SaveExplanation(ctx, rec); err != nil {
		t.Fatalf("SaveExplanation: %v", err)
	}

	got, err := s.GetExplanation(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetExplanation: %v", err)
	}

	if got.Text != rec.Text {
		t.Errorf("Text = %q, want %q", got.Text, rec.Text)
	}
	if len(got.PredictProba) != 2 || got.PredictProba[1] != 0.9 {
		t.Errorf("PredictProba = %v", got.PredictProba)
	}
	if len(got.TopLabels) != 2 || got.TopLabels[0] != 1 {
		t.Errorf("TopLabels = %v", got.TopLabels)
	}

	features := got.Labels[1]
	if len(features) != 2 {
		t.Fatalf("label 1 has %d features, want 2", len(features))
	}
	if features[0].Word != "good" || features[0].Weight != 0.62 {
		t.Errorf("first feature = %+v, want good/0.62 (rank order)", features[0])
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := sampleRecord("01ARZ3NDEKTSV4RRFFQ69G5FAV", time.Now().UTC())
	if err := s.SaveExplanation(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Labels = map[int][]store.FeatureWeight{
		0: {{Feature: 0, Word: "This", Weight: -0.2}},
	}
	if err := s.SaveExplanation(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetExplanation(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Labels) != 1 || len(got.Labels[0]) != 1 {
		t.Errorf("Labels after replace = %v, want only the new label", got.Labels)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetExplanation(context.Background(), "nope")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecentExplanationsSubSecondOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// A whole-second timestamp and one half a second later: the text
	// ordering must still put the later record first.
	whole := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	later := whole.Add(500 * time.Millisecond)

	if err := s.SaveExplanation(ctx, sampleRecord("whole", whole)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveExplanation(ctx, sampleRecord("later", later)); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentExplanations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentExplanations: %v", err)
	}
	if len(got) != 2 || got[0].ID != "later" || got[1].ID != "whole" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Errorf("RecentExplanations order = %v, want [later whole]", ids)
	}
	if !got[0].CreatedAt.Equal(later) {
		t.Errorf("CreatedAt = %v, want %v preserved to the nanosecond", got[0].CreatedAt, later)
	}
}

func TestRecentExplanationsOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Now().UTC()
	for i, id := range []string{"aaa", "bbb", "ccc"} {
		rec := sampleRecord(id, base.Add(time.Duration(i)*time.Second))
		if err := s.SaveExplanation(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentExplanations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentExplanations: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ccc" || got[1].ID != "bbb" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Errorf("RecentExplanations order = %v, want [ccc bbb]", ids)
	}
}
