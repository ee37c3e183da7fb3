package store

import (
	"context"
	"time"

	"github.com/cognicore/lumen/pkg/lumen/explanation"
)

// Store persists finished explanations for audit and later rendering.
type Store interface {
	Close() error

	SaveExplanation(ctx context.Context, rec Record) error
	// GetExplanation returns internalerr.ErrNotFound for unknown ids.
	GetExplanation(ctx context.Context, id string) (Record, error)
	RecentExplanations(ctx context.Context, limit int) ([]Record, error)
}

// Record is the persisted form of an explanation: feature ids are
// resolved to words so the record stands on its own without the
// indexed document.
type Record struct {
	ID           string
	CreatedAt    time.Time
	Text         string
	ClassNames   []string
	PredictProba []float64
	TopLabels    []int
	Labels       map[int][]FeatureWeight
}

// FeatureWeight is one resolved explanation entry.
type FeatureWeight struct {
	Feature int
	Word    string
	Weight  float64
}

// NewRecord flattens an Explanation into a Record.
func NewRecord(exp *explanation.Explanation) (Record, error) {
	rec := Record{
		ID:           exp.ID,
		CreatedAt:    exp.CreatedAt,
		Text:         exp.Doc.RawString(),
		ClassNames:   exp.ClassNames,
		PredictProba: exp.PredictProba,
		TopLabels:    exp.TopLabels,
		Labels:       make(map[int][]FeatureWeight),
	}

	for _, label := range exp.Labels() {
		features := exp.Local[label]
		resolved := make([]FeatureWeight, len(features))
		for i, wf := range features {
			word, err := exp.Doc.FeatureText(wf.Feature)
			if err != nil {
				return Record{}, err
			}
			resolved[i] = FeatureWeight{Feature: wf.Feature, Word: word, Weight: wf.Weight}
		}
		rec.Labels[label] = resolved
	}
	return rec, nil
}
