// Package explanation holds the result object handed back to callers
// and renderers: per-label weighted features plus everything needed to
// map feature ids back onto the original text.
package explanation

import (
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lumen/pkg/lumen/index"
	"github.com/cognicore/lumen/pkg/lumen/surrogate"
)

// Explanation is the local explanation of one prediction.
type Explanation struct {
	ID         string
	CreatedAt  time.Time
	Doc        *index.IndexedText
	ClassNames []string

	// PredictProba is the classifier's probability vector for the
	// unperturbed instance (row 0 of the neighborhood).
	PredictProba []float64

	// TopLabels lists the explained labels in descending probability
	// order when the caller asked for the top K labels.
	TopLabels []int

	// Local maps a label index to its weighted features, ordered by
	// decreasing absolute weight.
	Local map[int][]surrogate.WeightedFeature
}

// Builder mints explanations with monotonic ULID ids. The entropy
// source is wrapped in a locked reader because one Builder serves
// concurrent explanations.
type Builder struct {
	entropy *ulid.LockedMonotonicReader
}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{
		entropy: &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rand.Reader, 0),
		},
	}
}

// New creates an empty Explanation for the given document.
func (b *Builder) New(doc *index.IndexedText, classNames []string) *Explanation {
	now := time.Now()
	return &Explanation{
		ID:         ulid.MustNew(ulid.Timestamp(now), b.entropy).String(),
		CreatedAt:  now,
		Doc:        doc,
		ClassNames: classNames,
		Local:      make(map[int][]surrogate.WeightedFeature),
	}
}

// Labels returns the explained label indices in ascending order.
func (e *Explanation) Labels() []int {
	labels := make([]int, 0, len(e.Local))
	for label := range e.Local {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// WordWeight pairs a word with its surrogate weight.
type WordWeight struct {
	Word   string
	Weight float64
}

// AsList resolves a label's feature ids to words, preserving the
// fitted order.
func (e *Explanation) AsList(label int) ([]WordWeight, error) {
	features, ok := e.Local[label]
	if !ok {
		return nil, fmt.Errorf("label %d was not explained", label)
	}
	out := make([]WordWeight, len(features))
	for i, wf := range features {
		word, err := e.Doc.FeatureText(wf.Feature)
		if err != nil {
			return nil, err
		}
		out[i] = WordWeight{Word: word, Weight: wf.Weight}
	}
	return out, nil
}

// Highlight maps one explained feature onto the original text: the
// word, every byte offset where it occurs, and its weight.
type Highlight struct {
	Word    string
	Offsets []int
	Weight  float64
}

// Highlights returns renderer-ready spans for a label.
func (e *Explanation) Highlights(label int) ([]Highlight, error) {
	features, ok := e.Local[label]
	if !ok {
		return nil, fmt.Errorf("label %d was not explained", label)
	}
	out := make([]Highlight, len(features))
	for i, wf := range features {
		word, err := e.Doc.FeatureText(wf.Feature)
		if err != nil {
			return nil, err
		}
		offsets, err := e.Doc.FeaturePositions(wf.Feature)
		if err != nil {
			return nil, err
		}
		out[i] = Highlight{Word: word, Offsets: offsets, Weight: wf.Weight}
	}
	return out, nil
}

// ClassName returns the display name for a label index, falling back
// to the numeric index when out of range.
func (e *Explanation) ClassName(label int) string {
	if label >= 0 && label < len(e.ClassNames) {
		return e.ClassNames[label]
	}
	return fmt.Sprintf("%d", label)
}
