// Package lumen produces local, interpretable explanations for single
// predictions of opaque text classifiers: it perturbs one document,
// watches how the classifier's probabilities move, and fits a locally
// weighted linear surrogate whose coefficients say which words
// mattered.
package lumen

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/cognicore/lumen/pkg/lumen/explanation"
	"github.com/cognicore/lumen/pkg/lumen/index"
	"github.com/cognicore/lumen/pkg/lumen/internalerr"
	"github.com/cognicore/lumen/pkg/lumen/neighborhood"
	"github.com/cognicore/lumen/pkg/lumen/surrogate"
	"github.com/cognicore/lumen/pkg/lumen/surrogate/ridge"
)

// Default explanation parameters.
const (
	DefaultKernelWidth = 25.0
	DefaultNumFeatures = 10
	DefaultNumSamples  = 5000
)

// Options configures an Explainer.
type Options struct {
	// KernelWidth controls how quickly sample influence decays with
	// distance from the original instance. Zero means the default.
	KernelWidth float64

	// Verbose makes the bundled fitter log its local predictions.
	Verbose bool

	// ClassNames are display names per label index. When nil they are
	// synthesized as "0", "1", ... on the first explanation and reused
	// afterwards.
	ClassNames []string

	// FeatureSelection picks the fitter's selection strategy.
	// Defaults to auto.
	FeatureSelection surrogate.SelectionMode

	// Positional indexes every word occurrence as its own feature.
	// The default (false) is bag-of-words: all occurrences of a word
	// share one feature id.
	Positional bool

	// Fitter overrides the bundled ridge fitter.
	Fitter surrogate.Fitter

	// Rand is the random source for neighborhood sampling; inject a
	// seeded source for reproducible explanations. Nil means a
	// time-seeded source.
	Rand *rand.Rand
}

// Explainer explains individual predictions of a text classifier. It
// is safe for concurrent use: each call owns its own document and
// neighborhood, and the lazily synthesized class names are write-once.
type Explainer struct {
	sampler    *neighborhood.Sampler
	fitter     surrogate.Fitter
	builder    *explanation.Builder
	selection  surrogate.SelectionMode
	positional bool

	mu         sync.Mutex
	classNames []string
}

// New creates an Explainer.
func New(opts Options) *Explainer {
	width := opts.KernelWidth
	if width == 0 {
		width = DefaultKernelWidth
	}

	fitter := opts.Fitter
	if fitter == nil {
		rf := ridge.New(width)
		rf.Verbose = opts.Verbose
		fitter = rf
	}

	selection := opts.FeatureSelection
	if selection == "" {
		selection = surrogate.SelectionAuto
	}

	return &Explainer{
		sampler:    neighborhood.New(opts.Rand),
		fitter:     fitter,
		builder:    explanation.NewBuilder(),
		selection:  selection,
		positional: opts.Positional,
		classNames: opts.ClassNames,
	}
}

// ExplainRequest describes one explanation call.
type ExplainRequest struct {
	// Text is the raw document whose prediction is explained.
	Text string

	// Predict is the classifier's batched probability function. It is
	// invoked exactly once per explanation.
	Predict neighborhood.PredictFn

	// Labels are the label indices to explain. Default is label 1.
	Labels []int

	// TopLabels, when positive, ignores Labels and explains the K
	// labels with the highest predicted probability instead.
	TopLabels int

	// NumFeatures caps the explanation size per label. Zero means the
	// default.
	NumFeatures int

	// NumSamples is the neighborhood size. Zero means the default.
	NumSamples int
}

// ExplainInstance generates the local explanation for one document.
func (e *Explainer) ExplainInstance(ctx context.Context, req ExplainRequest) (*explanation.Explanation, error) {
	if req.Predict == nil {
		return nil, fmt.Errorf("%w: prediction function is required", internalerr.ErrInvalidInput)
	}

	numFeatures := req.NumFeatures
	if numFeatures == 0 {
		numFeatures = DefaultNumFeatures
	}
	numSamples := req.NumSamples
	if numSamples == 0 {
		numSamples = DefaultNumSamples
	}
	labels := req.Labels
	if len(labels) == 0 {
		labels = []int{1}
	}

	doc := index.New(req.Text, !e.positional)

	ds, err := e.sampler.Sample(ctx, doc, req.Predict, numSamples)
	if err != nil {
		return nil, err
	}

	classNames := e.ensureClassNames(len(ds.Predictions[0]))

	exp := e.builder.New(doc, classNames)
	exp.PredictProba = append([]float64(nil), ds.Predictions[0]...)

	if req.TopLabels > 0 {
		labels = topLabels(ds.Predictions[0], req.TopLabels)
		exp.TopLabels = labels
	}

	for _, label := range labels {
		weighted, err := e.fitter.Fit(ds.Data, ds.Predictions, ds.Distances, label, numFeatures, e.selection)
		if err != nil {
			return nil, fmt.Errorf("fit label %d: %w", label, err)
		}
		exp.Local[label] = weighted
	}

	return exp, nil
}

// ensureClassNames returns the configured class names, synthesizing
// numeric names once if none were supplied. First synthesis wins so
// concurrent explanations see a consistent list.
func (e *Explainer) ensureClassNames(numClasses int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.classNames == nil {
		names := make([]string, numClasses)
		for i := range names {
			names[i] = fmt.Sprintf("%d", i)
		}
		e.classNames = names
	}
	return e.classNames
}

// topLabels returns the indices of the k highest probabilities,
// descending.
func topLabels(probs []float64, k int) []int {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})
	if k > len(order) {
		k = len(order)
	}
	return order[:k]
}
