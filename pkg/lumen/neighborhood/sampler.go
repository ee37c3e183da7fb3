package neighborhood

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cognicore/lumen/pkg/lumen/index"
	"github.com/cognicore/lumen/pkg/lumen/internalerr"
)

// PredictFn is the opaque classifier: it takes a batch of raw texts
// and returns one row of class probabilities per text, in the same
// order. Column count must be stable across calls.
type PredictFn func(ctx context.Context, texts []string) ([][]float64, error)

// Dataset is the synthetic neighborhood generated around one document.
// Row 0 is always the unperturbed original: an all-ones mask with
// distance 0.
type Dataset struct {
	// Data is the numSamples x K binary design matrix; 1 means the
	// feature is present in that sample.
	Data [][]float64
	// Predictions is the numSamples x L probability matrix returned
	// by the classifier.
	Predictions [][]float64
	// Distances holds the cosine distance between each row's mask and
	// row 0's mask, scaled by 100.
	Distances []float64
}

// Sampler generates perturbed neighborhoods. The random source is
// injectable so that neighborhoods are reproducible under test; it is
// guarded by a mutex because rand.Rand is not goroutine-safe and one
// Sampler serves concurrent explanations.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Sampler. A nil rng falls back to a time-seeded source.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rng: rng}
}

// Sample builds the neighborhood dataset for doc: it perturbs the
// document numSamples-1 times by deactivating a random subset of
// features, queries the classifier once for the whole batch, and
// computes mask distances to the original.
func (s *Sampler) Sample(ctx context.Context, doc *index.IndexedText, predict PredictFn, numSamples int) (*Dataset, error) {
	if numSamples < 1 {
		return nil, fmt.Errorf("%w: num_samples must be at least 1, got %d",
			internalerr.ErrInvalidConfig, numSamples)
	}

	k := doc.NumFeatures()
	if k <= 1 {
		return nil, fmt.Errorf("%w: %d feature(s)", internalerr.ErrEmptyNeighborhood, k)
	}

	data := make([][]float64, numSamples)
	texts := make([]string, numSamples)

	data[0] = onesRow(k)
	texts[0] = doc.RawString()

	for i := 1; i < numSamples; i++ {
		inactive := s.drawInactive(k)

		row := onesRow(k)
		for _, f := range inactive {
			row[f] = 0
		}
		data[i] = row

		text, err := doc.Remove(inactive)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}

	predictions, err := predict(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := checkPredictions(predictions, numSamples); err != nil {
		return nil, err
	}

	distances := make([]float64, numSamples)
	for i := range data {
		distances[i] = CosineDistance(data[0], data[i]) * 100
	}

	return &Dataset{Data: data, Predictions: predictions, Distances: distances}, nil
}

// drawInactive picks the features to deactivate for one sample. The
// removal size is drawn from [1, k-1], so a sample never deactivates
// every feature at once.
func (s *Sampler) drawInactive(k int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.rng.Intn(k-1) + 1
	return s.rng.Perm(k)[:size]
}

// checkPredictions enforces the classifier contract: one row per input
// text and a consistent, non-zero column count.
func checkPredictions(predictions [][]float64, numSamples int) error {
	if len(predictions) != numSamples {
		return fmt.Errorf("%w: got %d rows for %d texts",
			internalerr.ErrPredictionContract, len(predictions), numSamples)
	}
	cols := len(predictions[0])
	if cols == 0 {
		return fmt.Errorf("%w: prediction rows have no columns",
			internalerr.ErrPredictionContract)
	}
	for i, row := range predictions {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d columns, row 0 has %d",
				internalerr.ErrPredictionContract, i, len(row), cols)
		}
	}
	return nil
}

func onesRow(k int) []float64 {
	row := make([]float64, k)
	for i := range row {
		row[i] = 1
	}
	return row
}
