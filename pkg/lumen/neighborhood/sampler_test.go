package neighborhood

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/cognicore/lumen/pkg/lumen/index"
	"github.com/cognicore/lumen/pkg/lumen/internalerr"
)

// countingPredict records its batches and scores texts by word count.
func countingPredict(batches *[][]string) PredictFn {
	return func(ctx context.Context, texts []string) ([][]float64, error) {
		if batches != nil {
			*batches = append(*batches, texts)
		}
		out := make([][]float64, len(texts))
		for i, text := range texts {
			p := float64(len(strings.Fields(text))) / 10
			out[i] = []float64{1 - p, p}
		}
		return out, nil
	}
}

func TestSampleRowZeroIsOriginal(t *testing.T) {
	doc := index.New("this is a good movie", true)
	s := New(rand.New(rand.NewSource(1)))

	var batches [][]string
	ds, err := s.Sample(context.Background(), doc, countingPredict(&batches), 20)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	for j, v := range ds.Data[0] {
		if v != 1 {
			t.Fatalf("row 0 bit %d = %v, want 1", j, v)
		}
	}
	if ds.Distances[0] != 0 {
		t.Errorf("row 0 distance = %v, want exactly 0", ds.Distances[0])
	}
	if len(batches) != 1 {
		t.Fatalf("classifier called %d times, want exactly 1", len(batches))
	}
	if batches[0][0] != doc.RawString() {
		t.Errorf("first text = %q, want the raw document", batches[0][0])
	}
}

func TestSampleShapesAndBounds(t *testing.T) {
	doc := index.New("one two three four five", true)
	s := New(rand.New(rand.NewSource(7)))

	const numSamples = 50
	ds, err := s.Sample(context.Background(), doc, countingPredict(nil), numSamples)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	k := doc.NumFeatures()
	if len(ds.Data) != numSamples || len(ds.Predictions) != numSamples || len(ds.Distances) != numSamples {
		t.Fatalf("got %d/%d/%d rows, want %d each",
			len(ds.Data), len(ds.Predictions), len(ds.Distances), numSamples)
	}

	for i := 1; i < numSamples; i++ {
		zeros := 0
		for _, v := range ds.Data[i] {
			if v == 0 {
				zeros++
			}
		}
		// Removal size is drawn from [1, k-1].
		if zeros < 1 || zeros > k-1 {
			t.Errorf("row %d deactivates %d features, want within [1, %d]", i, zeros, k-1)
		}
		if ds.Distances[i] < 0 || ds.Distances[i] > 100 {
			t.Errorf("row %d distance = %v, want within [0, 100]", i, ds.Distances[i])
		}
	}
}

func TestSampleIsReproducible(t *testing.T) {
	doc := index.New("alpha beta gamma delta", true)

	run := func() *Dataset {
		s := New(rand.New(rand.NewSource(42)))
		ds, err := s.Sample(context.Background(), doc, countingPredict(nil), 30)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		return ds
	}

	a, b := run(), run()
	for i := range a.Data {
		for j := range a.Data[i] {
			if a.Data[i][j] != b.Data[i][j] {
				t.Fatalf("masks diverge at row %d bit %d with identical seeds", i, j)
			}
		}
		if a.Distances[i] != b.Distances[i] {
			t.Fatalf("distances diverge at row %d with identical seeds", i)
		}
	}
}

func TestSampleTooFewFeatures(t *testing.T) {
	for _, raw := range []string{"", "word", "!!! ..."} {
		doc := index.New(raw, true)
		s := New(rand.New(rand.NewSource(1)))
		_, err := s.Sample(context.Background(), doc, countingPredict(nil), 10)
		if !errors.Is(err, internalerr.ErrEmptyNeighborhood) {
			t.Errorf("Sample(%q) err = %v, want ErrEmptyNeighborhood", raw, err)
		}
	}
}

func TestSamplePredictionContract(t *testing.T) {
	doc := index.New("one two three", true)

	shortBatch := func(ctx context.Context, texts []string) ([][]float64, error) {
		return [][]float64{{0.5, 0.5}}, nil
	}
	raggedRows := func(ctx context.Context, texts []string) ([][]float64, error) {
		out := make([][]float64, len(texts))
		for i := range out {
			out[i] = []float64{0.5, 0.5}
		}
		out[len(out)-1] = []float64{1}
		return out, nil
	}

	for name, fn := range map[string]PredictFn{"short batch": shortBatch, "ragged rows": raggedRows} {
		s := New(rand.New(rand.NewSource(1)))
		_, err := s.Sample(context.Background(), doc, fn, 5)
		if !errors.Is(err, internalerr.ErrPredictionContract) {
			t.Errorf("%s: err = %v, want ErrPredictionContract", name, err)
		}
	}
}

func TestSamplePredictErrorPropagates(t *testing.T) {
	doc := index.New("one two three", true)
	boom := errors.New("classifier down")
	s := New(rand.New(rand.NewSource(1)))

	_, err := s.Sample(context.Background(), doc, func(ctx context.Context, texts []string) ([][]float64, error) {
		return nil, boom
	}, 5)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the classifier error", err)
	}
}

func TestCosineDistance(t *testing.T) {
	cases := []struct {
		a, b []float64
		want float64
	}{
		{[]float64{1, 1, 1, 1}, []float64{1, 1, 1, 1}, 0},
		{[]float64{1, 1, 1, 1}, []float64{1, 1, 0, 0}, 1 - 1/math.Sqrt2},
		{[]float64{1, 0}, []float64{0, 1}, 1},
		{[]float64{1, 1}, []float64{0, 0}, 1},
	}

	for _, c := range cases {
		got := CosineDistance(c.a, c.b)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("CosineDistance(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}

	// Identical vectors must come out exactly zero, not epsilon-close.
	same := []float64{1, 1, 1, 1, 1, 1, 1}
	if d := CosineDistance(same, same); d != 0 {
		t.Errorf("self distance = %v, want exactly 0", d)
	}
}
