package surrogate

import (
	"math"
	"testing"
)

func TestExponentialKernel(t *testing.T) {
	if got := ExponentialKernel(0, 25); got != 1 {
		t.Errorf("kernel(0) = %v, want 1", got)
	}

	// sqrt(exp(-(d/w)^2)) at d == w is sqrt(1/e).
	want := math.Sqrt(math.Exp(-1))
	if got := ExponentialKernel(25, 25); math.Abs(got-want) > 1e-12 {
		t.Errorf("kernel(width) = %v, want %v", got, want)
	}

	prev := math.Inf(1)
	for d := 0.0; d <= 100; d += 5 {
		w := ExponentialKernel(d, 25)
		if w >= prev && d > 0 {
			t.Fatalf("kernel not strictly decreasing at d=%v", d)
		}
		if w < 0 || w > 1 {
			t.Fatalf("kernel(%v) = %v, want within [0, 1]", d, w)
		}
		prev = w
	}
}
