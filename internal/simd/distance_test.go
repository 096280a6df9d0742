package simd

import (
	"math"
	"math/rand"
	"testing"
)

const epsilon = 1e-3

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < epsilon
}

func TestL2ScalarBasic(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit offset", []float32{0, 0, 0}, []float32{1, 0, 0}, 1},
		{"3-4-5 triangle", []float32{0, 0}, []float32{3, 4}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := L2Scalar(tt.a, tt.b)
			if !almostEqual(got, tt.expected) {
				t.Errorf("L2Scalar(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestL2DispatchedMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dim := 128

	a := make([]float32, dim)
	b := make([]float32, dim)
	for i := range a {
		a[i] = rng.Float32()*2 - 1
		b[i] = rng.Float32()*2 - 1
	}

	want := L2Scalar(a, b)
	got := L2(a, b)

	if !almostEqual(got, want) {
		t.Errorf("dispatched L2 = %f, scalar L2 = %f", got, want)
	}
}

func TestNegDotU8ScalarBasic(t *testing.T) {
	q := []int8{1, 1, 1, 1}
	v := []uint8{1, 2, 3, 4}

	// dot = 1+2+3+4 = 10, negated = -10
	got := NegDotU8Scalar(q, v)
	if got != -10 {
		t.Errorf("expected -10, got %f", got)
	}
}

func TestNegDotU8DispatchedMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	dim := 256

	q := make([]int8, dim)
	v := make([]uint8, dim)
	for i := range q {
		q[i] = int8(rng.Intn(255) - 127)
		v[i] = uint8(rng.Intn(256))
	}

	want := NegDotU8Scalar(q, v)
	got := NegDotU8(q, v)

	if want != got {
		t.Errorf("dispatched neg_dot_u8 = %f, scalar = %f", got, want)
	}
}

func TestNegDotU8UnrolledMatchesScalarAcrossLengths(t *testing.T) {
	rng := rand.New(rand.NewSource(13))

	for _, n := range []int{0, 1, 31, 32, 127, 128, 129, 300, 512} {
		q := make([]int8, n)
		v := make([]uint8, n)
		for i := range q {
			q[i] = int8(rng.Intn(255) - 127)
			v[i] = uint8(rng.Intn(256))
		}

		want := NegDotU8Scalar(q, v)
		got := negDotU8Unrolled(q, v)

		if want != got {
			t.Errorf("n=%d: unrolled = %f, scalar = %f", n, got, want)
		}
	}
}

func TestDispatchCachedOnce(t *testing.T) {
	// L2 and NegDotU8 are assigned once at init; calling L2 twice on the
	// same input must return the same value.
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	first := L2(a, b)
	second := L2(a, b)
	if first != second {
		t.Errorf("dispatched kernel is not deterministic: %f vs %f", first, second)
	}
}
