// Package quant implements the three quantization operations the HNSW
// engine needs: L2 normalization, asymmetric u8 encoding for the
// database-side quantized arena, and i8 encoding for query vectors.
//
// The asymmetric u8/i8 split (rather than a trained min/max range per
// the teacher's original ScalarQuantizer) is required so the coarse
// search path can use an unsigned*signed SIMD dot product kernel
// (internal/simd.NegDotU8) instead of a signed*signed one.
package quant

import "math"

const epsilon = 1e-12

// NormL2 computes the L2 norm of v.
func NormL2(v []float32) float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sumSq))
}

// Normalize scales v to unit L2 norm. If ||v||^2 <= epsilon, v is
// returned unchanged (the zero vector stays zero) rather than dividing
// by a near-zero norm.
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq <= epsilon {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	invNorm := float32(1.0 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * invNorm
	}
	return out
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// QuantizeDB maps a normalized vector's components from [-1, 1] to
// [0, 255]: q = round(clamp(x, -1, 1) * 127.5 + 127.5).
func QuantizeDB(normalized []float32) []uint8 {
	out := make([]uint8, len(normalized))
	for i, x := range normalized {
		c := clamp(x, -1, 1)
		scaled := c*127.5 + 127.5
		out[i] = uint8(math.Round(float64(scaled)))
	}
	return out
}

// QuantizeQuery normalizes v and maps its components from [-1, 1] to
// [-127, 127]: q = round(clamp(x, -1, 1) * 127).
func QuantizeQuery(v []float32) []int8 {
	out := make([]int8, len(v))
	QuantizeQueryInto(out, v)
	return out
}

// QuantizeQueryInto is QuantizeQuery without the allocation, for callers
// (the searcher's per-query scratch) that already hold a reusable
// destination buffer of the right length.
func QuantizeQueryInto(dst []int8, v []float32) {
	normalized := Normalize(v)
	for i, x := range normalized {
		c := clamp(x, -1, 1)
		scaled := c * 127
		dst[i] = int8(math.Round(float64(scaled)))
	}
}
