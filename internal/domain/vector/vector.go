// Package vector holds similarity math and the embedding wire format.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Mismatched lengths, empty inputs and zero-norm vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return max(-1, min(1, s))
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	n := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Encode renders v as an ordered JSON array of numbers.
func Encode(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(b), nil
}

// Parse decodes a JSON array of numbers. Empty arrays and non-finite values are rejected.
func Parse(s string) ([]float32, error) {
	var raw []float64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse embedding: empty array")
	}
	out := make([]float32, len(raw))
	for i, x := range raw {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("parse embedding: non-finite value at %d", i)
		}
		out[i] = float32(x)
	}
	return out, nil
}
