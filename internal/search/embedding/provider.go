// Package embedding turns query text into normalised vectors. A nil Provider
// means the capability is absent; callers branch on that instead of failing.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable is returned whenever a vector cannot be produced, whatever
// the underlying cause.
var ErrUnavailable = errors.New("embedding provider unavailable")

type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Normalize scales v to unit L2 length. It reports false for a zero or
// non-finite vector.
func Normalize(v []float64) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, false
		}
		sum += x * x
	}
	if sum == 0 {
		return nil, false
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out, true
}
