package similarity

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/personamatch/engine/internal/personality"
)

// ApplyWeights multiplies each trait score by its dimension weight,
// preserving order. Unknown dimensions weigh 1.0.
func ApplyWeights(v personality.Vector) []float64 {
	out := make([]float64, len(v))
	for i, t := range v {
		out[i] = t.Score * personality.Weight(t.Dimension)
	}
	return out
}

// RemoveBias mean-centres v and rescales it to [0, 1]. A vector whose values
// are all equal maps to 0.5 everywhere.
func RemoveBias(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}

	mean := stat.Mean(v, nil)
	for i, x := range v {
		out[i] = x - mean
	}

	lo, hi := floats.Min(out), floats.Max(out)
	span := hi - lo
	if span == 0 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	for i, x := range out {
		out[i] = (x - lo) / span
	}
	return out
}
