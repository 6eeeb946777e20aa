// Package similarity scores how closely two personality vectors point in the
// same direction and ranks candidates by that score.
package similarity

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned when vectors have different lengths.
var ErrLengthMismatch = errors.New("vectors must have the same length")

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value in [-1.0, 1.0], or exactly 0 when either vector has zero
// magnitude. Errors if lengths differ.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}

	magA := floats.Norm(a, 2)
	magB := floats.Norm(b, 2)
	if magA == 0 || magB == 0 {
		return 0, nil
	}

	return floats.Dot(a, b) / (magA * magB), nil
}
