package similarity

import (
	"cmp"
	"math"
	"slices"

	"github.com/personamatch/engine/internal/personality"
)

type options struct {
	useWeights bool
	removeBias bool
}

// Option configures CalculateMatchingScore.
type Option func(*options)

// WithWeights toggles dimension weighting (default on).
func WithWeights(on bool) Option {
	return func(o *options) { o.useWeights = on }
}

// WithBiasRemoval toggles mean-centring and min-max rescaling (default on).
func WithBiasRemoval(on bool) Option {
	return func(o *options) { o.removeBias = on }
}

// CalculateMatchingScore returns a 0-100 similarity between two personality
// vectors. Scores are taken in vector order, optionally weighted, optionally
// bias-normalized, then compared by cosine similarity.
func CalculateMatchingScore(a, b personality.Vector, opts ...Option) (int, error) {
	o := options{useWeights: true, removeBias: true}
	for _, fn := range opts {
		fn(&o)
	}

	va, vb := a.Scores(), b.Scores()
	if o.useWeights {
		va, vb = ApplyWeights(a), ApplyWeights(b)
	}
	if o.removeBias {
		va, vb = RemoveBias(va), RemoveBias(vb)
	}

	sim, err := CosineSimilarity(va, vb)
	if err != nil {
		return 0, err
	}

	score := int(math.Round(sim * 100))
	return min(max(score, 0), 100), nil
}

// Candidate is a user considered for matching.
type Candidate struct {
	ID         string
	Data       personality.Vector
	Similarity int
}

// SortUsersByMatchingScore scores every candidate against current with
// default options and returns a new slice ordered by descending similarity.
// Candidates whose vector cannot be compared score 0.
func SortUsersByMatchingScore(users []Candidate, current personality.Vector) []Candidate {
	out := make([]Candidate, len(users))
	for i, u := range users {
		score, err := CalculateMatchingScore(current, u.Data)
		if err != nil {
			score = 0
		}
		u.Similarity = score
		out[i] = u
	}

	slices.SortStableFunc(out, func(x, y Candidate) int {
		return cmp.Compare(y.Similarity, x.Similarity)
	})
	return out
}
