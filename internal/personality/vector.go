package personality

// Score bounds used when clamping at ingestion.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Trait is one scored dimension of a personality vector. Label keeps the raw
// dimension string as supplied by the caller.
type Trait struct {
	Dimension Dimension
	Label     string
	Score     float64
}

// Record is the wire form of a trait.
type Record struct {
	Dimension string  `json:"dimension"`
	Score     float64 `json:"score"`
}

// Vector is an ordered list of traits.
type Vector []Trait

// dimensionWeights is read-only after init.
var dimensionWeights = map[Dimension]float64{
	Openness:          1.2,
	Conscientiousness: 1.0,
	Extraversion:      1.3,
	Agreeableness:     1.4,
	Neuroticism:       0.8,
	HonestyHumility:   1.1,
}

// Weight returns the matching weight of d, or 1.0 for unknown dimensions.
func Weight(d Dimension) float64 {
	if w, ok := dimensionWeights[d]; ok {
		return w
	}
	return 1.0
}

// Clamp bounds a raw score to [MinScore, MaxScore].
func Clamp(score float64) float64 {
	return min(max(score, MinScore), MaxScore)
}

// ParseVector converts wire records into a Vector, clamping every score.
// Unrecognised dimension labels are kept as Unknown traits.
func ParseVector(records []Record) Vector {
	v := make(Vector, 0, len(records))
	for _, r := range records {
		d, ok := ParseDimension(r.Dimension)
		if !ok {
			d = Unknown
		}
		v = append(v, Trait{Dimension: d, Label: r.Dimension, Score: Clamp(r.Score)})
	}
	return v
}

// New builds a Vector in canonical dimension order from scores keyed by
// dimension. Missing dimensions are omitted.
func New(scores map[Dimension]float64) Vector {
	v := make(Vector, 0, len(Dimensions))
	for _, d := range Dimensions {
		s, ok := scores[d]
		if !ok {
			continue
		}
		v = append(v, Trait{Dimension: d, Label: d.Label(LocaleEN), Score: s})
	}
	return v
}

// Records converts v back to wire records, using the original labels.
func (v Vector) Records() []Record {
	out := make([]Record, len(v))
	for i, t := range v {
		label := t.Label
		if label == "" {
			label = t.Dimension.Label(LocaleEN)
		}
		out[i] = Record{Dimension: label, Score: t.Score}
	}
	return out
}

// Scores strips the labels, preserving order.
func (v Vector) Scores() []float64 {
	out := make([]float64, len(v))
	for i, t := range v {
		out[i] = t.Score
	}
	return out
}

// Score returns the score for d. The first matching trait wins.
func (v Vector) Score(d Dimension) (float64, bool) {
	if d == Unknown {
		return 0, false
	}
	for _, t := range v {
		if t.Dimension == d {
			return t.Score, true
		}
	}
	return 0, false
}
