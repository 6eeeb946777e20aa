// Package compat explains the compatibility of two users dimension by
// dimension. It uses a linear per-dimension similarity and is independent of
// the cosine matching score in package similarity.
package compat

import (
	"math"

	"github.com/personamatch/engine/internal/personality"
)

// DimensionResult is the comparison of two users on one dimension.
type DimensionResult struct {
	Dimension  personality.Dimension `json:"-"`
	Key        string                `json:"key"`
	Name       string                `json:"dimension"`
	Icon       string                `json:"icon"`
	ScoreA     float64               `json:"scoreA"`
	ScoreB     float64               `json:"scoreB"`
	Similarity float64               `json:"similarity"`
	Difference float64               `json:"difference"`
	Tier       Tier                  `json:"level"`
	TierLabel  string                `json:"label"`
	TierColor  string                `json:"color"`
	Insight    string                `json:"insight"`
}

// Advice is the relationship guidance derived from the tier distribution.
type Advice struct {
	CommonGround []string `json:"commonGround"`
	Differences  []string `json:"differences"`
	Activities   []string `json:"activities"`
}

// Report is the full compatibility breakdown of two users.
type Report struct {
	OverallScore  int               `json:"overallScore"`
	Dimensions    []DimensionResult `json:"dimensions"`
	Strengths     []DimensionResult `json:"strengths"`
	Complementary []DimensionResult `json:"complementary"`
	Advice        Advice            `json:"advice"`
}

type dimensionSpec struct {
	dimension personality.Dimension
	icon      string
	weight    float64
}

// analysisOrder is the fixed order in which dimensions are reported.
var analysisOrder = []dimensionSpec{
	{dimension: personality.Openness, icon: "🎨", weight: 1.2},
	{dimension: personality.Conscientiousness, icon: "📋", weight: 1.0},
	{dimension: personality.Extraversion, icon: "🎉", weight: 1.3},
	{dimension: personality.Agreeableness, icon: "🤝", weight: 1.4},
	{dimension: personality.HonestyHumility, icon: "💎", weight: 1.1},
	{dimension: personality.Neuroticism, icon: "🌊", weight: 0.8},
}

// AnalyzeCompatibility builds a compatibility report for two users, labelled
// in English. It returns nil when either vector is empty.
func AnalyzeCompatibility(a, b personality.Vector) *Report {
	return AnalyzeCompatibilityLocale(a, b, personality.LocaleEN)
}

// AnalyzeCompatibilityLocale is AnalyzeCompatibility with dimension names in
// the given display locale. Dimensions missing from either vector are
// skipped.
func AnalyzeCompatibilityLocale(a, b personality.Vector, locale string) *Report {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	r := &Report{
		Dimensions:    []DimensionResult{},
		Strengths:     []DimensionResult{},
		Complementary: []DimensionResult{},
	}

	var weighted, totalWeight float64
	for _, spec := range analysisOrder {
		scoreA, okA := a.Score(spec.dimension)
		scoreB, okB := b.Score(spec.dimension)
		if !okA || !okB {
			continue
		}

		diff := math.Abs(scoreA - scoreB)
		// Floored so unclamped inputs still yield a 0-100 similarity.
		sim := max(100-diff, 0)
		tier := ClassifyTier(sim)

		res := DimensionResult{
			Dimension:  spec.dimension,
			Key:        spec.dimension.String(),
			Name:       spec.dimension.Label(locale),
			Icon:       spec.icon,
			ScoreA:     scoreA,
			ScoreB:     scoreB,
			Similarity: sim,
			Difference: diff,
			Tier:       tier,
			TierLabel:  tier.Label(),
			TierColor:  tier.Color(),
			Insight:    Insight(spec.dimension, sim),
		}
		r.Dimensions = append(r.Dimensions, res)
		if tier.IsStrength() {
			r.Strengths = append(r.Strengths, res)
		} else {
			r.Complementary = append(r.Complementary, res)
		}

		weighted += sim * spec.weight
		totalWeight += spec.weight
	}

	if totalWeight > 0 {
		r.OverallScore = int(math.Round(weighted / totalWeight))
	}
	r.Advice = buildAdvice(r.Strengths, r.Complementary)
	return r
}
