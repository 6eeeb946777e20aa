package compat

// Tier is the qualitative closeness of two users on one dimension.
type Tier string

const (
	TierHigh          Tier = "high"
	TierMedium        Tier = "medium"
	TierComplementary Tier = "complementary"
	TierDifferent     Tier = "different"
)

// TierThresholds defines the lower similarity bound of each tier above
// TierDifferent.
type TierThresholds struct {
	High          float64
	Medium        float64
	Complementary float64
}

// DefaultTierThresholds are the fixed classification thresholds.
var DefaultTierThresholds = TierThresholds{High: 85, Medium: 65, Complementary: 45}

type tierStyle struct {
	label string
	color string
}

var tierStyles = map[Tier]tierStyle{
	TierHigh:          {label: "Very similar", color: "#10B981"},
	TierMedium:        {label: "Similar", color: "#3B82F6"},
	TierComplementary: {label: "Complementary", color: "#F59E0B"},
	TierDifferent:     {label: "Different", color: "#EF4444"},
}

// ClassifyTier maps a 0-100 similarity to a tier.
// similarity >= 85 → high
// similarity >= 65 → medium
// similarity >= 45 → complementary
// otherwise        → different
func ClassifyTier(similarity float64) Tier {
	switch {
	case similarity >= DefaultTierThresholds.High:
		return TierHigh
	case similarity >= DefaultTierThresholds.Medium:
		return TierMedium
	case similarity >= DefaultTierThresholds.Complementary:
		return TierComplementary
	default:
		return TierDifferent
	}
}

// Label returns the display label of t.
func (t Tier) Label() string { return tierStyles[t].label }

// Color returns the display color of t as a hex string.
func (t Tier) Color() string { return tierStyles[t].color }

// IsStrength reports whether t counts toward a report's strengths.
func (t Tier) IsStrength() bool {
	return t == TierHigh || t == TierMedium
}
