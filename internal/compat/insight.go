package compat

import "github.com/personamatch/engine/internal/personality"

type level int

const (
	levelLow level = iota
	levelMedium
	levelHigh
)

// insightLevel selects the text band for a similarity. These bands are
// separate from the tier thresholds.
func insightLevel(similarity float64) level {
	switch {
	case similarity >= 75:
		return levelHigh
	case similarity >= 50:
		return levelMedium
	default:
		return levelLow
	}
}

const genericInsight = "Every difference is a chance to learn something new about each other."

var insights = map[personality.Dimension]map[level]string{
	personality.Openness: {
		levelHigh:   "You share a similar curiosity and will enjoy exploring new ideas and experiences together.",
		levelMedium: "Your appetite for novelty overlaps enough to inspire each other without pulling apart.",
		levelLow:    "One of you seeks the new while the other values the familiar; together you can balance adventure and stability.",
	},
	personality.Conscientiousness: {
		levelHigh:   "You approach plans and commitments the same way, which makes shared goals easy to keep.",
		levelMedium: "Your sense of structure is close enough that small adjustments keep things running smoothly.",
		levelLow:    "One of you plans ahead while the other goes with the flow; agreeing on expectations early helps.",
	},
	personality.Extraversion: {
		levelHigh:   "You recharge in similar ways, so finding the right mix of social time and downtime comes naturally.",
		levelMedium: "Your social energy is compatible, with room for each of you to enjoy your own pace.",
		levelLow:    "One of you draws energy from people while the other recharges alone; respecting that rhythm matters.",
	},
	personality.Agreeableness: {
		levelHigh:   "You both value warmth and cooperation, which lays a strong foundation of mutual care.",
		levelMedium: "You can usually find common ground, and honest conversations deepen your trust.",
		levelLow:    "You handle conflict differently; patience and clear communication will strengthen your bond.",
	},
	personality.Neuroticism: {
		levelHigh:   "You react to stress in similar ways and can easily understand each other's emotional needs.",
		levelMedium: "Your emotional responses differ a little, which helps you support each other in different moods.",
		levelLow:    "One of you is steadier under pressure and can offer calm when the other needs it.",
	},
	personality.HonestyHumility: {
		levelHigh:   "You share the same values about honesty and fairness, a solid basis for deep trust.",
		levelMedium: "Your values line up in most situations, leaving room for respectful discussion.",
		levelLow:    "You weigh sincerity and ambition differently; talking openly about values builds trust.",
	},
}

// Insight returns the canned sentence for dimension d at the given
// similarity, or a generic sentence when the table has no entry.
func Insight(d personality.Dimension, similarity float64) string {
	byLevel, ok := insights[d]
	if !ok {
		return genericInsight
	}
	text, ok := byLevel[insightLevel(similarity)]
	if !ok {
		return genericInsight
	}
	return text
}
