package similarity

// Grade is the display grade of a matching score.
type Grade struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Emoji string `json:"emoji"`
}

// GetMatchingGrade maps a 0-100 matching score to its display grade.
// score >= 90 → perfect
// score >= 80 → great
// score >= 70 → good
// score >= 60 → fair
// otherwise  → low
func GetMatchingGrade(score int) Grade {
	switch {
	case score >= 90:
		return Grade{Label: "Perfect match", Color: "#10B981", Emoji: "💕"}
	case score >= 80:
		return Grade{Label: "Great match", Color: "#3B82F6", Emoji: "💙"}
	case score >= 70:
		return Grade{Label: "Good match", Color: "#8B5CF6", Emoji: "💜"}
	case score >= 60:
		return Grade{Label: "Fair match", Color: "#F59E0B", Emoji: "🧡"}
	default:
		return Grade{Label: "Worth exploring", Color: "#6B7280", Emoji: "🤍"}
	}
}
