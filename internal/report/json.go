package report

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/internal/advisor"
	"github.com/personamatch/engine/internal/compat"
	"github.com/personamatch/engine/internal/similarity"
)

const reportVersion = "1.0"

// JSONReport is the machine-readable form of a pair report.
type JSONReport struct {
	Version       string           `json:"version"`
	Timestamp     string           `json:"timestamp"`
	MatchingScore int              `json:"matching_score"`
	Grade         similarity.Grade `json:"grade"`
	Compatibility *compat.Report   `json:"compatibility"`
	Coaching      *advisor.Advice  `json:"coaching,omitempty"`
}

// GenerateJSON renders pr as indented JSON.
func GenerateJSON(pr *PairReport) ([]byte, error) {
	if pr == nil || pr.Compatibility == nil {
		return nil, goerr.New("report: compatibility report is required")
	}

	runAt := pr.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}

	out, err := json.MarshalIndent(JSONReport{
		Version:       reportVersion,
		Timestamp:     runAt.UTC().Format(time.RFC3339),
		MatchingScore: pr.MatchingScore,
		Grade:         similarity.GetMatchingGrade(pr.MatchingScore),
		Compatibility: pr.Compatibility,
		Coaching:      pr.Coaching,
	}, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal JSON report")
	}
	return out, nil
}
