// Package report renders pair reports for humans and machines.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/personamatch/engine/internal/advisor"
	"github.com/personamatch/engine/internal/compat"
	"github.com/personamatch/engine/internal/similarity"
)

// PairReport is everything known about one pair of users.
type PairReport struct {
	Title         string
	NameA         string
	NameB         string
	RunAt         time.Time
	MatchingScore int
	Compatibility *compat.Report
	Coaching      *advisor.Advice
}

// GenerateMarkdown writes a Markdown-formatted report to w.
func GenerateMarkdown(w io.Writer, r *PairReport) error {
	title := r.Title
	if title == "" {
		title = "Compatibility Report"
	}
	nameA, nameB := r.NameA, r.NameB
	if nameA == "" {
		nameA = "A"
	}
	if nameB == "" {
		nameB = "B"
	}

	if _, err := fmt.Fprintf(w, "## %s\n\n", title); err != nil {
		return err
	}
	if !r.RunAt.IsZero() {
		if _, err := fmt.Fprintf(w, "**Run at:** %s\n\n", r.RunAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	grade := similarity.GetMatchingGrade(r.MatchingScore)
	if _, err := fmt.Fprintf(w, "**Matching score:** %d %s %s\n\n", r.MatchingScore, grade.Emoji, grade.Label); err != nil {
		return err
	}

	c := r.Compatibility
	if c == nil || len(c.Dimensions) == 0 {
		_, err := fmt.Fprintln(w, "_No shared dimensions to compare._")
		return err
	}

	if _, err := fmt.Fprintf(w, "**Compatibility:** %d/100\n\n", c.OverallScore); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "| Dimension | %s | %s | Similarity | Level |\n", escape(nameA), escape(nameB)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|-----------|---|---|------------|-------|"); err != nil {
		return err
	}
	for _, d := range c.Dimensions {
		if _, err := fmt.Fprintf(w, "| %s %s | %.0f | %.0f | %.0f | %s |\n",
			d.Icon, escape(d.Name), d.ScoreA, d.ScoreB, d.Similarity, d.TierLabel); err != nil {
			return err
		}
	}

	if err := bulletSection(w, "Strengths", names(c.Strengths)); err != nil {
		return err
	}
	if err := bulletSection(w, "Complementary", names(c.Complementary)); err != nil {
		return err
	}
	if err := bulletSection(w, "Common ground", c.Advice.CommonGround); err != nil {
		return err
	}
	if err := bulletSection(w, "Watch out for", c.Advice.Differences); err != nil {
		return err
	}
	if err := bulletSection(w, "Things to try", c.Advice.Activities); err != nil {
		return err
	}

	if r.Coaching != nil {
		if _, err := fmt.Fprintf(w, "\n### Coaching\n\n%s\n", r.Coaching.Summary); err != nil {
			return err
		}
		if err := bulletSection(w, "Tips", r.Coaching.Tips); err != nil {
			return err
		}
		if err := bulletSection(w, "Date ideas", r.Coaching.DateIdeas); err != nil {
			return err
		}
	}
	return nil
}

func bulletSection(w io.Writer, heading string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n**%s**\n\n", heading); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := fmt.Fprintf(w, "- %s\n", it); err != nil {
			return err
		}
	}
	return nil
}

func names(ds []compat.DimensionResult) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Icon+" "+d.Name)
	}
	return out
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
