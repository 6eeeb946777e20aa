// Package advisor asks an LLM for free-form relationship advice grounded in a
// compatibility report.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/internal/compat"
	"github.com/personamatch/engine/internal/llm"
)

const systemPrompt = `You are a warm, practical relationship coach for a personality-based matching app.
You receive a compatibility breakdown of two people across six personality dimensions.
Reply with a single JSON object: {"summary": string, "tips": [string], "date_ideas": [string]}.
Keep the summary under 80 words and give at most 3 tips and 3 date ideas.
Never diagnose, never mention raw scores, and write in the language requested.`

// Advice is the generated guidance.
type Advice struct {
	Summary   string   `json:"summary"`
	Tips      []string `json:"tips"`
	DateIdeas []string `json:"date_ideas"`
}

// Request names the two people and the output language.
type Request struct {
	NameA    string
	NameB    string
	Language string
}

// Generator turns compatibility reports into LLM advice. It is stateless.
type Generator struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// NewGenerator creates a Generator backed by provider.
func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider, temperature: 0.7, maxTokens: 600}
}

// Generate asks the provider for advice about report.
func (g *Generator) Generate(ctx context.Context, report *compat.Report, req Request) (*Advice, error) {
	if report == nil {
		return nil, goerr.New("advisor: report is required")
	}

	resp, err := g.provider.Complete(ctx, &llm.CompletionRequest{
		Model:        g.provider.DefaultModel(),
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: BuildPrompt(report, req)}},
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
		JSONMode:     true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "advisor: completion failed", goerr.V("provider", g.provider.Name()))
	}

	return parseAdvice(resp.Content)
}

// BuildPrompt renders report as the user message sent to the provider.
func BuildPrompt(report *compat.Report, req Request) string {
	nameA, nameB := req.NameA, req.NameB
	if nameA == "" {
		nameA = "Person A"
	}
	if nameB == "" {
		nameB = "Person B"
	}
	lang := req.Language
	if lang == "" {
		lang = "English"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "People: %s and %s\n", nameA, nameB)
	fmt.Fprintf(&b, "Overall compatibility: %d/100\n", report.OverallScore)
	b.WriteString("Dimensions:\n")
	for _, d := range report.Dimensions {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", d.Name, d.Tier, d.Insight)
	}
	if len(report.Advice.CommonGround) > 0 {
		fmt.Fprintf(&b, "Common ground: %s\n", strings.Join(report.Advice.CommonGround, " "))
	}
	if len(report.Advice.Differences) > 0 {
		fmt.Fprintf(&b, "Differences: %s\n", strings.Join(report.Advice.Differences, " "))
	}
	fmt.Fprintf(&b, "Answer in %s.", lang)
	return b.String()
}

// parseAdvice accepts the JSON object either bare or inside a fenced block.
func parseAdvice(content string) (*Advice, error) {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}

	var adv Advice
	if err := json.Unmarshal([]byte(s), &adv); err != nil {
		return nil, goerr.Wrap(err, "advisor: invalid JSON from provider", goerr.V("content", content))
	}
	if adv.Summary == "" {
		return nil, goerr.New("advisor: empty summary from provider")
	}
	if adv.Tips == nil {
		adv.Tips = []string{}
	}
	if adv.DateIdeas == nil {
		adv.DateIdeas = []string{}
	}
	return &adv, nil
}
