package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/personamatch/engine/internal/advisor"
	"github.com/personamatch/engine/internal/compat"
	"github.com/personamatch/engine/internal/personality"
	"github.com/personamatch/engine/internal/report"
	"github.com/personamatch/engine/internal/similarity"
)

// profileFile is the on-disk form of a user for the score and report
// commands. A bare JSON array of records is also accepted.
type profileFile struct {
	Name   string               `json:"name"`
	Traits []personality.Record `json:"traits"`
}

func readProfile(path string) (string, personality.Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, goerr.Wrap(err, "read profile", goerr.V("path", path))
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []personality.Record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return "", nil, goerr.Wrap(err, "parse profile", goerr.V("path", path))
		}
		return name, personality.ParseVector(recs), nil
	}

	var pf profileFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return "", nil, goerr.Wrap(err, "parse profile", goerr.V("path", path))
	}
	if pf.Name != "" {
		name = pf.Name
	}
	return name, personality.ParseVector(pf.Traits), nil
}

func newScoreCmd(a *app) *cobra.Command {
	var noWeights, noBias bool

	cmd := &cobra.Command{
		Use:   "score <a.json> <b.json>",
		Short: "Print the matching score of two profiles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, va, err := readProfile(args[0])
			if err != nil {
				return err
			}
			_, vb, err := readProfile(args[1])
			if err != nil {
				return err
			}

			score, err := similarity.CalculateMatchingScore(va, vb,
				similarity.WithWeights(!noWeights),
				similarity.WithBiasRemoval(!noBias),
			)
			if err != nil {
				return goerr.Wrap(err, "cannot score profiles", goerr.V("a", args[0]), goerr.V("b", args[1]))
			}
			grade := similarity.GetMatchingGrade(score)
			a.logger.Debug("scored pair", "a", args[0], "b", args[1], "score", score)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s\n", score, grade.Emoji, grade.Label)
			return err
		},
	}
	cmd.Flags().BoolVar(&noWeights, "no-weights", false, "disable dimension weights")
	cmd.Flags().BoolVar(&noBias, "no-bias-removal", false, "disable bias removal")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		format     string
		locale     string
		withAdvice bool
	)

	cmd := &cobra.Command{
		Use:   "report <a.json> <b.json>",
		Short: "Render a compatibility report for two profiles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "markdown" && format != "json" {
				return goerr.New("unsupported format", goerr.V("format", format))
			}

			nameA, va, err := readProfile(args[0])
			if err != nil {
				return err
			}
			nameB, vb, err := readProfile(args[1])
			if err != nil {
				return err
			}

			c := compat.AnalyzeCompatibilityLocale(va, vb, locale)
			if c == nil {
				return goerr.New("both profiles need at least one trait")
			}
			score, err := similarity.CalculateMatchingScore(va, vb)
			if err != nil {
				a.logger.Warn("matching score unavailable", "reason", err.Error())
				score = 0
			}

			pr := &report.PairReport{
				NameA:         nameA,
				NameB:         nameB,
				RunAt:         time.Now(),
				MatchingScore: score,
				Compatibility: c,
			}

			if withAdvice {
				gen, err := newAdvisor(a.cfg.LLM)
				if err != nil {
					return err
				}
				if gen == nil {
					return goerr.New("--advice needs llm.provider to be configured")
				}
				lang := ""
				if locale == personality.LocaleKO {
					lang = "Korean"
				}
				pr.Coaching, err = gen.Generate(cmd.Context(), c, advisor.Request{NameA: nameA, NameB: nameB, Language: lang})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				data, err := report.GenerateJSON(pr)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			return report.GenerateMarkdown(out, pr)
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or json")
	cmd.Flags().StringVar(&locale, "locale", personality.LocaleEN, "dimension label locale: en or ko")
	cmd.Flags().BoolVar(&withAdvice, "advice", false, "add LLM coaching (requires llm.provider)")
	return cmd
}
