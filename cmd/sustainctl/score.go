package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// responseFile is the YAML document accepted by score:
//
//	responses:
//	  energy_efficiency_01: yes
//	summary_values:
//	  social_impact:
//	    community_engagement: 70
type responseFile struct {
	Responses     map[string]string             `yaml:"responses"`
	SummaryValues map[string]map[string]float64 `yaml:"summary_values"`
}

func (c *cli) newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a responses file against the taxonomy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := c.v.GetString("responses")
			if path == "" {
				return fmt.Errorf("--responses is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read responses: %w", err)
			}
			input, err := parseResponseFile(data)
			if err != nil {
				return err
			}
			tax, err := c.seed()
			if err != nil {
				return err
			}
			res, err := scoreInput(tax, input)
			if err != nil {
				return err
			}
			return writeScore(cmd.OutOrStdout(), res, c.v.GetString("output"))
		},
	}
	cmd.Flags().String("responses", "", "YAML file with responses and summary_values")
	cmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	return cmd
}

// parseResponseFile decodes a responses document. Every unrecognised answer
// is reported at once.
func parseResponseFile(data []byte) (scoring.Input, error) {
	var doc responseFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return scoring.Input{}, fmt.Errorf("invalid responses file: %w", err)
	}

	in := scoring.Input{Responses: scoring.Responses{}, Manual: scoring.SubCategoryValues{}}
	var bad []string
	for itemID, raw := range doc.Responses {
		r, err := scoring.ParseResponse(raw)
		if err != nil {
			bad = append(bad, itemID)
			continue
		}
		in.Responses[itemID] = r
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return scoring.Input{}, fmt.Errorf("invalid responses for %s", strings.Join(bad, ", "))
	}
	for catID, subs := range doc.SummaryValues {
		for subID, v := range subs {
			in.Manual.Set(catID, subID, v)
		}
	}
	return in, nil
}

// scoreInput validates answers and manual values and runs the engine with default priorities
func scoreInput(tax *scoring.Taxonomy, in scoring.Input) (*scoring.ScoreResult, error) {
	if errs := services.ValidateResponses(tax, in.Responses); len(errs) > 0 {
		return nil, errs.OrNil()
	}
	if errs := services.ValidateScores(tax, in.Manual); len(errs) > 0 {
		return nil, errs.OrNil()
	}
	in.Priorities = scoring.EffectivePriorities(tax, nil, false)
	return scoring.ComputeScore(tax, in), nil
}

func writeScore(w io.Writer, res *scoring.ScoreResult, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputTable, "":
		return writeScoreTable(w, res)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// writeScoreTable renders one row per sub-category followed by the total
func writeScoreTable(w io.Writer, res *scoring.ScoreResult) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Category", "Sub-category", "Weight", "Score", "Source", "Category Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, cat := range res.Categories {
		for i, sub := range cat.SubCategories {
			catName, catScore := "", ""
			if i == 0 {
				catName = cat.Name
				catScore = fmt.Sprintf("%.2f", cat.Score)
			}
			data = append(data, []string{
				catName,
				sub.Name,
				fmt.Sprintf("%g%%", sub.Weight),
				fmt.Sprintf("%.2f", sub.Score),
				string(sub.Source),
				catScore,
			})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	rating := ratingColor(res.Rating).SprintFunc()
	_, err := fmt.Fprintf(w, "Total score: %.2f (%s), taxonomy v%d\n", res.TotalScore, rating(res.Rating), res.TaxonomyVersion)
	return err
}

func ratingColor(r scoring.Rating) *color.Color {
	switch r {
	case scoring.RatingExcellent:
		return color.New(color.FgGreen, color.Bold)
	case scoring.RatingGood:
		return color.New(color.FgGreen)
	case scoring.RatingFair:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}
