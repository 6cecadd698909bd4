package main

import (
	"fmt"
	"io"
	"strings"

	"sustain_score_app_go/mcpserver"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func (c *cli) newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect stored project records.",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List project records, highest score first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := services.ProjectFilter{
				ProjectNumber: strings.TrimSpace(c.v.GetString("project-number")),
				Sort:          services.SortSpec{Field: "total_score", Desc: true},
			}
			if s := c.v.GetString("stage"); s != "" {
				stage, err := models.ParseProjectStage(s)
				if err != nil {
					return err
				}
				filter.Stage = stage
			}

			rt, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			projects, err := rt.projects.ListProjects(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeProjectTable(cmd.OutOrStdout(), projects)
		},
	}
	list.Flags().String("project-number", "", "only records for this project number")
	list.Flags().String("stage", "", "only records at this stage (Tender, Active, Complete)")

	cmd.AddCommand(list)
	return cmd
}

func writeProjectTable(w io.Writer, projects []models.Project) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, "No project records found")
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Reference", "Project", "Stage", "Owner", "Department", "Score", "Rating", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, p := range projects {
		rating := scoring.RatingFor(p.TotalScore)
		data = append(data, []string{
			p.Reference,
			p.ProjectName,
			string(p.ProjectStage),
			p.ProjectOwner,
			p.Department,
			fmt.Sprintf("%.2f", p.TotalScore),
			ratingColor(rating).Sprint(rating),
			p.Status,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d record(s)\n", len(projects))
	return err
}

func (c *cli) newReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Preview the reference a new record would receive.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			number := strings.TrimSpace(c.v.GetString("project-number"))
			if number == "" {
				return fmt.Errorf("--project-number is required")
			}
			stage, err := models.ParseProjectStage(c.v.GetString("stage"))
			if err != nil {
				return err
			}

			rt, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			ref, verr, err := rt.projects.PreviewReference(cmd.Context(), number, stage)
			if err != nil {
				return err
			}
			if verr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString(verr.Code), verr.Message)
				return verr
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ref)
			return err
		},
	}
	cmd.Flags().String("project-number", "", "project number, e.g. P100")
	cmd.Flags().String("stage", string(models.StageTender), "project stage")
	return cmd
}

func (c *cli) newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scoring tools to MCP clients over stdio.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer rt.close()
			mcpserver.Version = version
			return mcpserver.ServeStdio(rt.taxonomy, rt.projects)
		},
	}
}
