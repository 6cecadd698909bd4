package main

import (
	"fmt"

	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (c *cli) newTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Validate or print taxonomy documents.",
	}

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a taxonomy document for authoring problems.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.v.GetString("taxonomy")
			if len(args) == 1 {
				path = args[0]
			}
			tax, err := services.LoadTaxonomySeed(path)
			if err != nil {
				return err
			}
			return reportProblems(cmd, tax)
		},
	}

	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print a taxonomy as YAML.",
		Long:  "Print the seed taxonomy, or with --version a version published to the record store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tax, err := c.seed()
			if err != nil {
				return err
			}
			if v := c.v.GetInt("version"); v > 0 {
				rt, err := c.open(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer rt.close()
				if tax, err = rt.taxonomy.Version(cmd.Context(), v); err != nil {
					return err
				}
			}
			data, err := tax.MarshalYAMLDocument()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	dump.Flags().Int("version", 0, "published version to print")

	cmd.AddCommand(validate, dump)
	return cmd
}

func reportProblems(cmd *cobra.Command, tax *scoring.Taxonomy) error {
	out := cmd.OutOrStdout()
	problems := tax.Validate()
	if len(problems) == 0 {
		_, err := fmt.Fprintf(out, "%s taxonomy v%d, %d categories\n", color.GreenString("OK"), tax.Version, len(tax.Categories))
		return err
	}
	red := color.New(color.FgRed).SprintFunc()
	for _, p := range problems {
		fmt.Fprintf(out, "%s %s\n", red("✗"), p)
	}
	return fmt.Errorf("%d problem(s) found", len(problems))
}
