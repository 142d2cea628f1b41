package cli

import (
	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/cpanmeta/pkg/io"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// renderCommand creates the render command, which re-renders a JSON report
// written by "resolve --format json".
func (c *CLI) renderCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		reduce   bool
	)

	cmd := &cobra.Command{
		Use:   "render <report.json>",
		Short: "Render a saved JSON report as text, DOT or SVG",
		Example: `  cpanmeta resolve ./repo -r -f json -o report.json
  cpanmeta render report.json -f svg -o deps.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			report, err := pkgio.ImportJSON(args[0])
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("report loaded", "path", args[0], "generator", report.Generator, "results", len(report.Results))

			if reduce {
				for _, r := range report.Results {
					r.Sources = pipeline.ReduceSources(r.Sources)
				}
			}
			return writeOutput(cmd.Context(), output, format, report.Results, detailed)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatSVG, "output format: json, text, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show versions and origins in dot/svg output")
	cmd.Flags().BoolVar(&reduce, "reduce", false, "collapse the records of each directory into one")

	return cmd
}
