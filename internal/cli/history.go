package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// historyCommand creates the history command for results saved with --save.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved resolution results",
	}
	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	return cmd
}

func (c *CLI) historyListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List saved results, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var dir string
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				dir = abs
			}

			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := st.List(ctx, dir, limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				printInfo("No saved results")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), historyTable(results))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

func historyTable(results []*pipeline.Result) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.ID,
			r.ResolvedAt.Local().Format(time.DateTime),
			r.Dir,
			fmt.Sprintf("%d", r.Stats.SourceCount),
			fmt.Sprintf("%d", r.Stats.DependencyCount),
			fmt.Sprintf("%d", len(r.Failures)),
		}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleDim).
		Headers("ID", "RESOLVED", "DIR", "RECORDS", "DEPS", "FAILURES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleTitle
			}
			return lipgloss.NewStyle()
		}).
		String()
}

func (c *CLI) historyShowCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}

			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("no saved result with ID %s", args[0])
			}
			return writeOutput(ctx, output, format, []*pipeline.Result{res}, detailed)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatText, "output format: json, text, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show versions and origins in dot/svg output")
	return cmd
}
