package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cpanmeta/pkg/deps/perl"
)

// discoverCommand creates the discover command.
func (c *CLI) discoverCommand() *cobra.Command {
	var (
		recursive bool
		ignore    []string
	)

	cmd := &cobra.Command{
		Use:   "discover [dir]",
		Short: "List the build files a resolution would process",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if !cmd.Flags().Changed("recursive") {
				recursive = c.Config.Resolve.Recursive
			}
			ignore = append(append([]string{}, c.Config.Resolve.IgnoreFiles...), ignore...)

			files, err := perl.Discover(dir, perl.DiscoverOptions{Recursive: recursive, Ignore: ignore})
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("discovered build files", "dir", dir, "count", len(files))

			out := cmd.OutOrStdout()
			for _, f := range files {
				kind := perl.Classify(filepath.Base(f))
				fmt.Fprintf(out, "%-12s %s\n", kind, f)
			}
			if len(files) == 0 {
				printInfo("No build files found in %s", dir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "scan subdirectories")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "skip build files whose relative path contains this (repeatable)")

	return cmd
}
