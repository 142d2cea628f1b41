package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	recursive   bool
	ignore      []string
	ignoreDeps  []string
	files       bool
	reduce      bool
	format      string
	output      string
	detailed    bool
	noCache     bool
	refresh     bool
	offline     bool
	save        bool
	timeout     time.Duration
	concurrency int
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts

	cmd := &cobra.Command{
		Use:   "resolve [dir...]",
		Short: "Report the runtime requirements of Perl distributions",
		Long: `Resolve finds the build files in each directory, runs the Perl toolchain
where a static manifest is not enough and reports one record per package
description found.

Without arguments the current directory is resolved.`,
		Example: `  # Resolve the current distribution
  cpanmeta resolve

  # Scan a monorepo, skipping vendored code and core modules
  cpanmeta resolve ./repo --recursive --ignore vendor/ --ignore-dep perl

  # One record per directory, rendered as SVG
  cpanmeta resolve ./repo -r --reduce --format svg -o deps.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return c.runResolve(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "scan subdirectories")
	cmd.Flags().StringSliceVar(&opts.ignore, "ignore", nil, "skip build files whose relative path contains this (repeatable)")
	cmd.Flags().StringSliceVar(&opts.ignoreDeps, "ignore-dep", nil, "drop this dependency from every record (repeatable)")
	cmd.Flags().BoolVar(&opts.files, "files", false, "list the .pm and .pl files of each directory")
	cmd.Flags().BoolVar(&opts.reduce, "reduce", false, "collapse the records of each directory into one")
	cmd.Flags().StringVarP(&opts.format, "format", "f", pipeline.FormatText, "output format: json, text, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show versions and origins in dot/svg output")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results and store fresh ones")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "read static manifests only, never run perl or cpanm")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save results to the configured store")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "timeout for each tool run (default from config, 60s)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "directories resolved at once (default from config)")

	return cmd
}

// applyConfig fills options the user did not set from the config file.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *resolveOpts) error {
	cfg := c.Config
	if !cmd.Flags().Changed("recursive") {
		opts.recursive = cfg.Resolve.Recursive
	}
	opts.ignore = append(append([]string{}, cfg.Resolve.IgnoreFiles...), opts.ignore...)
	opts.ignoreDeps = append(append([]string{}, cfg.Resolve.IgnoreDeps...), opts.ignoreDeps...)
	if opts.concurrency == 0 {
		opts.concurrency = cfg.Resolve.Concurrency
	}
	if opts.timeout == 0 {
		d, err := cfg.toolTimeout()
		if err != nil {
			return err
		}
		opts.timeout = d
	}
	if opts.timeout < 0 {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "timeout must be positive")
	}
	return nil
}

func (o resolveOpts) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Recursive:       o.recursive,
		IgnoreFiles:     o.ignore,
		IgnoreDeps:      o.ignoreDeps,
		AssociatedFiles: o.files,
		Reduce:          o.reduce,
		Refresh:         o.refresh,
		Concurrency:     o.concurrency,
	}
}

func (c *CLI) runResolve(cmd *cobra.Command, dirs []string, opts resolveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if err := pipeline.ValidateFormat(opts.format); err != nil {
		return err
	}
	if err := c.applyConfig(cmd, &opts); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache, opts.offline, opts.timeout)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Resolving %d %s...", len(dirs), plural(len(dirs), "directory", "directories")))
	spinner.Start()
	results, err := runner.ResolveAll(ctx, dirs, opts.pipelineOptions())
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d %s", len(results), plural(len(results), "directory", "directories")))

	for _, r := range results {
		for _, f := range r.Failures {
			logger.Warn("build file not fully resolved", "dir", r.Dir, "file", f.File, "code", f.Code, "err", f.Message)
		}
		logger.Debug("resolution stats", "dir", r.Dir, "id", r.ID, "stats", r.Stats.String(), "cached", r.CacheHit)
	}

	if opts.save {
		if err := c.saveResults(ctx, results); err != nil {
			return err
		}
	}

	if err := writeOutput(ctx, opts.output, opts.format, results, opts.detailed); err != nil {
		return err
	}
	if opts.output != "" {
		for _, r := range results {
			printStats(r.Stats.SourceCount, r.Stats.DependencyCount, len(r.Failures), r.CacheHit)
		}
	}
	return nil
}

func (c *CLI) saveResults(ctx context.Context, results []*pipeline.Result) error {
	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, r := range results {
		if err := st.Save(ctx, r); err != nil {
			return err
		}
		printSuccess("Saved %s", StyleHighlight.Render(r.ID))
	}
	if len(results) > 0 {
		printNextStep("Show it again", "cpanmeta history show "+results[0].ID)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
