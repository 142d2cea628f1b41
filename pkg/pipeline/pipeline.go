// Package pipeline runs metadata resolution for CLI and API callers.
//
// It wraps the perl resolver with what every entry point needs: option
// validation and defaults, a result cache keyed by a fingerprint of the
// build files, run IDs, statistics and concurrent resolution of several
// directories. Keeping this here means the CLI and the HTTP server behave
// identically.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, pipeline.Tools{Toolchain: perlClient, Lister: cpanmClient}, logger)
//	result, err := runner.Resolve(ctx, pipeline.Options{Dir: "./My-Dist", Recursive: true})
//	for _, src := range result.Sources {
//	    fmt.Println(src.Name, len(src.Dependencies))
//	}
//
// Resolve several directories at once:
//
//	results, err := runner.ResolveAll(ctx, []string{"a", "b"}, opts)
package pipeline

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cpanmeta/pkg/cache"
	"github.com/matzehuels/cpanmeta/pkg/deps"
	"github.com/matzehuels/cpanmeta/pkg/deps/perl"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultConcurrency bounds how many directories are resolved at once.
	DefaultConcurrency = 4
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatText: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, text, dot, svg)", format)
	}
	return nil
}

// =============================================================================
// Options - Resolution Configuration
// =============================================================================

// Options configures one resolution. It supports JSON for API requests.
type Options struct {
	Dir             string   `json:"dir"`
	Recursive       bool     `json:"recursive,omitempty"`
	IgnoreFiles     []string `json:"ignore_files,omitempty"`
	IgnoreDeps      []string `json:"ignore_deps,omitempty"`
	AssociatedFiles bool     `json:"associated_files,omitempty"`
	Reduce          bool     `json:"reduce,omitempty"`  // One record per directory
	Refresh         bool     `json:"refresh,omitempty"` // Bypass cached results
	Concurrency     int      `json:"concurrency,omitempty"`

	// Logger overrides the runner's logger (not serialized).
	Logger *log.Logger `json:"-"`
}

// Validate checks the options and applies defaults.
func (o *Options) Validate() error {
	if err := cerrors.ValidateDirectory(o.Dir); err != nil {
		return err
	}
	for _, p := range o.IgnoreFiles {
		if err := cerrors.ValidateIgnorePattern(p); err != nil {
			return err
		}
	}
	for _, d := range o.IgnoreDeps {
		if d == "" {
			return cerrors.New(cerrors.ErrCodeInvalidInput, "ignored dependency name cannot be empty")
		}
	}
	if o.Concurrency < 0 {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "concurrency must not be negative")
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	return nil
}

// ResolverOptions converts to the options of [perl.Resolver].
func (o *Options) ResolverOptions() perl.Options {
	return perl.Options{
		Recursive:       o.Recursive,
		IgnoreFiles:     o.IgnoreFiles,
		IgnoreDeps:      o.IgnoreDeps,
		AssociatedFiles: o.AssociatedFiles,
		Concurrency:     o.Concurrency,
	}
}

// KeyOpts returns the cache key options; toolchain identifies the tools.
// Reduce and AssociatedFiles are left out: cached results carry neither and
// both are applied after the lookup.
func (o *Options) KeyOpts(toolchain string) cache.ResolutionKeyOpts {
	return cache.ResolutionKeyOpts{
		Recursive:   o.Recursive,
		IgnoreFiles: o.IgnoreFiles,
		IgnoreDeps:  o.IgnoreDeps,
		Toolchain:   toolchain,
	}
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of resolving one directory.
type Result struct {
	ID         string        `json:"id"`
	Dir        string        `json:"dir"`
	Files      []string      `json:"files"`
	Sources    []deps.Source `json:"sources"`
	Failures   []Failure     `json:"failures,omitempty"`
	ResolvedAt time.Time     `json:"resolved_at"`
	Stats      Stats         `json:"stats"`
	CacheHit   bool          `json:"cache_hit"`
}

// Failure reports a file whose contribution is missing or incomplete.
type Failure struct {
	File    string       `json:"file"`
	Kind    string       `json:"kind"`
	Code    cerrors.Code `json:"code,omitempty"`
	Message string       `json:"message"`
}

// Stats contains resolution statistics.
type Stats struct {
	FileCount       int           `json:"file_count"`
	SourceCount     int           `json:"source_count"`
	DependencyCount int           `json:"dependency_count"`
	Duration        time.Duration `json:"duration_ns"`
}

// String summarizes the stats for logs.
func (s Stats) String() string {
	return fmt.Sprintf("%d files, %d records, %d dependencies in %s",
		s.FileCount, s.SourceCount, s.DependencyCount, s.Duration.Round(time.Millisecond))
}

func failures(cs []perl.Contribution) []Failure {
	var out []Failure
	for _, c := range cs {
		if c.Err == nil {
			continue
		}
		out = append(out, Failure{
			File:    c.File,
			Kind:    c.Kind.String(),
			Code:    cerrors.GetCode(c.Err),
			Message: cerrors.UserMessage(c.Err),
		})
	}
	return out
}

// ReduceSources collapses the records of each directory into one, keeping
// the directories in first-seen order.
func ReduceSources(sources []deps.Source) []deps.Source {
	var order []string
	byDir := make(map[string][]deps.Source)
	for _, s := range sources {
		if _, ok := byDir[s.Path]; !ok {
			order = append(order, s.Path)
		}
		byDir[s.Path] = append(byDir[s.Path], s)
	}
	out := make([]deps.Source, 0, len(order))
	for _, dir := range order {
		if r, ok := deps.Reduce(byDir[dir]); ok {
			out = append(out, r)
		}
	}
	return out
}

func countDependencies(sources []deps.Source) int {
	n := 0
	for _, s := range sources {
		n += len(s.Dependencies)
	}
	return n
}
