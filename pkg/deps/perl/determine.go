package perl

import (
	"cmp"
	"context"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	"github.com/matzehuels/cpanmeta/pkg/observability"
)

// Options configures a [Resolver].
type Options struct {
	Recursive       bool     // Search the whole subtree
	IgnoreFiles     []string // Substrings of relative paths to skip during discovery
	IgnoreDeps      []string // Module names removed in addition to deps.DefaultIgnored
	AssociatedFiles bool     // Attach *.pm/*.pl files to every record
	Concurrency     int      // Directories resolved in parallel; 0 means GOMAXPROCS
}

// Resolution is the full outcome of resolving one root directory.
type Resolution struct {
	Dir           string         `json:"dir"`
	Files         []string       `json:"files"`
	Sources       []deps.Source  `json:"sources"`
	Contributions []Contribution `json:"-"`
}

// Failures returns the contributions that carry an error.
func (r *Resolution) Failures() []Contribution {
	var out []Contribution
	for _, c := range r.Contributions {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Resolver runs discovery, dispatch, filtering and merging for a directory
// tree. A zero Resolver with no tools can still read shipped manifests;
// cpanfiles and build scripts then report TOOL_NOT_FOUND.
type Resolver struct {
	Toolchain ScriptRunner
	Lister    Lister
	Options   Options
	Logger    *log.Logger
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// Determine returns the merged records for dir.
func (r *Resolver) Determine(ctx context.Context, dir string) ([]deps.Source, error) {
	res, err := r.Resolve(ctx, dir)
	if err != nil {
		return nil, err
	}
	return res.Sources, nil
}

// Resolve discovers the build files under dir and resolves each directory
// that holds one. Directories are resolved concurrently; files inside one
// directory are processed sequentially in the order cpanfile, Makefile.PL,
// Build.PL, manifests.
//
// The only errors returned are discovery failures and context cancellation.
func (r *Resolver) Resolve(ctx context.Context, dir string) (*Resolution, error) {
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, dir)
	start := time.Now()

	res, err := r.resolve(ctx, dir)

	count := 0
	if res != nil {
		count = len(res.Sources)
	}
	hooks.OnResolveComplete(ctx, dir, count, time.Since(start), err)
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, dir string) (*Resolution, error) {
	files, err := Discover(dir, DiscoverOptions{
		Recursive: r.Options.Recursive,
		Ignore:    r.Options.IgnoreFiles,
	})
	if err != nil {
		return nil, err
	}
	r.logger().Debug("discovered build files", "dir", dir, "count", len(files))

	groups := groupByDir(files)
	results := make([]groupResult, len(groups))
	ignored := deps.NewIgnoreSet(r.Options.IgnoreDeps...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for i, grp := range groups {
		g.Go(func() error {
			out, err := r.resolveGroup(gctx, dir, grp, ignored)
			results[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Resolution{Dir: dir, Files: files, Sources: []deps.Source{}}
	for _, gr := range results {
		res.Sources = append(res.Sources, gr.sources...)
		res.Contributions = append(res.Contributions, gr.contributions...)
	}
	return res, nil
}

func (r *Resolver) concurrency() int {
	if r.Options.Concurrency > 0 {
		return r.Options.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

type fileGroup struct {
	dir   string   // Slash-separated directory relative to the root ("." for the root)
	files []string // Relative file paths in processing order
}

type groupResult struct {
	sources       []deps.Source
	contributions []Contribution
}

// groupByDir buckets discovered files by directory and orders each bucket by
// kind, keeping the discovery order among files of equal rank.
func groupByDir(files []string) []fileGroup {
	var groups []fileGroup
	index := make(map[string]int)
	for _, f := range files {
		d := path.Dir(f)
		i, ok := index[d]
		if !ok {
			i = len(groups)
			index[d] = i
			groups = append(groups, fileGroup{dir: d})
		}
		groups[i].files = append(groups[i].files, f)
	}
	for i := range groups {
		slices.SortStableFunc(groups[i].files, func(a, b string) int {
			return cmp.Compare(Classify(a).order(), Classify(b).order())
		})
	}
	slices.SortFunc(groups, func(a, b fileGroup) int { return cmp.Compare(a.dir, b.dir) })
	return groups
}

func (r *Resolver) resolveGroup(ctx context.Context, root string, grp fileGroup, ignored deps.IgnoreSet) (groupResult, error) {
	var out groupResult
	d := &Dispatcher{Toolchain: r.Toolchain, Lister: r.Lister, Logger: r.logger()}
	hooks := observability.Resolve()
	seen := make(map[string]bool)

	var filtered [][]deps.Source
	for _, f := range grp.files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		c := d.Resolve(ctx, root, f)
		if err := ctx.Err(); err != nil {
			return out, err
		}

		var fresh []deps.Source
		for _, src := range c.Sources {
			if seen[src.Origin] {
				continue
			}
			seen[src.Origin] = true
			fresh = append(fresh, deps.FilterIgnored(src, ignored))
		}
		if c.Err != nil {
			r.logger().Warn("no records from file", "file", f, "kind", c.Kind, "err", c.Err)
		}
		hooks.OnContribution(ctx, f, c.Kind.String(), len(fresh), c.Err)

		filtered = append(filtered, fresh)
		out.contributions = append(out.contributions, c)
	}
	out.sources = deps.Merge(filtered...)

	if r.Options.AssociatedFiles && len(out.sources) > 0 {
		dir := filepath.Join(root, filepath.FromSlash(grp.dir))
		files, err := AssociatedFiles(dir)
		if err != nil {
			r.logger().Warn("cannot list associated files", "dir", dir, "err", err)
		}
		for i := range out.sources {
			out.sources[i].Files = slices.Clone(files)
		}
	}
	return out, nil
}
