package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cpanmeta/pkg/cache"
	"github.com/matzehuels/cpanmeta/pkg/deps"
	"github.com/matzehuels/cpanmeta/pkg/deps/perl"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
	"github.com/matzehuels/cpanmeta/pkg/observability"
)

// Tools are the external capabilities handed to the resolver.
type Tools struct {
	Toolchain perl.ScriptRunner
	Lister    perl.Lister

	// ID identifies the tool configuration in cache keys, so results from
	// a different perl or lib path are not reused.
	ID string
}

// Runner encapsulates resolution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, tools and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Tools  Tools
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, tools Tools, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Tools:  tools,
		Logger: logger,
		TTL:    cache.DefaultTTL,
	}
}

// Resolve resolves one directory, serving from the cache when the build
// files are unchanged and opts.Refresh is false.
//
// The cache holds the full, unreduced records without associated files.
// Reduction and associated files are applied to every result afterwards,
// so they never leak between runs with different options and the file
// lists reflect the tree as it is now.
//
// Only failure-free results are cached: a result degraded by a missing tool
// or a timeout is recomputed next time.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger(opts)
	start := time.Now()

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, cerrors.WrapPath(cerrors.ErrCodeInvalidPath, err, opts.Dir, "resolve directory")
	}

	files, err := perl.Discover(dir, perl.DiscoverOptions{Recursive: opts.Recursive, Ignore: opts.IgnoreFiles})
	if err != nil {
		return nil, err
	}

	key := ""
	if fp, err := cache.Fingerprint(dir, files); err == nil {
		key = r.Keyer.ResolutionKey(dir, fp, opts.KeyOpts(r.Tools.ID))
	} else {
		logger.Debug("cannot fingerprint build files, skipping cache", "dir", dir, "err", err)
	}

	if key != "" && !opts.Refresh {
		if cached, ok := r.lookup(ctx, key, logger); ok {
			logger.Info("using cached resolution", "dir", dir, "id", cached.ID)
			return finish(cached, opts, logger), nil
		}
	}

	ropts := opts.ResolverOptions()
	ropts.AssociatedFiles = false
	resolver := &perl.Resolver{
		Toolchain: r.Tools.Toolchain,
		Lister:    r.Tools.Lister,
		Options:   ropts,
		Logger:    logger,
	}
	res, err := resolver.Resolve(ctx, dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:         uuid.NewString(),
		Dir:        dir,
		Files:      res.Files,
		Sources:    res.Sources,
		Failures:   failures(res.Contributions),
		ResolvedAt: time.Now().UTC(),
	}
	result.Stats = statsFor(result)
	result.Stats.Duration = time.Since(start)

	if key != "" && len(result.Failures) == 0 {
		r.store(ctx, key, result, logger)
	}

	result = finish(result, opts, logger)
	logger.Info("resolved directory", "dir", dir, "stats", result.Stats, "failures", len(result.Failures))
	return result, nil
}

// finish applies the options that are not part of the cache key.
func finish(res *Result, opts Options, logger *log.Logger) *Result {
	if opts.AssociatedFiles {
		attachFiles(res.Sources, logger)
	}
	if opts.Reduce {
		res.Sources = ReduceSources(res.Sources)
	}
	duration := res.Stats.Duration
	res.Stats = statsFor(res)
	res.Stats.Duration = duration
	return res
}

// attachFiles lists the modules and scripts under each record's directory.
func attachFiles(sources []deps.Source, logger *log.Logger) {
	byDir := make(map[string][]string)
	for i := range sources {
		dir := sources[i].Path
		files, ok := byDir[dir]
		if !ok {
			var err error
			if files, err = perl.AssociatedFiles(dir); err != nil {
				logger.Warn("cannot list associated files", "dir", dir, "err", err)
			}
			byDir[dir] = files
		}
		sources[i].Files = slices.Clone(files)
	}
}

func statsFor(res *Result) Stats {
	return Stats{
		FileCount:       len(res.Files),
		SourceCount:     len(res.Sources),
		DependencyCount: countDependencies(res.Sources),
	}
}

// ResolveAll resolves several directories concurrently with the same
// options. Results are returned in the order of dirs. The first hard error
// cancels the remaining work.
func (r *Runner) ResolveAll(ctx context.Context, dirs []string, opts Options) ([]*Result, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	results := make([]*Result, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, dir := range dirs {
		o := opts
		o.Dir = dir
		g.Go(func() error {
			res, err := r.Resolve(gctx, o)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Invalidate drops the cached result for opts, if any.
func (r *Runner) Invalidate(ctx context.Context, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return cerrors.WrapPath(cerrors.ErrCodeInvalidPath, err, opts.Dir, "resolve directory")
	}
	files, err := perl.Discover(dir, perl.DiscoverOptions{Recursive: opts.Recursive, Ignore: opts.IgnoreFiles})
	if err != nil {
		return err
	}
	fp, err := cache.Fingerprint(dir, files)
	if err != nil {
		return nil
	}
	return r.Cache.Delete(ctx, r.Keyer.ResolutionKey(dir, fp, opts.KeyOpts(r.Tools.ID)))
}

func (r *Runner) lookup(ctx context.Context, key string, logger *log.Logger) (*Result, bool) {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, key)
		return nil, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		logger.Debug("discarding undecodable cache entry", "err", err)
		hooks.OnCacheMiss(ctx, key)
		return nil, false
	}
	hooks.OnCacheHit(ctx, key)
	res.CacheHit = true
	return &res, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result, logger *log.Logger) {
	data, err := json.Marshal(res)
	if err != nil {
		logger.Warn("cannot encode result for cache", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, key, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
