package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cpanmeta/pkg/buildinfo"
	"github.com/matzehuels/cpanmeta/pkg/cache"
	"github.com/matzehuels/cpanmeta/pkg/integrations"
	"github.com/matzehuels/cpanmeta/pkg/integrations/cpanm"
	"github.com/matzehuels/cpanmeta/pkg/integrations/perl"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
	"github.com/matzehuels/cpanmeta/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "cpanmeta"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config

	configFile string
	verbose    bool
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "cpanmeta reports the runtime dependencies of Perl distributions",
		Long: `cpanmeta finds the build files of Perl distributions (cpanfile, Makefile.PL,
Build.PL, META.json, META.yml), runs the toolchain where needed and reports
the declared runtime requirements of every directory.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ~/.config/cpanmeta/config.toml)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.discoverCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	path := c.configFile
	if path == "" {
		p, err := configPath()
		if err != nil {
			return nil
		}
		path = p
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("config loaded", "path", path)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newTools builds the perl and cpanm invokers. Offline mode hands the
// resolver no tools, so only static manifests are read.
func (c *CLI) newTools(offline bool, timeout time.Duration) pipeline.Tools {
	if offline {
		return pipeline.Tools{ID: "offline"}
	}
	runner := integrations.NewRunner(timeout, c.Logger)
	perlClient := perl.NewClient(runner, c.Config.Tools.Perl, c.Config.Tools.LibDirs)
	cpanmClient := cpanm.NewClient(runner, c.Config.Tools.Cpanm)
	return pipeline.Tools{
		Toolchain: perlClient,
		Lister:    cpanmClient,
		ID:        toolchainID(perlClient, cpanmClient),
	}
}

func toolchainID(p *perl.Client, m *cpanm.Client) string {
	return fmt.Sprintf("perl=%s;cpanm=%s;inc=%s", p.Binary(), m.Binary(), strings.Join(p.LibDirs(), ":"))
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache, offline bool, timeout time.Duration) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cc, nil, c.newTools(offline, timeout), c.Logger)
	if ttl, err := c.Config.cacheTTL(); err == nil {
		runner.TTL = ttl
	}
	return runner, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Backend == backendNone {
		return cache.NewNullCache(), nil
	}
	if c.Config.Cache.Backend == backendRedis {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Config.Cache.RedisAddr,
			Password: c.Config.Cache.RedisPassword,
			DB:       c.Config.Cache.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir := c.Config.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// newStore opens the configured result store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.Config.Store.Backend == backendMongo {
		m, err := store.NewMongo(ctx, store.MongoConfig{
			URI:      c.Config.Store.MongoURI,
			Database: c.Config.Store.MongoDatabase,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	dir := c.Config.Store.Dir
	if dir == "" {
		d, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("get data dir: %w", err)
		}
		dir = filepath.Join(d, "results")
	}
	fs, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/cpanmeta/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/cpanmeta/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
