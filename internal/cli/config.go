package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/cpanmeta/pkg/cache"
	"github.com/matzehuels/cpanmeta/pkg/integrations"
	"github.com/matzehuels/cpanmeta/pkg/pipeline"
)

// Cache and store backends selectable in the config file.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendMongo = "mongo"
	backendNone  = "none"
)

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	Tools   ToolsConfig   `toml:"tools"`
	Resolve ResolveConfig `toml:"resolve"`
	Cache   CacheConfig   `toml:"cache"`
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
}

// ToolsConfig selects the external tools and how long they may run.
type ToolsConfig struct {
	Perl    string   `toml:"perl"`
	Cpanm   string   `toml:"cpanm"`
	Timeout string   `toml:"timeout"`  // Go duration, e.g. "90s"
	LibDirs []string `toml:"lib_dirs"` // unset means ~/perl5/lib/perl5
}

// ResolveConfig holds defaults for resolve requests.
type ResolveConfig struct {
	Recursive   bool     `toml:"recursive"`
	IgnoreFiles []string `toml:"ignore_files"`
	IgnoreDeps  []string `toml:"ignore_deps"`
	Concurrency int      `toml:"concurrency"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend       string `toml:"backend"` // file, redis or none
	Dir           string `toml:"dir"`
	TTL           string `toml:"ttl"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// StoreConfig selects where saved results go.
type StoreConfig struct {
	Backend       string `toml:"backend"` // file or mongo
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
	Root string `toml:"root"` // directories are served relative to this
}

func defaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			Perl:    "perl",
			Cpanm:   "cpanm",
			Timeout: integrations.DefaultTimeout.String(),
		},
		Resolve: ResolveConfig{Concurrency: pipeline.DefaultConcurrency},
		Cache: CacheConfig{
			Backend: backendFile,
			TTL:     cache.DefaultTTL.String(),
		},
		Store:  StoreConfig{Backend: backendFile},
		Server: ServerConfig{Addr: ":8080", Root: "."},
	}
}

// loadConfig reads the TOML file at path on top of the defaults.
// A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.toolTimeout(); err != nil {
		return err
	}
	if _, err := c.cacheTTL(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case backendFile, backendNone:
	case backendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend %q needs redis_addr", backendRedis)
		}
	default:
		return fmt.Errorf("unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case backendFile:
	case backendMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store backend %q needs mongo_uri", backendMongo)
		}
	default:
		return fmt.Errorf("unknown store backend %q (want file or mongo)", c.Store.Backend)
	}
	if c.Resolve.Concurrency < 0 {
		return fmt.Errorf("resolve.concurrency must not be negative")
	}
	return nil
}

func (c *Config) toolTimeout() (time.Duration, error) {
	if c.Tools.Timeout == "" {
		return integrations.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Tools.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid tools.timeout %q", c.Tools.Timeout)
	}
	return d, nil
}

func (c *Config) cacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return cache.DefaultTTL, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid cache.ttl %q", c.Cache.TTL)
	}
	return d, nil
}

// configPath returns the default config file location
// (~/.config/cpanmeta/config.toml, honouring XDG_CONFIG_HOME).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
