// Package config loads the graphchart server configuration from
// graphchart.yaml, GRAPHCHART_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/recera/graphchart/internal/graphcache"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. GRAPHCHART_BACKEND_URL
const EnvPrefix = "GRAPHCHART"

// Config represents graphchart.yaml
type Config struct {
	// HTTP server configuration
	Server ServerConfig `mapstructure:"server"`

	// Webapp backend configuration
	Backend BackendConfig `mapstructure:"backend"`

	// Chart webapp configuration
	Webapp WebappConfig `mapstructure:"webapp"`

	// Response cache configuration
	Cache CacheConfig `mapstructure:"cache"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	// Server host
	Host string `mapstructure:"host"`

	// Server port
	Port int `mapstructure:"port"`

	// Browser origins allowed to open the WebSocket. Empty allows all.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig contains the graph data backend configuration
type BackendConfig struct {
	// Backend root URL; get_graph_data is appended
	URL string `mapstructure:"url"`

	// Request timeout
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebappConfig contains chart behaviour configuration
type WebappConfig struct {
	// Path to the parameter descriptor (YAML, JSON or TOML). Empty uses the
	// built-in descriptor.
	Descriptor string `mapstructure:"descriptor"`

	// Whether to reload the descriptor when the file changes
	Watch bool `mapstructure:"watch"`

	// Settle time for node-cap changes
	Debounce time.Duration `mapstructure:"debounce"`
}

// CacheConfig contains response cache configuration
type CacheConfig struct {
	// "none", "memory" or "redis"
	Kind string `mapstructure:"kind"`

	// Maximum entries for the memory cache
	MaxEntries int `mapstructure:"max_entries"`

	// Entry lifetime
	TTL time.Duration `mapstructure:"ttl"`

	// Eviction strategy for the memory cache: "lru" | "lfu" | "fifo"
	Strategy string `mapstructure:"strategy"`

	// Redis connection string
	RedisURL string `mapstructure:"redis_url"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Webapp: WebappConfig{
			Watch:    true,
			Debounce: 800 * time.Millisecond,
		},
		Cache: CacheConfig{
			Kind:       "none",
			MaxEntries: 128,
			TTL:        10 * time.Minute,
			Strategy:   "lru",
			RedisURL:   "redis://localhost:6379",
		},
	}
}

// New returns a viper instance with defaults and environment overrides set
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.BindEnv("server.allowed_origins")
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("webapp.descriptor", d.Webapp.Descriptor)
	v.SetDefault("webapp.watch", d.Webapp.Watch)
	v.SetDefault("webapp.debounce", d.Webapp.Debounce)
	v.SetDefault("cache.kind", d.Cache.Kind)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.strategy", d.Cache.Strategy)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
}

// Load reads configuration into v. An explicit configFile must exist;
// otherwise graphchart.yaml is looked up in the working directory and
// $HOME/.config/graphchart, and its absence is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = New()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("graphchart")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "graphchart"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills values a config file explicitly left empty
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Server.Host == "" {
		config.Server.Host = defaults.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Backend.Timeout <= 0 {
		config.Backend.Timeout = defaults.Backend.Timeout
	}
	if config.Webapp.Debounce <= 0 {
		config.Webapp.Debounce = defaults.Webapp.Debounce
	}
	if config.Cache.Kind == "" {
		config.Cache.Kind = defaults.Cache.Kind
	}
	if config.Cache.Strategy == "" {
		config.Cache.Strategy = defaults.Cache.Strategy
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch strings.ToLower(c.Cache.Kind) {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.kind must be none, memory or redis, got %q", c.Cache.Kind)
	}
	if _, err := graphcache.ParseStrategy(c.Cache.Strategy); err != nil {
		return fmt.Errorf("cache.strategy: %w", err)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GraphCache converts the cache section for graphcache.Open
func (c *Config) GraphCache() graphcache.Config {
	strategy, _ := graphcache.ParseStrategy(c.Cache.Strategy)
	return graphcache.Config{
		Kind:       c.Cache.Kind,
		MaxEntries: c.Cache.MaxEntries,
		MaxAge:     c.Cache.TTL,
		Strategy:   strategy,
		RedisURL:   c.Cache.RedisURL,
		Prefix:     "graphchart:",
	}
}
