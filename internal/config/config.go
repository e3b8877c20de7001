// Package config loads tsplay settings from defaults, an optional YAML
// file, a .env file, TSPLAY_* environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. TSPLAY_ENGINE_NAME.
const EnvPrefix = "TSPLAY"

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// EngineConfig holds executor settings.
type EngineConfig struct {
	Name             string        `mapstructure:"name"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxCallStackSize int           `mapstructure:"max_call_stack_size"`
	QuickJSModule    string        `mapstructure:"quickjs_module"`
	MemoryLimitMB    int           `mapstructure:"memory_limit_mb"`
	DiskCache        bool          `mapstructure:"disk_cache"`
	CacheDir         string        `mapstructure:"cache_dir"`
}

// AnalyzerConfig selects the static analyzer.
type AnalyzerConfig struct {
	Name    string        `mapstructure:"name"`
	TscPath string        `mapstructure:"tsc_path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds diagnostics cache settings.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	Size          int           `mapstructure:"size"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Debounce        time.Duration `mapstructure:"debounce"`
	MaxSourceBytes  int64         `mapstructure:"max_source_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Config is the full tsplay configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
}

var defaults = map[string]any{
	"log.level":  "warn",
	"log.format": "console",
	"log.output": "stderr",

	"engine.name":                "goja",
	"engine.timeout":             2 * time.Second,
	"engine.max_call_stack_size": 4096,
	"engine.quickjs_module":      "",
	"engine.memory_limit_mb":     0,
	"engine.disk_cache":          true,
	"engine.cache_dir":           "",

	"analyzer.name":     "auto",
	"analyzer.tsc_path": "tsc",
	"analyzer.timeout":  30 * time.Second,

	"cache.backend":        "memory",
	"cache.size":           1024,
	"cache.ttl":            time.Hour,
	"cache.redis_addr":     "",
	"cache.redis_password": "",
	"cache.redis_db":       0,
	"cache.prefix":         "tsplay:check:",

	"server.addr":             "127.0.0.1:8080",
	"server.debounce":         time.Second,
	"server.max_source_bytes": int64(64 << 10),
	"server.read_timeout":     10 * time.Second,
	"server.write_timeout":    30 * time.Second,
	"server.shutdown_timeout": 10 * time.Second,
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an optional YAML file; it must exist when set.
	ConfigFile string
	// EnvFile is loaded into the process environment when it exists.
	EnvFile string
	// Flags maps config keys such as "engine.name" to command flags.
	// A flag only overrides other sources when it was set explicitly.
	Flags map[string]*pflag.Flag
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load(Options{})
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Validate checks enumerated values and required combinations.
func (c *Config) Validate() error {
	switch c.Engine.Name {
	case "goja", "quickjs":
	default:
		return fmt.Errorf("unknown engine %q (want goja or quickjs)", c.Engine.Name)
	}
	if c.Engine.Timeout <= 0 {
		return errors.New("engine timeout must be positive")
	}
	switch c.Analyzer.Name {
	case "auto", "typescript", "tsc":
	default:
		return fmt.Errorf("unknown analyzer %q (want auto, typescript or tsc)", c.Analyzer.Name)
	}
	switch c.Cache.Backend {
	case "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (want none, memory or redis)", c.Cache.Backend)
	}
	if c.Server.Debounce < 0 {
		return errors.New("server debounce must not be negative")
	}
	return nil
}
