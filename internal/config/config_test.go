package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Engine.Name != "goja" || cfg.Engine.Timeout != 2*time.Second {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Analyzer.Name != "auto" {
		t.Errorf("unexpected analyzer %q", cfg.Analyzer.Name)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.Size != 1024 || cfg.Cache.TTL != time.Hour {
		t.Errorf("unexpected cache defaults %+v", cfg.Cache)
	}
	if cfg.Server.Debounce != time.Second {
		t.Errorf("unexpected debounce %v", cfg.Server.Debounce)
	}
}

func TestConfigFile(t *testing.T) {
	path := writeFile(t, "tsplay.yaml", `
engine:
  name: quickjs
  timeout: 500ms
  memory_limit_mb: 64
cache:
  backend: none
server:
  addr: ":9000"
  debounce: 250ms
`)
	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Name != "quickjs" || cfg.Engine.Timeout != 500*time.Millisecond || cfg.Engine.MemoryLimitMB != 64 {
		t.Errorf("engine not read from file: %+v", cfg.Engine)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.Debounce != 250*time.Millisecond {
		t.Errorf("server not read from file: %+v", cfg.Server)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("unset keys should keep defaults, got log level %q", cfg.Log.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "tsplay.yaml", "engine:\n  timeout: 500ms\n")
	t.Setenv("TSPLAY_ENGINE_TIMEOUT", "3s")
	t.Setenv("TSPLAY_LOG_LEVEL", "debug")

	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Timeout != 3*time.Second {
		t.Errorf("env should override file, got %v", cfg.Engine.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Log.Level)
	}
}

func TestEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "TSPLAY_SERVER_ADDR=0.0.0.0:7000\n")
	t.Setenv("TSPLAY_SERVER_ADDR", "")
	os.Unsetenv("TSPLAY_SERVER_ADDR")

	cfg, err := Load(Options{EnvFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:7000" {
		t.Errorf("expected addr from .env, got %q", cfg.Server.Addr)
	}
}

func TestMissingEnvFileIgnored(t *testing.T) {
	if _, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), ".env")}); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestFlagsOverride(t *testing.T) {
	t.Setenv("TSPLAY_ENGINE_NAME", "quickjs")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("engine", "goja", "")
	fs.Duration("timeout", time.Second, "")
	if err := fs.Parse([]string{"--engine", "goja"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Options{Flags: map[string]*pflag.Flag{
		"engine.name":    fs.Lookup("engine"),
		"engine.timeout": fs.Lookup("timeout"),
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Name != "goja" {
		t.Errorf("explicit flag should win over env, got %q", cfg.Engine.Name)
	}
	if cfg.Engine.Timeout != 2*time.Second {
		t.Errorf("unset flag must not override the default, got %v", cfg.Engine.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"engine", func(c *Config) { c.Engine.Name = "v8" }, "unknown engine"},
		{"timeout", func(c *Config) { c.Engine.Timeout = 0 }, "timeout"},
		{"analyzer", func(c *Config) { c.Analyzer.Name = "flow" }, "unknown analyzer"},
		{"backend", func(c *Config) { c.Cache.Backend = "disk" }, "unknown cache backend"},
		{"redis addr", func(c *Config) { c.Cache.Backend = "redis" }, "redis_addr"},
		{"debounce", func(c *Config) { c.Server.Debounce = -time.Second }, "debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
