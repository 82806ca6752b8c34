// Package emberconfig loads the toolchain-wide settings that sit above the
// compiler core: logging, caching, the artifact store backend, watch mode,
// live reload, and the metrics/tracing exporters. The core itself (pkg/ast,
// pkg/ir, pkg/compiler) takes no Config — it stays a pure AST→Bytecode
// function — so everything here configures the ambient/domain layer only.
package emberconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root document a project's emberc.yaml unmarshals into.
type Config struct {
	Compiler  CompilerConfig  `yaml:"compiler"`
	Log       LogConfig       `yaml:"log"`
	Cache     CacheConfig     `yaml:"cache"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Watch     WatchConfig     `yaml:"watch"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// CompilerConfig carries the one knob the core itself exposes via
// compiler.Options (§4.11's "implementation-defined, 32 is reasonable"
// max_params bound). It is translated into a compiler.Options value by the
// caller — the core package still takes no Config of its own.
type CompilerConfig struct {
	MaxParams int `yaml:"max_params"`
}

// LogConfig configures pkg/emberlog.
type LogConfig struct {
	Level    string `yaml:"level"`    // debug|info|warn|error
	Format   string `yaml:"format"`   // text|json
	FilePath string `yaml:"file_path,omitempty"`
}

// CacheConfig configures pkg/cache's bytecode LRU.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"`
}

// ArtifactsConfig configures pkg/artifactstore's compiled-bytecode backend.
type ArtifactsConfig struct {
	// Backend selects the store implementation: memory|sql|sqlite|mongo|redis.
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn,omitempty"`
}

// WatchConfig configures pkg/watch's debounced recompile loop.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
	Paths    []string      `yaml:"paths"`
}

// MetricsConfig configures pkg/embermetrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TracingConfig configures pkg/embertracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout|otlp
	Endpoint string `yaml:"endpoint,omitempty"`
}

// DefaultConfig returns the settings a fresh project starts from: text logs
// at info, a modest bytecode cache, an in-memory artifact store, watch mode
// off, and no metrics/tracing exporters.
func DefaultConfig() *Config {
	return &Config{
		Compiler:  CompilerConfig{MaxParams: 32},
		Log:       LogConfig{Level: "info", Format: "text"},
		Cache:     CacheConfig{Enabled: true, Capacity: 256},
		Artifacts: ArtifactsConfig{Backend: "memory"},
		Watch:     WatchConfig{Enabled: false, Debounce: 150 * time.Millisecond},
		Metrics:   MetricsConfig{Enabled: false, Addr: ":9090"},
		Tracing:   TracingConfig{Enabled: false, Exporter: "stdout"},
	}
}

// Load reads and unmarshals a YAML config file, applying DefaultConfig's
// values for anything the file leaves at its zero value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("emberconfig: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("emberconfig: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("emberconfig: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalizes zero-valued fields to their defaults and rejects
// settings that name an unknown backend/exporter.
func (c *Config) Validate() error {
	if c.Compiler.MaxParams <= 0 {
		c.Compiler.MaxParams = 32
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}

	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 256
	}

	switch c.Artifacts.Backend {
	case "":
		c.Artifacts.Backend = "memory"
	case "memory", "sql", "sqlite", "mongo", "redis":
	default:
		return fmt.Errorf("artifacts.backend: unknown backend %q", c.Artifacts.Backend)
	}

	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 150 * time.Millisecond
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}

	switch c.Tracing.Exporter {
	case "":
		c.Tracing.Exporter = "stdout"
	case "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter)
	}

	return nil
}
