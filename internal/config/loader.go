package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Defaults] and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Grading
	g := cfg.Grading
	if g.FrenchPassRate < 0 || g.FrenchPassRate > 1 {
		errs = append(errs, fmt.Errorf("grading.french_pass_rate %.2f is out of range [0, 1]", g.FrenchPassRate))
	}
	if g.JaccardThreshold < 0 || g.JaccardThreshold > 1 {
		errs = append(errs, fmt.Errorf("grading.jaccard_threshold %.2f is out of range [0, 1]", g.JaccardThreshold))
	}
	if g.KeywordScore < 0 || g.KeywordScore > 100 {
		errs = append(errs, fmt.Errorf("grading.keyword_score %d is out of range [0, 100]", g.KeywordScore))
	}
	if g.PenaltyCap < 0 || g.PenaltyCap > 1 {
		errs = append(errs, fmt.Errorf("grading.penalty_cap %.2f is out of range [0, 1]", g.PenaltyCap))
	}
	if g.BatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("grading.batch_concurrency %d must be at least 1", g.BatchConcurrency))
	}
	if g.JaccardThreshold == 0 {
		slog.Warn("grading.jaccard_threshold is 0; every non-empty French answer passes the keyword tier")
	}

	// Cache
	if !cfg.Cache.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("cache.backend %q is invalid; valid values: memory, postgres, none", cfg.Cache.Backend))
	}
	if cfg.Cache.Backend == CachePostgres && cfg.Cache.PostgresDSN == "" {
		errs = append(errs, errors.New("cache.postgres_dsn is required when backend is postgres"))
	}
	if cfg.Cache.Backend != CachePostgres && cfg.Cache.PostgresDSN != "" {
		slog.Warn("cache.postgres_dsn is set but cache.backend is not postgres; the DSN is ignored",
			"backend", cfg.Cache.Backend,
		)
	}
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries %d must not be negative", cfg.Cache.MaxEntries))
	}

	// MCP
	if cfg.MCP.Enabled && !strings.HasPrefix(cfg.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path %q must start with /", cfg.MCP.Path))
	}

	// Telemetry
	if cfg.Telemetry.MetricsPath != "" && !strings.HasPrefix(cfg.Telemetry.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("telemetry.metrics_path %q must start with /", cfg.Telemetry.MetricsPath))
	}
	if cfg.MCP.Enabled && cfg.MCP.Path == cfg.Telemetry.MetricsPath {
		errs = append(errs, fmt.Errorf("mcp.path and telemetry.metrics_path are both %q", cfg.MCP.Path))
	}

	return errors.Join(errs...)
}
