// Package config provides the configuration schema, loader, and hot-reload
// watcher for the lingograde server.
package config

import "log/slog"

// LogLevel controls log verbosity for the lingograde server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching [slog.Level]. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CacheBackend selects where grading results are memoized.
type CacheBackend string

const (
	// CacheMemory keeps results in a bounded in-process map.
	CacheMemory CacheBackend = "memory"

	// CachePostgres stores results in the grading_results table.
	CachePostgres CacheBackend = "postgres"

	// CacheNone disables caching.
	CacheNone CacheBackend = "none"
)

// IsValid reports whether b is a recognised cache backend.
func (b CacheBackend) IsValid() bool {
	return b == CacheMemory || b == CachePostgres || b == CacheNone
}

// Config is the root configuration structure for lingograde.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Grading   GradingConfig   `yaml:"grading"`
	Cache     CacheConfig     `yaml:"cache"`
	MCP       MCPConfig       `yaml:"mcp"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// GradingConfig tunes the answer judge, the phonetic scorer and the
// hypothesis pre-pass. Every field can be hot-reloaded.
type GradingConfig struct {
	// AllowSubstring accepts a Korean answer that contains the reference.
	AllowSubstring bool `yaml:"allow_substring"`

	// FrenchPassRate is the largest Levenshtein rate that still passes.
	FrenchPassRate float64 `yaml:"french_pass_rate"`

	// JaccardThreshold is the token-set similarity of the keyword tier.
	JaccardThreshold float64 `yaml:"jaccard_threshold"`

	// KeywordScore is awarded by the keyword tier.
	KeywordScore int `yaml:"keyword_score"`

	// PenaltyCap bounds the phonetic penalty.
	PenaltyCap float64 `yaml:"penalty_cap"`

	// NormalizeNumerals enables the numeral stage of the pre-pass.
	NormalizeNumerals bool `yaml:"normalize_numerals"`

	// SnapVocabulary enables vocabulary snapping of recognized speech on the
	// pronunciation track.
	SnapVocabulary bool `yaml:"snap_vocabulary"`

	// BatchConcurrency bounds the number of items of a batch graded at once.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// CacheConfig selects and sizes the result cache.
type CacheConfig struct {
	Backend CacheBackend `yaml:"backend"`

	// PostgresDSN is the connection string of the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// MaxEntries bounds the memory backend.
	MaxEntries int `yaml:"max_entries"`
}

// MCPConfig controls the MCP endpoint that exposes grading as tools.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// ServiceName is reported as the OpenTelemetry service.name.
	ServiceName string `yaml:"service_name"`

	// MetricsPath is where the Prometheus exposition is served.
	MetricsPath string `yaml:"metrics_path"`
}

// Defaults returns the configuration used for every field a config file
// leaves unset.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Grading: GradingConfig{
			AllowSubstring:    true,
			FrenchPassRate:    0.15,
			JaccardThreshold:  0.8,
			KeywordScore:      95,
			PenaltyCap:        0.3,
			NormalizeNumerals: true,
			SnapVocabulary:    true,
			BatchConcurrency:  8,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			MaxEntries: 10_000,
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "lingograde",
			MetricsPath: "/metrics",
		},
	}
}
