package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the timeline engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Timeline TimelineConfig `yaml:"timeline"`
	Views    ViewsConfig    `yaml:"views"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// SourceConfig configures access to the anomaly-graph API.
type SourceConfig struct {
	BaseURL         string        `yaml:"baseURL"`
	GraphPath       string        `yaml:"graphPath"`
	Timeout         time.Duration `yaml:"timeout"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// TimelineConfig controls aggregation.
type TimelineConfig struct {
	// Location is an IANA zone name used for time-of-day rendering; "Local" uses the host zone.
	Location        string `yaml:"location"`
	MalformedPolicy string `yaml:"malformedPolicy"`
	MemoSize        int    `yaml:"memoSize"`
}

// ViewsConfig controls per-view selection sessions.
type ViewsConfig struct {
	IdleTTL         time.Duration `yaml:"idleTTL"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of anomaly-graph snapshots.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	SnapshotTTL  time.Duration `yaml:"snapshotTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ANOMALY_TIMELINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Timeline.LoadLocation(); err != nil {
		return err
	}
	switch strings.ToLower(c.Timeline.MalformedPolicy) {
	case "", "skip", "zero":
	default:
		return fmt.Errorf("timeline.malformedPolicy must be skip or zero, got %q", c.Timeline.MalformedPolicy)
	}
	if c.Source.RefreshInterval < 0 {
		return fmt.Errorf("source.refreshInterval must not be negative")
	}
	if c.Views.IdleTTL <= 0 {
		return fmt.Errorf("views.idleTTL must be positive")
	}
	return nil
}

// LoadLocation resolves the configured zone.
func (t TimelineConfig) LoadLocation() (*time.Location, error) {
	if t.Location == "" || strings.EqualFold(t.Location, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Location)
	if err != nil {
		return nil, fmt.Errorf("timeline.location: %w", err)
	}
	return loc, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			GraphPath:       "/api/anomalies/graph",
			Timeout:         5 * time.Second,
			RefreshInterval: 30 * time.Second,
		},
		Timeline: TimelineConfig{
			Location:        "Local",
			MalformedPolicy: "skip",
			MemoSize:        16,
		},
		Views: ViewsConfig{
			IdleTTL:         30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			SnapshotTTL:  15 * time.Second,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANOMALY_TIMELINE_GRPC_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_SOURCE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_SOURCE_GRAPH_PATH"); v != "" {
		cfg.Source.GraphPath = v
	}
	setDuration("ANOMALY_TIMELINE_SOURCE_TIMEOUT", &cfg.Source.Timeout)
	setDuration("ANOMALY_TIMELINE_REFRESH_INTERVAL", &cfg.Source.RefreshInterval)
	if v := os.Getenv("ANOMALY_TIMELINE_LOCATION"); v != "" {
		cfg.Timeline.Location = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_MALFORMED_POLICY"); v != "" {
		cfg.Timeline.MalformedPolicy = v
	}
	setInt("ANOMALY_TIMELINE_MEMO_SIZE", &cfg.Timeline.MemoSize)
	setDuration("ANOMALY_TIMELINE_VIEW_IDLE_TTL", &cfg.Views.IdleTTL)
	if v := os.Getenv("ANOMALY_TIMELINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ANOMALY_TIMELINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = truthy(v)
	}
	if v := os.Getenv("ANOMALY_TIMELINE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("ANOMALY_TIMELINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	setInt("ANOMALY_TIMELINE_CACHE_DB", &cfg.Cache.DB)
	if truthy(os.Getenv("ANOMALY_TIMELINE_CACHE_TLS")) {
		cfg.Cache.TLS = true
	}
	setDuration("ANOMALY_TIMELINE_CACHE_DIAL_TIMEOUT", &cfg.Cache.DialTimeout)
	setDuration("ANOMALY_TIMELINE_CACHE_READ_TIMEOUT", &cfg.Cache.ReadTimeout)
	setDuration("ANOMALY_TIMELINE_CACHE_WRITE_TIMEOUT", &cfg.Cache.WriteTimeout)
	setInt("ANOMALY_TIMELINE_CACHE_MAX_RETRIES", &cfg.Cache.MaxRetries)
	setDuration("ANOMALY_TIMELINE_CACHE_SNAPSHOT_TTL", &cfg.Cache.SnapshotTTL)
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
