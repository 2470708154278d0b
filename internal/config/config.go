package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/meshlink-planner/internal/observability"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the link-server configuration.
type Config struct {
	Server  ServerConfig                `yaml:"server"`
	Log     LogConfig                   `yaml:"log"`
	Tracing observability.TracingConfig `yaml:"tracing"`
	Catalog CatalogConfig               `yaml:"catalog"`
	Cache   CacheConfig                 `yaml:"cache"`
	CORS    CORSConfig                  `yaml:"cors"`
}

// ServerConfig holds listener addresses and timeouts.
type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr"`
	HTTPAddr        string        `yaml:"http_addr"`    // empty disables REST
	MetricsAddr     string        `yaml:"metrics_addr"` // empty disables /metrics
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogConfig points at an optional YAML radio catalog. Its variants are
// merged over the built-in ones.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig sizes the estimation result cache; zero disables it.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// CORSConfig lists origins allowed to call the REST API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddr:        ":50061",
			HTTPAddr:        ":8080",
			MetricsAddr:     ":9090",
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.DefaultTracingConfig(),
		Cache:   CacheConfig{Size: 1024},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads the YAML file at filename over the defaults, applies
// environment overrides and validates the result. An empty filename skips
// the file.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML from r over the defaults without consulting the
// environment.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies MESHLINK_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MESHLINK_GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv("MESHLINK_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("MESHLINK_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("MESHLINK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MESHLINK_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("MESHLINK_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("MESHLINK_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Size = n
		}
	}
	if v := os.Getenv("MESHLINK_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
	c.Tracing = c.Tracing.ApplyEnv()
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.GRPCAddr) == "" {
		return fmt.Errorf("%w: server.grpc_addr is required", ErrInvalidConfig)
	}
	if c.Server.RequestTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: cache.size must be >= 0, got %d", ErrInvalidConfig, c.Cache.Size)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0,1], got %v", ErrInvalidConfig, c.Tracing.SampleRatio)
	}
	return nil
}
