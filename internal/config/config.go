// Package config loads server and CLI configuration from, in increasing
// priority: built-in defaults, an optional YAML file named by
// BIZGRAPH_CONFIG, and environment variables (a .env file is read first).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

// Config holds all runtime settings
type Config struct {
	Backend     string        `yaml:"backend"`
	SQLitePath  string        `yaml:"sqlite_path"`
	Neo4j       Neo4jConfig   `yaml:"neo4j"`
	Port        string        `yaml:"port"`
	LogLevel    string        `yaml:"log_level"`
	SearchLimit int           `yaml:"search_limit"`
	CORSOrigins []string      `yaml:"cors_origins"`
	Tracing     TracingConfig `yaml:"tracing"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// Neo4jConfig holds Neo4j connection settings
type Neo4jConfig struct {
	URI      string        `yaml:"uri"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
	Breaker  bool          `yaml:"breaker"`
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend:    graph.BackendSQLite,
		SQLitePath: "bizgraph.db",
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
			Timeout:  30 * time.Second,
		},
		Port:        "8080",
		LogLevel:    "info",
		SearchLimit: graph.DefaultSearchLimit,
		CORSOrigins: []string{"*"},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
			ServiceName: "bizgraph",
			Insecure:    true,
		},
		LoadedFrom: []string{"defaults"},
	}
}

// Load reads .env, the optional YAML file and the environment, then validates
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}

	cfg := Default()
	if path := os.Getenv("BIZGRAPH_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys missing from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.LoadedFrom = append(c.LoadedFrom, path)
	return nil
}

// ApplyEnv overlays environment variables. Malformed numbers, durations and
// booleans are errors rather than silently ignored.
func (c *Config) ApplyEnv() error {
	c.Backend = getEnv("GRAPH_BACKEND", c.Backend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.Neo4j.URI = getEnv("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.User = getEnv("NEO4J_USER", c.Neo4j.User)
	c.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = getEnv("NEO4J_DATABASE", c.Neo4j.Database)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Tracing.Endpoint = getEnv("OTLP_ENDPOINT", c.Tracing.Endpoint)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	var err error
	if c.Neo4j.Timeout, err = getEnvDuration("NEO4J_TIMEOUT", c.Neo4j.Timeout); err != nil {
		return err
	}
	if c.Neo4j.Breaker, err = getEnvBool("NEO4J_BREAKER", c.Neo4j.Breaker); err != nil {
		return err
	}
	if c.Tracing.Enabled, err = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled); err != nil {
		return err
	}
	if c.Tracing.Insecure, err = getEnvBool("OTLP_INSECURE", c.Tracing.Insecure); err != nil {
		return err
	}
	if c.SearchLimit, err = getEnvInt("SEARCH_LIMIT", c.SearchLimit); err != nil {
		return err
	}
	c.LoadedFrom = append(c.LoadedFrom, "environment")
	return nil
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	var errs []string
	switch c.Backend {
	case graph.BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for the sqlite backend")
		}
	case graph.BackendNeo4j:
		if c.Neo4j.URI == "" {
			errs = append(errs, "NEO4J_URI is required for the neo4j backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("GRAPH_BACKEND must be %q or %q, got %q",
			graph.BackendSQLite, graph.BackendNeo4j, c.Backend))
	}
	if c.SearchLimit <= 0 {
		errs = append(errs, "SEARCH_LIMIT must be positive")
	}
	if c.Neo4j.Timeout < 0 {
		errs = append(errs, "NEO4J_TIMEOUT must not be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, "tracing sample rate must be within [0, 1]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Graph returns the backend selection for graph.Open
func (c *Config) Graph() graph.Config {
	return graph.Config{
		Backend:    c.Backend,
		SQLitePath: c.SQLitePath,
		Neo4j: graph.Neo4jConfig{
			URI:      c.Neo4j.URI,
			Username: c.Neo4j.User,
			Password: c.Neo4j.Password,
			Database: c.Neo4j.Database,
			Timeout:  c.Neo4j.Timeout,
			Breaker:  c.Neo4j.Breaker,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
