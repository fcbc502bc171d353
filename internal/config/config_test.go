package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GRAPH_BACKEND", "SQLITE_PATH", "NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD",
		"NEO4J_DATABASE", "NEO4J_TIMEOUT", "NEO4J_BREAKER", "PORT", "LOG_LEVEL",
		"ENABLE_TRACING", "OTLP_ENDPOINT", "OTLP_INSECURE", "SEARCH_LIMIT", "CORS_ORIGINS", "BIZGRAPH_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, graph.BackendSQLite, cfg.Backend)
	assert.Equal(t, "bizgraph.db", cfg.SQLitePath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, graph.DefaultSearchLimit, cfg.SearchLimit)
	assert.Equal(t, 30*time.Second, cfg.Neo4j.Timeout)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GRAPH_BACKEND", "neo4j")
	t.Setenv("NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("NEO4J_TIMEOUT", "5s")
	t.Setenv("NEO4J_BREAKER", "true")
	t.Setenv("SEARCH_LIMIT", "50")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, graph.BackendNeo4j, cfg.Backend)
	assert.Equal(t, 50, cfg.SearchLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	g := cfg.Graph()
	assert.Equal(t, "neo4j://graph:7687", g.Neo4j.URI)
	assert.Equal(t, "neo4j", g.Neo4j.Username)
	assert.Equal(t, "secret", g.Neo4j.Password)
	assert.Equal(t, 5*time.Second, g.Neo4j.Timeout)
	assert.True(t, g.Neo4j.Breaker)
}

func TestYAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bizgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: sqlite
sqlite_path: /data/graph.db
port: "9090"
neo4j:
  timeout: 10s
tracing:
  enabled: true
  sample_rate: 0.25
`), 0o644))
	t.Setenv("BIZGRAPH_CONFIG", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/graph.db", cfg.SQLitePath)
	assert.Equal(t, "7070", cfg.Port, "environment beats the file")
	assert.Equal(t, 10*time.Second, cfg.Neo4j.Timeout)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database, "keys missing from the file keep defaults")
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
	assert.Equal(t, []string{"defaults", path, "environment"}, cfg.LoadedFrom)
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o644))
	os.Unsetenv("LOG_LEVEL")
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"unknown backend", map[string]string{"GRAPH_BACKEND": "oracle"}, "GRAPH_BACKEND"},
		{"bad limit", map[string]string{"SEARCH_LIMIT": "lots"}, "SEARCH_LIMIT"},
		{"zero limit", map[string]string{"SEARCH_LIMIT": "0"}, "SEARCH_LIMIT must be positive"},
		{"bad timeout", map[string]string{"NEO4J_TIMEOUT": "soon"}, "NEO4J_TIMEOUT"},
		{"bad bool", map[string]string{"NEO4J_BREAKER": "maybe"}, "NEO4J_BREAKER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("BIZGRAPH_CONFIG", "/does/not/exist.yaml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestTracingTransport(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Insecure, "the default local collector speaks plaintext")

	t.Setenv("OTLP_ENDPOINT", "otel.example.com:4317")
	t.Setenv("OTLP_INSECURE", "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "otel.example.com:4317", cfg.Tracing.Endpoint)
	assert.False(t, cfg.Tracing.Insecure)

	t.Setenv("OTLP_INSECURE", "sometimes")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTLP_INSECURE")
}
