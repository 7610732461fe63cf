package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"listing": {"term": "2260", "max_pages": 3},
		"search": {"workers": 2, "provider": "brave"},
		"store": {"backend": "sqlite", "dir": "data"},
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "2260", cfg.Listing.Term)
	assert.Equal(t, 3, cfg.Listing.MaxPages)
	assert.Equal(t, 2, cfg.Search.Workers)
	assert.Equal(t, "brave", cfg.Search.Provider)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
directory:
  host: dir.example
  detail_paths: [cd_detail, people]
search:
  qualifier: example campus directory
  interval_ms: 250
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dir.example", cfg.Directory.Host)
	assert.Equal(t, []string{"cd_detail", "people"}, cfg.Directory.DetailPaths)
	assert.Equal(t, "example campus directory", cfg.Search.Qualifier)
	assert.Equal(t, 250, cfg.Search.IntervalMillis)
}

func TestLoadConfig_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
verbose = true

[store]
backend = "postgres"
database_url = "postgres://localhost/profs"

[faculty]
attempts = 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://localhost/profs", cfg.Store.DatabaseURL)
	assert.Equal(t, 5, cfg.Faculty.Attempts)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "config.ini", `verbose=true`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout())
	assert.Equal(t, time.Second, cfg.SearchInterval())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Search.Provider = "bing" },
			wantErr: "'search.provider' failed 'oneof' check",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Store.Backend = "redis" },
			wantErr: "'store.backend' failed 'oneof' check",
		},
		{
			name:    "non numeric term",
			mutate:  func(c *Config) { c.Listing.Term = "fall" },
			wantErr: "'listing.term' failed 'numeric' check",
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.Directory.Window = 0 },
			wantErr: "'directory.window' failed 'gte' check",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: "requires 'store.database_url'",
		},
		{
			name: "pool cannot fit in timeout",
			mutate: func(c *Config) {
				c.Search.Workers = 10
				c.Search.IntervalMillis = 1000
				c.Search.TimeoutSeconds = 10
			},
			wantErr: "must exceed workers x interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{
		Search: SearchConfig{Workers: 4},
		Store:  StoreConfig{Backend: "sqlite"},
	}
	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, 4, merged.Search.Workers)
	assert.Equal(t, "sqlite", merged.Store.Backend)
	assert.Equal(t, Default().Search.Qualifier, merged.Search.Qualifier)
	assert.Equal(t, Default().Directory.DetailPaths, merged.Directory.DetailPaths)
	assert.Equal(t, Default().Listing.URL, merged.Listing.URL)

	// The source config is untouched.
	assert.Empty(t, cfg.Search.Qualifier)
}

func TestResolve_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBraveAPIKey, "env-key")
	t.Setenv(EnvDatabaseURL, "postgres://env/db")
	t.Setenv(EnvStoreDir, "/tmp/stores")

	path := writeConfig(t, "config.json", `{"store": {"backend": "postgres", "dir": "ignored"}}`)
	cfg, err := Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Search.BraveAPIKey)
	assert.Equal(t, "postgres://env/db", cfg.Store.DatabaseURL)
	assert.Equal(t, "/tmp/stores", cfg.Store.Dir)
}

func TestResolve_NoFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvStoreDir, "")
	t.Setenv(EnvDatabaseURL, "")
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Default().Store, cfg.Store)
}
