// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Atypics3/About-My-Professor/internal/directory"
	"github.com/Atypics3/About-My-Professor/internal/fetch"
	"github.com/Atypics3/About-My-Professor/internal/parsing"
	"github.com/Atypics3/About-My-Professor/internal/store"
)

// Environment variables that override file values.
const (
	EnvBraveAPIKey = "BRAVE_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvStoreDir    = "PROF_RESOLVER_STORE_DIR"
)

// Search provider names.
const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderBrave      = "brave"
)

// Config represents the CLI configuration. It can be loaded from a JSON, YAML
// or TOML file; every field is optional and falls back to Default().
type Config struct {
	Listing   ListingConfig   `json:"listing" yaml:"listing" toml:"listing"`
	Directory DirectoryConfig `json:"directory" yaml:"directory" toml:"directory"`
	Search    SearchConfig    `json:"search" yaml:"search" toml:"search"`
	Store     StoreConfig     `json:"store" yaml:"store" toml:"store"`
	Faculty   FacultyConfig   `json:"faculty" yaml:"faculty" toml:"faculty"`
	Verbose   bool            `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose,omitempty"`
}

// ListingConfig controls the class-search browser session.
type ListingConfig struct {
	URL            string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty" validate:"required,url"`
	Term           string `json:"term,omitempty" yaml:"term,omitempty" toml:"term,omitempty" validate:"required,numeric"`
	PageSize       int    `json:"page_size,omitempty" yaml:"page_size,omitempty" toml:"page_size,omitempty" validate:"gte=1,lte=500"`
	MaxPages       int    `json:"max_pages,omitempty" yaml:"max_pages,omitempty" toml:"max_pages,omitempty" validate:"gte=0"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" validate:"gte=1"`
	ShowBrowser    bool   `json:"show_browser,omitempty" yaml:"show_browser,omitempty" toml:"show_browser,omitempty"`
}

// DirectoryConfig describes what counts as a campus-directory profile link.
type DirectoryConfig struct {
	Host        string   `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty" validate:"required,hostname"`
	UIDParam    string   `json:"uid_param,omitempty" yaml:"uid_param,omitempty" toml:"uid_param,omitempty" validate:"required,alphanum"`
	DetailPaths []string `json:"detail_paths,omitempty" yaml:"detail_paths,omitempty" toml:"detail_paths,omitempty" validate:"dive,required"`
	Window      int      `json:"window,omitempty" yaml:"window,omitempty" toml:"window,omitempty" validate:"gte=1,lte=50"`
}

// SearchConfig controls lookups against the search provider.
type SearchConfig struct {
	Provider       string `json:"provider,omitempty" yaml:"provider,omitempty" toml:"provider,omitempty" validate:"oneof=duckduckgo brave"`
	Qualifier      string `json:"qualifier,omitempty" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" validate:"gte=1"`
	Workers        int    `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty" validate:"gte=1,lte=16"`
	IntervalMillis int    `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty" toml:"interval_ms,omitempty" validate:"gte=0"`
	BraveAPIKey    string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty" toml:"brave_api_key,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend     string `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty" validate:"oneof=json sqlite postgres"`
	Dir         string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" toml:"sqlite_path,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" toml:"database_url,omitempty"`
}

// FacultyConfig controls the faculty directory snapshot.
type FacultyConfig struct {
	URL            string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty" validate:"required,url"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" validate:"gte=1"`
	Attempts       int    `json:"attempts,omitempty" yaml:"attempts,omitempty" toml:"attempts,omitempty" validate:"gte=1,lte=10"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listing: ListingConfig{
			URL:            fetch.DefaultClassSearchURL,
			Term:           fetch.DefaultTerm,
			PageSize:       fetch.DefaultPageSize,
			MaxPages:       15,
			TimeoutSeconds: int(fetch.DefaultBrowserTimeout / time.Second),
		},
		Directory: DirectoryConfig{
			Host:        directory.DefaultHost,
			UIDParam:    directory.DefaultUIDParam,
			DetailPaths: append([]string(nil), directory.DefaultDetailPaths...),
			Window:      directory.DefaultWindow,
		},
		Search: SearchConfig{
			Provider:       ProviderDuckDuckGo,
			Qualifier:      parsing.DefaultQualifier,
			TimeoutSeconds: 10,
			Workers:        1,
			IntervalMillis: 1000,
		},
		Store: StoreConfig{
			Backend: store.BackendJSON,
			Dir:     ".",
		},
		Faculty: FacultyConfig{
			URL:            fetch.DefaultFacultyURL,
			TimeoutSeconds: int(fetch.DefaultTimeout / time.Second),
			Attempts:       3,
		},
	}
}

// LoadConfig loads configuration from a file. The format follows the extension:
// .json, .yaml/.yml or .toml.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .json, .yaml or .toml)", ext)
	}

	return &cfg, nil
}

// Resolve loads path (when non-empty), fills unset values from Default(),
// applies environment overrides and validates the result.
func Resolve(path string) (Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	merged := cfg.MergeWithDefaults(Default())
	merged.ApplyEnv()
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// ApplyEnv overrides secrets and locations from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBraveAPIKey); v != "" {
		c.Search.BraveAPIKey = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv(EnvStoreDir); v != "" {
		c.Store.Dir = v
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				field := strings.TrimPrefix(fe.Namespace(), "Config.")
				msgs = append(msgs, fmt.Sprintf("'%s' failed '%s' check", field, fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.Store.Backend == store.BackendPostgres && c.Store.DatabaseURL == "" {
		return fmt.Errorf("config error: postgres backend requires 'store.database_url' or %s", EnvDatabaseURL)
	}

	// Lookups queue on the politeness limiter inside their timeout, so a full
	// pool must fit in one timeout window.
	wait := time.Duration(c.Search.Workers) * c.SearchInterval()
	if c.SearchTimeout() <= wait {
		return fmt.Errorf("config error: 'search.timeout_seconds' (%s) must exceed workers x interval (%s)", c.SearchTimeout(), wait)
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.Listing.URL, defaults.Listing.URL)
	mergeString(&result.Listing.Term, defaults.Listing.Term)
	mergeInt(&result.Listing.PageSize, defaults.Listing.PageSize)
	mergeInt(&result.Listing.MaxPages, defaults.Listing.MaxPages)
	mergeInt(&result.Listing.TimeoutSeconds, defaults.Listing.TimeoutSeconds)

	mergeString(&result.Directory.Host, defaults.Directory.Host)
	mergeString(&result.Directory.UIDParam, defaults.Directory.UIDParam)
	if len(result.Directory.DetailPaths) == 0 {
		result.Directory.DetailPaths = append([]string(nil), defaults.Directory.DetailPaths...)
	}
	mergeInt(&result.Directory.Window, defaults.Directory.Window)

	mergeString(&result.Search.Provider, defaults.Search.Provider)
	mergeString(&result.Search.Qualifier, defaults.Search.Qualifier)
	mergeInt(&result.Search.TimeoutSeconds, defaults.Search.TimeoutSeconds)
	mergeInt(&result.Search.Workers, defaults.Search.Workers)
	mergeInt(&result.Search.IntervalMillis, defaults.Search.IntervalMillis)
	mergeString(&result.Search.BraveAPIKey, defaults.Search.BraveAPIKey)

	mergeString(&result.Store.Backend, defaults.Store.Backend)
	mergeString(&result.Store.Dir, defaults.Store.Dir)
	mergeString(&result.Store.SQLitePath, defaults.Store.SQLitePath)
	mergeString(&result.Store.DatabaseURL, defaults.Store.DatabaseURL)

	mergeString(&result.Faculty.URL, defaults.Faculty.URL)
	mergeInt(&result.Faculty.TimeoutSeconds, defaults.Faculty.TimeoutSeconds)
	mergeInt(&result.Faculty.Attempts, defaults.Faculty.Attempts)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// SearchTimeout is the per-lookup timeout.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// SearchInterval is the minimum spacing between search requests.
func (c *Config) SearchInterval() time.Duration {
	return time.Duration(c.Search.IntervalMillis) * time.Millisecond
}

// ListingTimeout bounds each browser step.
func (c *Config) ListingTimeout() time.Duration {
	return time.Duration(c.Listing.TimeoutSeconds) * time.Second
}

// FacultyTimeout bounds each faculty directory request.
func (c *Config) FacultyTimeout() time.Duration {
	return time.Duration(c.Faculty.TimeoutSeconds) * time.Second
}
