package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port            string   `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	Temperature float32  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	Timeout     Duration `toml:"timeout"`
}

type CatalogConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type TaxonomyConfig struct {
	// Backend is one of "postgres", "sqlite", "memgraph" or "memory".
	Backend       string   `toml:"backend"`
	DSN           string   `toml:"dsn"`
	Table         string   `toml:"table"`
	SeedFile      string   `toml:"seed_file"`
	LookupTimeout Duration `toml:"lookup_timeout"`
	CacheSize     int      `toml:"cache_size"`
	CacheTTL      Duration `toml:"cache_ttl"`
	SearchLimit   int      `toml:"search_limit"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// PipelineConfig selects the behaviour of the single enrichment pipeline.
type PipelineConfig struct {
	IdentityWhitelist bool     `toml:"identity_whitelist"`
	IdentityNames     []string `toml:"identity_names"`
	ExpandTaxonomy    bool     `toml:"expand_taxonomy"`
	SplitStages       bool     `toml:"split_stages"`
	FamiliesFile      string   `toml:"families_file"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Taxonomy TaxonomyConfig `toml:"taxonomy"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultIdentityNames is the NOUN/MODIFIER whitelist used by the catalog.
var DefaultIdentityNames = []string{"NOUN", "MODIFIER", "MODIFIER 1", "MODIFIER 2", "MODIFIER 3"}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{120 * time.Second},
			ShutdownTimeout: Duration{15 * time.Second},
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-5.2",
			MaxTokens: 2048,
			Timeout:   Duration{90 * time.Second},
		},
		Catalog: CatalogConfig{
			BaseURL: "https://mmkai.ptsisi.id",
			Timeout: Duration{15 * time.Second},
		},
		Taxonomy: TaxonomyConfig{
			Backend:       "memory",
			Table:         "unspsc",
			LookupTimeout: Duration{3 * time.Second},
			CacheTTL:      Duration{10 * time.Minute},
			SearchLimit:   100,
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Pipeline: PipelineConfig{
			IdentityWhitelist: true,
			IdentityNames:     append([]string(nil), DefaultIdentityNames...),
			ExpandTaxonomy:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides config fields from environment variables when set.
func ApplyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.Catalog.BaseURL, "CATALOG_BASE_URL")
	setString(&cfg.Taxonomy.Backend, "TAXONOMY_BACKEND")
	setString(&cfg.Taxonomy.DSN, "TAXONOMY_DSN")
	setString(&cfg.Taxonomy.SeedFile, "TAXONOMY_SEED_FILE")
	setString(&cfg.Memgraph.URI, "MEMGRAPH_URI")
	setString(&cfg.Memgraph.User, "MEMGRAPH_USER")
	setString(&cfg.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Pipeline.FamiliesFile, "FAMILIES_FILE")

	// Older deployments only set OPENAI_API_KEY.
	if cfg.LLM.APIKey == "" && strings.EqualFold(cfg.LLM.Provider, "openai") {
		setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	}

	if v := os.Getenv("PIPELINE_SPLIT_STAGES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.SplitStages = b
		}
	}
	if v := os.Getenv("PIPELINE_EXPAND_TAXONOMY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.ExpandTaxonomy = b
		}
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "ollama", "claude", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider))
	}

	switch strings.ToLower(c.Taxonomy.Backend) {
	case "memory":
	case "postgres", "sqlite":
		if c.Taxonomy.DSN == "" {
			errs = append(errs, fmt.Errorf("taxonomy backend %q requires a dsn", c.Taxonomy.Backend))
		}
	case "memgraph":
		if c.Memgraph.URI == "" {
			errs = append(errs, errors.New("taxonomy backend \"memgraph\" requires memgraph.uri"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported taxonomy backend: %q", c.Taxonomy.Backend))
	}

	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog.base_url is required"))
	}
	if c.Catalog.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("catalog.timeout must be positive"))
	}
	if c.LLM.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.Taxonomy.LookupTimeout.Duration <= 0 {
		errs = append(errs, errors.New("taxonomy.lookup_timeout must be positive"))
	}
	if c.Pipeline.IdentityWhitelist && len(c.Pipeline.IdentityNames) == 0 {
		errs = append(errs, errors.New("pipeline.identity_names must not be empty when identity_whitelist is on"))
	}

	return errors.Join(errs...)
}
