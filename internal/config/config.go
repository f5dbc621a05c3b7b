package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the contractdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Search     SearchConfig     `yaml:"search"`
	Auth       AuthConfig       `yaml:"auth"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter    string `yaml:"exporter"` // none, stdout
	ServiceName string `yaml:"service_name"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds record store connection settings.
type DatabaseConfig struct {
	Driver           string      `yaml:"driver"` // redis, neo4j (default: redis)
	Addrs            []string    `yaml:"addrs"`
	Password         string      `yaml:"password"`
	Neo4j            Neo4jConfig `yaml:"neo4j"`
	ReadinessTimeout int         `yaml:"readiness_timeout_sec"`
}

// Neo4jConfig holds graph store settings. Redis is still used for the
// embedding cache and budget counters when addrs are set.
type Neo4jConfig struct {
	URI         string `yaml:"uri"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	MaxPoolSize int    `yaml:"max_pool_size"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Vectorizer VectorizerConfig          `yaml:"vectorizer"`
	Budget     BudgetConfig              `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit      int64   `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit    int64   `yaml:"monthly_token_limit"` // 0 = unlimited
	CostPerMillionTokens float64 `yaml:"cost_per_million_tokens"`
	Action               string  `yaml:"action"` // "reject" | "warn" (default)
}

// Enabled reports whether any limit is configured.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// ProviderConfig holds OpenAI-compatible endpoint settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	CacheTTLHours       int    `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider          string       `yaml:"provider"`
	Model             string       `yaml:"model"`
	Temperature       float32      `yaml:"temperature"`
	MaxTokens         int          `yaml:"max_tokens"`
	RequestsPerSecond float64      `yaml:"requests_per_second"`
	Burst             int          `yaml:"burst"`
	Budget            BudgetConfig `yaml:"budget"`
}

// ClassifierConfig holds classification settings.
type ClassifierConfig struct {
	Strategy       string `yaml:"strategy"` // single, multistage
	MaxInputTokens int    `yaml:"max_input_tokens"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// Timeout returns the per-record classification timeout.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// EnrichmentConfig holds batch pipeline settings.
type EnrichmentConfig struct {
	PageSize        int `yaml:"page_size"`
	Concurrency     int `yaml:"concurrency"`
	StoreTimeoutSec int `yaml:"store_timeout_sec"`
	EmbedTimeoutSec int `yaml:"embed_timeout_sec"`
	MaxPages        int `yaml:"max_pages"` // 0 = unlimited
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultLimit    int     `yaml:"default_limit"`
	MaxLimit        int     `yaml:"max_limit"`
	DefaultMinScore float64 `yaml:"default_min_score"`
	Refine          bool    `yaml:"refine"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Neo4j.Database == "" {
		c.Database.Neo4j.Database = "neo4j"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Vectorizer.Dimensions <= 0 {
		c.Embedding.Vectorizer.Dimensions = 1536
	}
	if c.Embedding.Vectorizer.Model == "" {
		c.Embedding.Vectorizer.Model = "text-embedding-3-small"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = c.Embedding.Vectorizer.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Classifier.Strategy == "" {
		c.Classifier.Strategy = "single"
	}
	if c.Classifier.MaxInputTokens <= 0 {
		c.Classifier.MaxInputTokens = 4000
	}
	if c.Classifier.TimeoutSec <= 0 {
		c.Classifier.TimeoutSec = 120
	}
	if c.Enrichment.PageSize <= 0 {
		c.Enrichment.PageSize = 50
	}
	if c.Enrichment.Concurrency <= 0 {
		c.Enrichment.Concurrency = 5
	}
	if c.Enrichment.StoreTimeoutSec <= 0 {
		c.Enrichment.StoreTimeoutSec = 30
	}
	if c.Enrichment.EmbedTimeoutSec <= 0 {
		c.Enrichment.EmbedTimeoutSec = 60
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 5
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 20
	}
	if c.Search.DefaultMinScore <= 0 {
		c.Search.DefaultMinScore = 0.7
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "none"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "contractdex"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "neo4j":
		if c.Database.Neo4j.URI == "" {
			return fmt.Errorf("database.neo4j.uri is required")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"neo4j\", got %q", c.Database.Driver)
	}
	if p := c.Embedding.Vectorizer.Provider; p != "" {
		if _, ok := c.Embedding.Providers[p]; !ok {
			return fmt.Errorf("embedding.vectorizer.provider %q is not defined in embedding.providers", p)
		}
	}
	if p := c.LLM.Provider; p != "" {
		if _, ok := c.Embedding.Providers[p]; !ok {
			return fmt.Errorf("llm.provider %q is not defined in embedding.providers", p)
		}
	}
	if err := validateBudget("embedding.budget", c.Embedding.Budget); err != nil {
		return err
	}
	if err := validateBudget("llm.budget", c.LLM.Budget); err != nil {
		return err
	}
	switch c.Classifier.Strategy {
	case "single", "multistage":
	default:
		return fmt.Errorf("classifier.strategy must be \"single\" or \"multistage\", got %q", c.Classifier.Strategy)
	}
	switch c.Tracing.Exporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\" or \"stdout\", got %q", c.Tracing.Exporter)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.DefaultMinScore > 1 {
		return fmt.Errorf("search.default_min_score must be within [0, 1], got %v", c.Search.DefaultMinScore)
	}
	return nil
}

func validateBudget(path string, b BudgetConfig) error {
	switch b.Action {
	case "", "warn", "reject":
		return nil
	default:
		return fmt.Errorf("%s.action must be \"warn\" or \"reject\", got %q", path, b.Action)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
