package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Providers:  map[string]ProviderConfig{"openai": {APIKey: "test-key"}},
			Vectorizer: VectorizerConfig{Provider: "openai"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.LLM.Budget = BudgetConfig{Action: action}

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_Neo4jRequiresURI(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "neo4j"
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing neo4j uri")
	}

	cfg.Database.Neo4j.URI = "bolt://localhost:7687"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "valkey"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Provider = "anthropic"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "llm.provider") {
		t.Fatalf("expected llm.provider error, got %v", err)
	}
}

func TestValidate_Strategy(t *testing.T) {
	cfg := validConfig()
	cfg.Classifier.Strategy = "graph"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestValidate_SearchLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultLimit = 50

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default limit exceeds max")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("unexpected HNSW defaults: %+v", cfg.Index)
	}
	if cfg.Classifier.MaxInputTokens != 4000 {
		t.Errorf("expected MaxInputTokens=4000, got %d", cfg.Classifier.MaxInputTokens)
	}
	if cfg.Classifier.Timeout() != 120*time.Second {
		t.Errorf("expected classifier timeout 120s, got %v", cfg.Classifier.Timeout())
	}
	if cfg.Search.DefaultLimit != 5 || cfg.Search.MaxLimit != 20 {
		t.Errorf("unexpected search limits: %+v", cfg.Search)
	}
	if cfg.Search.DefaultMinScore != 0.7 {
		t.Errorf("expected DefaultMinScore=0.7, got %v", cfg.Search.DefaultMinScore)
	}
	if cfg.Tracing.Exporter != "none" {
		t.Errorf("expected tracing exporter none, got %q", cfg.Tracing.Exporter)
	}
}

func TestApplyDefaults_LLMProviderFollowsVectorizer(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Vectorizer: VectorizerConfig{Provider: "nebius"}}}
	cfg.ApplyDefaults()

	if cfg.LLM.Provider != "nebius" {
		t.Errorf("expected llm provider nebius, got %q", cfg.LLM.Provider)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:      IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
		Enrichment: EnrichmentConfig{PageSize: 10, Concurrency: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Enrichment.PageSize != 10 || cfg.Enrichment.Concurrency != 2 {
		t.Errorf("unexpected enrichment config: %+v", cfg.Enrichment)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("CDX_TEST_PORT", "9090")
	t.Setenv("CDX_TEST_KEY", "sk-test")

	data := []byte(`
http:
  port: ${CDX_TEST_PORT}
database:
  addrs: ["${CDX_TEST_REDIS:-localhost:6379}"]
embedding:
  providers:
    openai:
      api_key: ${CDX_TEST_KEY}
  vectorizer:
    provider: openai
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.Database.Addrs)
	}
	if cfg.Embedding.Providers["openai"].APIKey != "sk-test" {
		t.Errorf("api key not expanded: %+v", cfg.Embedding.Providers)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 8081\ndatabase:\n  addrs: [\"r:6379\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
