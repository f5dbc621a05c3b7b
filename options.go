package contractdex

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg       config.Config
	embedder  Embedder
	completer Completer

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

const providerName = "openai"

// WithRedis stores records in Redis with the search module.
func WithRedis(password string, addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = "redis"
		c.cfg.Database.Addrs = addrs
		c.cfg.Database.Password = password
	})
}

// WithNeo4j stores records as graph nodes in Neo4j.
// Combine with WithRedisCache to cache embeddings and persist budgets.
func WithNeo4j(uri, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = "neo4j"
		c.cfg.Database.Neo4j.URI = uri
		c.cfg.Database.Neo4j.Username = username
		c.cfg.Database.Neo4j.Password = password
	})
}

// WithRedisCache adds a Redis instance for the embedding cache and
// budget counters when records live in Neo4j.
func WithRedisCache(password string, addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Addrs = addrs
		c.cfg.Database.Password = password
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Index.HNSWM = m
		c.cfg.Index.HNSWEFConstruct = efConstruct
	})
}

// WithOpenAI configures an OpenAI-compatible provider for embeddings and
// chat. An empty baseURL uses the OpenAI API.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.cfg.Embedding.Providers == nil {
			c.cfg.Embedding.Providers = map[string]config.ProviderConfig{}
		}
		c.cfg.Embedding.Providers[providerName] = config.ProviderConfig{APIKey: apiKey, BaseURL: baseURL}
		c.cfg.Embedding.Vectorizer.Provider = providerName
		c.cfg.LLM.Provider = providerName
	})
}

// WithEmbeddingModel sets the embedding model and its vector size.
func WithEmbeddingModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Vectorizer.Model = model
		c.cfg.Embedding.Vectorizer.Dimensions = dimensions
	})
}

// WithChatModel sets the model used for classification and query refinement.
func WithChatModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.LLM.Model = model
	})
}

// WithClassifier selects the classification strategy: "single" or "multistage".
func WithClassifier(strategy string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Classifier.Strategy = strategy
	})
}

// WithTokenBudget caps daily and monthly embedding tokens. Zero means unlimited.
// With reject set, calls fail once a limit is reached; otherwise they only warn.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Budget.DailyTokenLimit = daily
		c.cfg.Embedding.Budget.MonthlyTokenLimit = monthly
		c.cfg.Embedding.Budget.Action = "warn"
		if reject {
			c.cfg.Embedding.Budget.Action = "reject"
		}
	})
}

// WithEmbedder replaces the provider embedder. Vector size must still be
// set with WithEmbeddingModel.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter replaces the provider chat client.
func WithCompleter(cp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cp
	})
}

// WithLogger enables structured logging. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
