// Package app is the composition root: it turns a Config into connected
// stores, provider decorator chains and use case services.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/config"
	"github.com/kailas-cloud/contractdex/internal/db"
	dbNeo4j "github.com/kailas-cloud/contractdex/internal/db/neo4j"
	dbRedis "github.com/kailas-cloud/contractdex/internal/db/redis"
	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/contractdex/internal/repository/budget"
	deploymentrepo "github.com/kailas-cloud/contractdex/internal/repository/deployment"
	"github.com/kailas-cloud/contractdex/internal/repository/embcache"
	graphrepo "github.com/kailas-cloud/contractdex/internal/repository/graph"
	openaiTransport "github.com/kailas-cloud/contractdex/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
	"github.com/kailas-cloud/contractdex/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/contractdex/internal/usecase/embedding"
	"github.com/kailas-cloud/contractdex/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/contractdex/internal/usecase/health"
	identityuc "github.com/kailas-cloud/contractdex/internal/usecase/identity"
	searchuc "github.com/kailas-cloud/contractdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/contractdex/internal/usecase/usage"
)

// Budget persistence key lifetimes.
const (
	budgetDailyTTL = 48 * time.Hour
	budgetMonthTTL = 62 * 24 * time.Hour
)

// Budget scopes.
const (
	ScopeEmbedding = "embedding"
	ScopeLLM       = "llm"
)

// RecordStore is the full record store surface. Both the Redis and the
// Neo4j repositories implement it.
//
//nolint:interfacebloat // union of the per-use-case contracts
type RecordStore interface {
	EnsureIndex(ctx context.Context) (bool, error)
	DropIndex(ctx context.Context) error
	ListRecords(ctx context.Context, f domdep.Filter, pageSize, offset int) ([]domdep.Record, error)
	CountRecords(ctx context.Context, f domdep.Filter) (int, error)
	GetByID(ctx context.Context, id string) (domdep.Record, error)
	GetByNodeRef(ctx context.Context, ref string) (domdep.Record, error)
	UpsertFields(ctx context.Context, ref string, p domdep.Patch) error
	DeleteFields(ctx context.Context, ref string, fields ...domdep.Field) error
	Insert(ctx context.Context, rec domdep.Record) (string, error)
	SearchKNN(ctx context.Context, v []float32, k int, f domdep.Filter) ([]domdep.Record, error)
	SearchText(ctx context.Context, query string, fields []domdep.Field, limit int) ([]domdep.Record, error)
	SearchSource(ctx context.Context, query string, limit int) ([]domdep.Record, error)
}

var (
	_ RecordStore = (*deploymentrepo.Repo)(nil)
	_ RecordStore = (*graphrepo.Repo)(nil)
)

// Embedder embeds queries and pages with one model.
type Embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// Overrides replace provider clients. Used by the embedded library and tests.
type Overrides struct {
	Embedder  Embedder
	Completer domain.Completer
}

// App holds the wired services.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Records    RecordStore
	Identity   *identityuc.Service
	Catalog    *cataloguc.Service
	Search     *searchuc.Service
	Refiner    *searchuc.Refiner
	Enrichment *enrichment.Orchestrator
	Usage      *usageuc.Service
	Health     *healthuc.Service

	closers []func()
}

// New connects to the configured stores and wires every service.
// The caller owns the App and must Close it.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, ov Overrides) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	kv, pinger, err := a.connect(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	embBudget := a.budget(ctx, ScopeEmbedding, cfg.Embedding.Budget, kv)
	llmBudget := a.budget(ctx, ScopeLLM, cfg.LLM.Budget, kv)

	docEmbedder, queryEmbedder, provider, err := a.embedders(kv, embBudget, ov.Embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	completer := a.completer(llmBudget, ov.Completer)

	var classifier enrichment.Classifier
	if completer != nil {
		c, err := classify.New(cfg.Classifier.Strategy, completer, classify.Options{
			MaxInputTokens: cfg.Classifier.MaxInputTokens,
			Temperature:    &cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("classifier: %w", err)
		}
		classifier = c
	}

	a.Refiner = searchuc.NewRefiner(completer)
	a.Identity = identityuc.New(a.Records)
	a.Catalog = cataloguc.New(a.Records)
	a.Search = searchuc.New(a.Records, queryEmbedder, a.Refiner)
	a.Enrichment = enrichment.New(a.Records, classifier, docEmbedder, enrichment.Options{
		PageSize:        cfg.Enrichment.PageSize,
		Concurrency:     cfg.Enrichment.Concurrency,
		ClassifyTimeout: cfg.Classifier.Timeout(),
		StoreTimeout:    time.Duration(cfg.Enrichment.StoreTimeoutSec) * time.Second,
		EmbedTimeout:    time.Duration(cfg.Enrichment.EmbedTimeoutSec) * time.Second,
		MaxPages:        cfg.Enrichment.MaxPages,
	})

	var readers []usageuc.BudgetReader
	for _, b := range []*embeddinguc.BudgetTracker{embBudget, llmBudget} {
		if b != nil {
			readers = append(readers, b)
		}
	}
	a.Usage = usageuc.New(readers...)
	a.Health = healthuc.New(pinger, newEmbeddingHealthChecker(provider))

	logger.Info("Services wired",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_model", cfg.Embedding.Vectorizer.Model),
		zap.Int("dimensions", cfg.Embedding.Vectorizer.Dimensions),
		zap.String("classifier", cfg.Classifier.Strategy),
		zap.Bool("llm", completer != nil),
		zap.Bool("kv_cache", kv != nil),
	)
	return a, nil
}

// EnsureIndex creates the record index unless it exists.
func (a *App) EnsureIndex(ctx context.Context) (bool, error) {
	return a.Records.EnsureIndex(ctx)
}

// RecreateIndex drops the record index and builds it again with the
// configured vector dimension. Stored records are kept and reindexed.
func (a *App) RecreateIndex(ctx context.Context) error {
	if err := a.Records.DropIndex(ctx); err != nil {
		return err
	}
	if _, err := a.Records.EnsureIndex(ctx); err != nil {
		return err
	}
	a.Logger.Info("record index recreated",
		zap.Int("dimensions", a.Config.Embedding.Vectorizer.Dimensions))
	return nil
}

// Close releases store connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// connect opens the record store and, when configured, the Redis KV used
// for the embedding cache and budget counters.
func (a *App) connect(ctx context.Context) (db.Store, healthuc.DBPinger, error) {
	cfg := a.Config.Database
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second
	dim := a.Config.Embedding.Vectorizer.Dimensions

	var kv db.Store
	if len(cfg.Addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		if err := s.WaitForReady(ctx, readiness); err != nil {
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		kv = s
	}

	switch cfg.Driver {
	case "redis":
		if kv == nil {
			return nil, nil, errors.New("redis driver needs database.addrs")
		}
		a.Records = deploymentrepo.New(kv, dim).WithHNSW(deploymentrepo.HNSWConfig{
			M:           a.Config.Index.HNSWM,
			EFConstruct: a.Config.Index.HNSWEFConstruct,
		})
		a.Logger.Info("Connected to redis", zap.Strings("addrs", cfg.Addrs))
		return kv, kv, nil
	case "neo4j":
		client, err := dbNeo4j.NewClient(dbNeo4j.Config{
			URI:         cfg.Neo4j.URI,
			Username:    cfg.Neo4j.Username,
			Password:    cfg.Neo4j.Password,
			Database:    cfg.Neo4j.Database,
			MaxPoolSize: cfg.Neo4j.MaxPoolSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create neo4j client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		if err := client.WaitForReady(ctx, readiness); err != nil {
			return nil, nil, fmt.Errorf("neo4j not ready: %w", err)
		}
		a.Records = graphrepo.New(client, dim)
		a.Logger.Info("Connected to neo4j", zap.String("uri", cfg.Neo4j.URI))
		return kv, client, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// budget returns a tracker for scope, or nil when no limit is configured.
func (a *App) budget(ctx context.Context, scope string, cfg config.BudgetConfig, kv db.Store) *embeddinguc.BudgetTracker {
	if !cfg.Enabled() {
		return nil
	}
	b := embeddinguc.NewBudgetTracker(scope, embeddinguc.BudgetLimits{
		Daily:                cfg.DailyTokenLimit,
		Monthly:              cfg.MonthlyTokenLimit,
		Action:               embeddinguc.ParseBudgetAction(cfg.Action),
		CostPerMillionTokens: cfg.CostPerMillionTokens,
	}, a.Logger)
	if kv != nil {
		b.WithStore(ctx, budgetrepo.New(kv, budgetDailyTTL, budgetMonthTTL))
	}
	return b
}

// embedders builds the decorator chains:
// OpenAI -> Cached -> Instrumented -> Instruction (document and query).
// provider is the bare client, for health checks past the cache.
func (a *App) embedders(
	kv db.Store, budget *embeddinguc.BudgetTracker, override Embedder,
) (doc, query Embedder, provider domain.Embedder, err error) {
	vec := a.Config.Embedding.Vectorizer

	var base Embedder = override
	if base == nil {
		if vec.Provider == "" {
			base = unconfiguredEmbedder{}
			return base, base, base, nil
		}
		prov := a.Config.Embedding.Providers[vec.Provider]
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     prov.APIKey,
			BaseURL:    prov.BaseURL,
			Model:      vec.Model,
			Dimensions: vec.Dimensions,
			Provider:   vec.Provider,
			Logger:     a.Logger,
		})
	}

	inner := base
	if kv != nil {
		inner = embcache.New(base, kv, embcache.Options{
			Model:      vec.Model,
			Dimensions: vec.Dimensions,
			TTL:        time.Duration(vec.CacheTTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, a.Logger)
	}

	// Pass a nil interface, not a typed nil pointer, when no budget is set.
	var checker embeddinguc.BudgetChecker
	if budget != nil {
		checker = budget
	}
	instrumented := embeddinguc.NewInstrumentedEmbedder(inner, vec.Provider, vec.Model, checker, a.Logger)

	doc = withInstruction(instrumented, vec.DocumentInstruction)
	query = withInstruction(instrumented, vec.QueryInstruction)
	return doc, query, base, nil
}

func withInstruction(e Embedder, instruction string) Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// completer returns the budgeted chat client, or nil when no model is configured.
func (a *App) completer(budget *embeddinguc.BudgetTracker, override domain.Completer) domain.Completer {
	llm := a.Config.LLM
	inner := override
	if inner == nil {
		if llm.Provider == "" {
			return nil
		}
		prov := a.Config.Embedding.Providers[llm.Provider]
		inner = openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:            prov.APIKey,
			BaseURL:           prov.BaseURL,
			Model:             llm.Model,
			Temperature:       llm.Temperature,
			MaxTokens:         llm.MaxTokens,
			RequestsPerSecond: llm.RequestsPerSecond,
			Burst:             llm.Burst,
			Logger:            a.Logger,
		})
	}
	var checker embeddinguc.BudgetChecker
	if budget != nil {
		checker = budget
	}
	return embeddinguc.NewBudgetedCompleter(inner, checker, a.Logger)
}

// unconfiguredEmbedder fails every call; literal search and lookups still work.
type unconfiguredEmbedder struct{}

func (unconfiguredEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("no embedding provider configured: %w", domain.ErrEmbeddingProviderError)
}

func (unconfiguredEmbedder) BatchEmbed(context.Context, []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{}, fmt.Errorf("no embedding provider configured: %w", domain.ErrEmbeddingProviderError)
}

func (unconfiguredEmbedder) HealthCheck(context.Context) error {
	return errors.New("no embedding provider configured")
}

// embeddingHealthChecker adapts an embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
