// Package contractdex embeds the deployment record pipeline in a Go
// program: enrichment passes, id assignment and search over Redis or Neo4j.
package contractdex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/app"
	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contractdex/internal/domain/search/request"
	domusage "github.com/kailas-cloud/contractdex/internal/domain/usage"
	"github.com/kailas-cloud/contractdex/internal/logger"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
	"github.com/kailas-cloud/contractdex/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/contractdex/internal/usecase/health"
	identityuc "github.com/kailas-cloud/contractdex/internal/usecase/identity"
	searchuc "github.com/kailas-cloud/contractdex/internal/usecase/search"
)

// Internal interfaces, substituted in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
}

type catalogUseCase interface {
	Get(ctx context.Context, id string) (domdep.Record, error)
	Stats(ctx context.Context) (cataloguc.Stats, error)
	Ingest(ctx context.Context, r io.Reader) (cataloguc.IngestReport, error)
}

type enrichUseCase interface {
	Run(ctx context.Context, mode enrichment.Mode) (enrichment.Report, error)
}

type identityUseCase interface {
	Assign(ctx context.Context, opts identityuc.AssignOptions) (identityuc.AssignReport, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type usageUseCase interface {
	GetReports(ctx context.Context, period domusage.Period) []domusage.Report
}

// Client is the contractdex SDK entry point.
type Client struct {
	app    *app.App
	logger *zap.Logger
	obs    *observer

	searchSvc   searchUseCase
	catalogSvc  catalogUseCase
	enrichSvc   enrichUseCase
	identitySvc identityUseCase
	healthSvc   healthUseCase
	usageSvc    usageUseCase
}

// New creates a Client and connects to the record store.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &clientConfig{}
	for _, o := range opts {
		o.apply(c)
	}
	if c.cfg.Database.Driver == "" {
		return nil, errors.New("contractdex: record store required (use WithRedis or WithNeo4j)")
	}
	c.cfg.ApplyDefaults()
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	obs, err := newObserver(c.logger, c.metricsReg)
	if err != nil {
		return nil, err
	}

	var ov app.Overrides
	if c.embedder != nil {
		ov.Embedder = &embedderAdapter{inner: c.embedder}
	}
	if c.completer != nil {
		ov.Completer = &completerAdapter{inner: c.completer}
	}

	a, err := app.New(ctx, c.cfg, c.logger, ov)
	if err != nil {
		return nil, fmt.Errorf("contractdex: %w", err)
	}
	return &Client{
		app:         a,
		logger:      c.logger,
		obs:         obs,
		searchSvc:   a.Search,
		catalogSvc:  a.Catalog,
		enrichSvc:   a.Enrichment,
		identitySvc: a.Identity,
		healthSvc:   a.Health,
		usageSvc:    a.Usage,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *Client) ctx(ctx context.Context) context.Context {
	return logger.ContextWithLogger(ctx, c.logger)
}

// EnsureIndex creates the record index unless it exists.
func (c *Client) EnsureIndex(ctx context.Context) (created bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ensure_index", start, err) }()

	return c.app.EnsureIndex(c.ctx(ctx))
}

// RecreateIndex drops and rebuilds the record index, e.g. after the
// embedding dimension changed. Records are kept.
func (c *Client) RecreateIndex(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("recreate_index", start, err) }()

	return c.app.RecreateIndex(c.ctx(ctx))
}

// Search runs q and returns the hits best first.
func (c *Client) Search(ctx context.Context, q Query) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := request.New(q.Text, mode.Mode(q.Mode), q.Limit, q.MinScore, q.Refine)
	if err != nil {
		return SearchResult{}, err
	}
	resp, err := c.searchSvc.Search(c.ctx(ctx), req)
	if err != nil {
		return SearchResult{}, err
	}
	out := SearchResult{
		Query:   resp.Query,
		Refined: resp.Refinement != nil,
		Hits:    make([]Hit, 0, len(resp.Results)),
		Skipped: resp.Skipped,
	}
	for i := range resp.Results {
		rec := resp.Results[i].Record()
		out.Hits = append(out.Hits, Hit{Record: recordFromDomain(&rec), Score: resp.Results[i].Score()})
	}
	return out, nil
}

// Get returns a record by id.
func (c *Client) Get(ctx context.Context, id string) (_ Record, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	rec, err := c.catalogSvc.Get(c.ctx(ctx), id)
	if err != nil {
		return Record{}, err
	}
	return recordFromDomain(&rec), nil
}

// Stats counts records by pipeline state.
func (c *Client) Stats(ctx context.Context) (_ Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	st, err := c.catalogSvc.Stats(c.ctx(ctx))
	if err != nil {
		return Stats{}, err
	}
	return Stats(st), nil
}

// Ingest inserts deployment records from JSON lines, one object per line.
// Malformed lines are skipped and counted in failed.
func (c *Client) Ingest(ctx context.Context, r io.Reader) (inserted, failed int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	rep, err := c.catalogSvc.Ingest(c.ctx(ctx), r)
	return rep.Inserted, rep.Failed, err
}

// Enrich runs one enrichment pass.
func (c *Client) Enrich(ctx context.Context, m EnrichMode) (_ EnrichReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("enrich", start, err) }()

	em, err := enrichment.ParseMode(string(m))
	if err != nil {
		return EnrichReport{}, err
	}
	rep, err := c.enrichSvc.Run(c.ctx(ctx), em)
	return enrichReportFromDomain(&rep), err
}

// AssignIDs stores content-addressed ids on records that lack one, or on
// every record with force. It returns the number of ids written.
func (c *Client) AssignIDs(ctx context.Context, force bool) (assigned int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("assign_ids", start, err) }()

	rep, err := c.identitySvc.Assign(c.ctx(ctx), identityuc.AssignOptions{Force: force})
	if err != nil {
		return rep.Assigned, err
	}
	if rep.Failed > 0 {
		return rep.Assigned, fmt.Errorf("contractdex: %d id writes failed", rep.Failed)
	}
	return rep.Assigned, nil
}

// embedderAdapter wraps the public Embedder to satisfy the internal chain.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, a, texts)
}

// completerAdapter wraps the public Completer to satisfy domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) CompleteJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	r, err := a.inner.CompleteJSON(ctx, req.System, req.User)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("complete: %w: %w", domain.ErrLLMProviderError, err)
	}
	return domain.ChatResult{
		Content:          r.Content,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.PromptTokens + r.CompletionTokens,
	}, nil
}
