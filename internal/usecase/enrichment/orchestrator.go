// Package enrichment drives paged classify-persist-embed passes over the
// record store.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/batch"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/logger"
	"github.com/kailas-cloud/contractdex/internal/metrics"
)

const maxConsecutivePageErrors = 3

// Defaults for zero Options fields.
const (
	DefaultPageSize        = 50
	DefaultConcurrency     = 5
	DefaultClassifyTimeout = 120 * time.Second
	DefaultStoreTimeout    = 30 * time.Second
	DefaultEmbedTimeout    = 60 * time.Second
)

var tracer = otel.Tracer("github.com/kailas-cloud/contractdex/internal/usecase/enrichment")

// Options bound a run.
type Options struct {
	PageSize        int
	Concurrency     int
	ClassifyTimeout time.Duration
	StoreTimeout    time.Duration
	EmbedTimeout    time.Duration
	MaxPages        int // 0 = until an empty page
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.ClassifyTimeout <= 0 {
		o.ClassifyTimeout = DefaultClassifyTimeout
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = DefaultEmbedTimeout
	}
	return o
}

// Orchestrator owns the clients of enrichment passes.
type Orchestrator struct {
	store      RecordStore
	classifier Classifier
	embedder   Embedder
	opts       Options
}

// New creates an orchestrator. The classifier may be nil when only
// embedding modes are run.
func New(store RecordStore, classifier Classifier, embedder Embedder, opts Options) *Orchestrator {
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		embedder:   embedder,
		opts:       opts.withDefaults(),
	}
}

// WithOptions returns a copy of o bound by opts.
func (o *Orchestrator) WithOptions(opts Options) *Orchestrator {
	c := *o
	c.opts = opts.withDefaults()
	return &c
}

// Run executes one pass. Pages are processed strictly in sequence;
// cancellation is observed between pages. Per-record failures only show up
// in the report; a dimension mismatch or repeated page read failures end
// the run with an error.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (Report, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Report{}, err
	}
	if mode.classifies() && o.classifier == nil {
		return Report{}, fmt.Errorf("mode %s needs a classifier: %w", mode, domain.ErrInvalidRequest)
	}

	rep := Report{RunID: uuid.NewString(), Mode: mode}
	log := logger.FromContext(ctx).With(zap.String("run_id", rep.RunID), zap.String("mode", string(mode)))
	ctx = logger.ContextWithLogger(ctx, log)

	ctx, span := tracer.Start(ctx, "enrichment.run")
	span.SetAttributes(attribute.String("enrichment.run_id", rep.RunID), attribute.String("enrichment.mode", string(mode)))
	defer span.End()

	start := time.Now()
	log.Info("Enrichment run started",
		zap.Int("page_size", o.opts.PageSize),
		zap.Int("concurrency", o.opts.Concurrency),
		zap.Int("max_pages", o.opts.MaxPages),
	)

	err := o.loop(ctx, mode, &rep)
	rep.Duration = time.Since(start)

	fields := []zap.Field{
		zap.Int("pages", rep.Pages),
		zap.Int("page_errors", rep.PageErrors),
		zap.Int("processed", rep.Processed),
		zap.Int("enriched", rep.Enriched),
		zap.Int("embedded", rep.Embedded),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Int("embed_failed", rep.EmbedFailed),
		zap.Int("quality_findings", rep.QualityFindings),
		zap.Duration("duration", rep.Duration),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Enrichment run aborted", append(fields, zap.Error(err))...)
		return rep, err
	}
	log.Info("Enrichment run finished", fields...)
	return rep, nil
}

func (o *Orchestrator) loop(ctx context.Context, mode Mode, rep *Report) error {
	log := logger.FromContext(ctx)
	filter := domdep.Selection(mode.status())
	offset, consecutive := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}
		if o.opts.MaxPages > 0 && rep.Pages+rep.PageErrors >= o.opts.MaxPages {
			log.Info("Page limit reached", zap.Int("max_pages", o.opts.MaxPages))
			return nil
		}

		records, err := o.listPage(ctx, filter, offset)
		if err != nil {
			rep.PageErrors++
			consecutive++
			metrics.EnrichmentPagesTotal.WithLabelValues(string(mode), "error").Inc()
			log.Error("Failed to read page", zap.Int("offset", offset), zap.Int("consecutive", consecutive), zap.Error(err))
			if consecutive >= maxConsecutivePageErrors {
				return fmt.Errorf("%d consecutive page reads failed: %w", consecutive, err)
			}
			offset += o.opts.PageSize
			continue
		}
		consecutive = 0
		if len(records) == 0 {
			return nil
		}

		rep.Pages++
		metrics.EnrichmentPagesTotal.WithLabelValues(string(mode), "ok").Inc()

		// A started page runs to completion even if ctx is cancelled meanwhile.
		stats, err := o.processPage(context.WithoutCancel(ctx), mode, offset, records)
		rep.merge(stats)
		if err != nil {
			return err
		}

		if mode.shrinking() {
			offset += stats.remaining
		} else {
			offset += len(records)
		}
	}
}

func (o *Orchestrator) listPage(ctx context.Context, f domdep.Filter, offset int) ([]domdep.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.StoreTimeout)
	defer cancel()
	return o.store.ListRecords(ctx, f, o.opts.PageSize, offset)
}

func (o *Orchestrator) upsert(ctx context.Context, ref string, p domdep.Patch) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.StoreTimeout)
	defer cancel()
	return o.store.UpsertFields(ctx, ref, p)
}

// outcome is the classification result of one record.
type outcome struct {
	enrichment *domdep.Enrichment
	findings   int
	skipped    bool
	err        error
}

func (o *Orchestrator) processPage(ctx context.Context, mode Mode, offset int, records []domdep.Record) (pageStats, error) {
	ctx, span := tracer.Start(ctx, "enrichment.page")
	span.SetAttributes(attribute.Int("enrichment.offset", offset), attribute.Int("enrichment.records", len(records)))
	defer span.End()

	log := logger.FromContext(ctx)
	stats := pageStats{processed: len(records)}

	// Records to embed, with the enrichment the vector must describe.
	var toEmbed []embedItem

	if mode.classifies() {
		outcomes := o.classifyPage(ctx, records)
		for i, out := range outcomes {
			rec := &records[i]
			switch {
			case out.skipped:
				stats.skipped++
				stats.remaining++
				stats.failures = append(stats.failures, batchErr(rec, out.err))
				metrics.EnrichmentRecordsTotal.WithLabelValues(string(mode), "skipped").Inc()
			case out.err != nil:
				stats.failed++
				if mode == ModeNew {
					stats.remaining++
				}
				stats.failures = append(stats.failures, batchErr(rec, out.err))
				metrics.EnrichmentRecordsTotal.WithLabelValues(string(mode), "failed").Inc()
			default:
				stats.enriched++
				stats.findings += out.findings
				metrics.EnrichmentRecordsTotal.WithLabelValues(string(mode), "enriched").Inc()
				toEmbed = append(toEmbed, embedItem{ref: rec.NodeRef(), id: rec.ID(), enrichment: *out.enrichment})
			}
		}
	} else {
		for i := range records {
			rec := &records[i]
			if !rec.IsEnriched() {
				continue
			}
			toEmbed = append(toEmbed, embedItem{ref: rec.NodeRef(), id: rec.ID(), enrichment: *rec.Enrichment()})
		}
	}

	embedded, err := o.embedPage(ctx, toEmbed)
	stats.embedded = embedded.ok
	stats.embedFailed = embedded.failed
	stats.failures = append(stats.failures, embedded.failures...)
	if mode == ModeRepair {
		stats.remaining += len(records) - embedded.ok
	}
	if embedded.ok > 0 {
		metrics.EnrichmentRecordsTotal.WithLabelValues(string(mode), "embedded").Add(float64(embedded.ok))
	}
	if embedded.failed > 0 {
		metrics.EnrichmentRecordsTotal.WithLabelValues(string(mode), "embed_failed").Add(float64(embedded.failed))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	log.Info("Page processed",
		zap.Int("offset", offset),
		zap.Int("records", len(records)),
		zap.Int("enriched", stats.enriched),
		zap.Int("embedded", stats.embedded),
		zap.Int("skipped", stats.skipped),
		zap.Int("failed", stats.failed),
		zap.Int("embed_failed", stats.embedFailed),
	)
	return stats, nil
}

// classifyPage classifies and persists records with bounded fan-out.
// Workers never return errors so one failure cannot cancel its siblings.
func (o *Orchestrator) classifyPage(ctx context.Context, records []domdep.Record) []outcome {
	outcomes := make([]outcome, len(records))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i := range records {
		g.Go(func() error {
			outcomes[i] = o.enrichOne(ctx, &records[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) enrichOne(ctx context.Context, rec *domdep.Record) outcome {
	log := logger.FromContext(ctx).With(zap.String("node_ref", rec.NodeRef()), zap.String("id", rec.ID()))

	cctx, cancel := context.WithTimeout(ctx, o.opts.ClassifyTimeout)
	res, err := o.classifier.Classify(cctx, rec.Facts().SourceCode)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrEmptySource) {
			log.Info("Skipping record with empty source")
			return outcome{skipped: true, err: err}
		}
		log.Warn("Classification failed", zap.Error(err))
		return outcome{err: fmt.Errorf("classify: %w", err)}
	}

	for _, f := range res.Findings {
		metrics.EnrichmentQualityFindingsTotal.WithLabelValues(string(f.Category)).Inc()
	}
	if len(res.Findings) > 0 {
		log.Info("Out-of-vocabulary tags kept", zap.Any("findings", res.Findings))
	}

	if err := o.upsert(ctx, rec.NodeRef(), domdep.Patch{}.WithEnrichment(res.Enrichment)); err != nil {
		log.Warn("Failed to persist enrichment", zap.Error(err))
		return outcome{err: fmt.Errorf("persist enrichment: %w", err)}
	}
	e := res.Enrichment
	return outcome{enrichment: &e, findings: len(res.Findings)}
}

type embedItem struct {
	ref        string
	id         string
	enrichment domdep.Enrichment
}

type embedStats struct {
	ok       int
	failed   int
	failures []batch.Result
}

// embedPage vectorizes a page with one batch call and writes each vector.
// Only a dimension mismatch is returned; other failures are counted.
func (o *Orchestrator) embedPage(ctx context.Context, items []embedItem) (embedStats, error) {
	var st embedStats
	if len(items) == 0 {
		return st, nil
	}
	log := logger.FromContext(ctx)

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = EmbeddingText(it.enrichment)
	}

	ectx, cancel := context.WithTimeout(ctx, o.opts.EmbedTimeout)
	res, err := o.embedder.BatchEmbed(ectx, texts)
	cancel()
	if err == nil && len(res.Embeddings) != len(items) {
		err = fmt.Errorf("got %d embeddings for %d inputs: %w", len(res.Embeddings), len(items), domain.ErrEmbeddingProviderError)
	}
	if err != nil {
		st.failed = len(items)
		for _, it := range items {
			st.failures = append(st.failures, batch.NewError(it.ref, fmt.Errorf("embed: %w", err)))
		}
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return st, fmt.Errorf("embed page: %w", err)
		}
		log.Warn("Embedding failed, records stay unembedded", zap.Int("records", len(items)), zap.Error(err))
		return st, nil
	}

	for i, it := range items {
		if err := o.upsert(ctx, it.ref, domdep.Patch{}.WithEmbedding(res.Embeddings[i])); err != nil {
			st.failed++
			st.failures = append(st.failures, batch.NewError(it.ref, fmt.Errorf("persist embedding: %w", err)))
			log.Warn("Failed to persist embedding", zap.String("node_ref", it.ref), zap.String("id", it.id), zap.Error(err))
			continue
		}
		st.ok++
	}
	return st, nil
}

func batchErr(rec *domdep.Record, err error) batch.Result {
	return batch.NewError(rec.NodeRef(), err)
}
