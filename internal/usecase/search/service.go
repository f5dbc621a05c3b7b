// Package search answers vector, text and source queries over deployment records.
package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contractdex/internal/domain/search/request"
	"github.com/kailas-cloud/contractdex/internal/domain/search/result"
	"github.com/kailas-cloud/contractdex/internal/domain/vector"
	"github.com/kailas-cloud/contractdex/internal/logger"
	"github.com/kailas-cloud/contractdex/internal/metrics"
)

// Service handles record search across vector, text and source modes.
type Service struct {
	repo    Repository
	embed   Embedder
	refiner QueryRefiner
}

// New creates a search service. refiner may be nil; refinement requests
// then search the original query.
func New(repo Repository, embed Embedder, refiner QueryRefiner) *Service {
	return &Service{repo: repo, embed: embed, refiner: refiner}
}

// Response is the outcome of one search.
type Response struct {
	// Query is the text actually searched, after refinement.
	Query      string
	Refinement *Refinement
	Results    []result.Result
	// Skipped counts vector hits dropped for an unreadable stored embedding.
	Skipped int
}

// Search executes req. Corrupt records are skipped, never failing the query.
func (s *Service) Search(ctx context.Context, req request.Request) (Response, error) {
	var resp Response
	if req.Refine() && s.refiner != nil {
		ref := s.refiner.Refine(ctx, req.Query())
		resp.Refinement = &ref
		req = req.WithQuery(ref.Refined)
	}
	resp.Query = req.Query()

	var err error
	switch req.Mode() {
	case mode.Vector:
		resp.Results, resp.Skipped, err = s.searchVector(ctx, req)
	case mode.Text:
		resp.Results, err = s.searchLiteral(ctx, req, func() ([]domdep.Record, error) {
			return s.repo.SearchText(ctx, req.Query(), nil, req.Limit())
		})
	case mode.Source:
		resp.Results, err = s.searchLiteral(ctx, req, func() ([]domdep.Record, error) {
			return s.repo.SearchSource(ctx, req.Query(), req.Limit())
		})
	default:
		err = fmt.Errorf("unsupported search mode %q: %w", req.Mode(), domain.ErrInvalidRequest)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchQueriesTotal.WithLabelValues(string(req.Mode()), status).Inc()
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// searchVector embeds the query, fetches nearest neighbours and rescores
// them by cosine similarity against their stored embeddings.
func (s *Service) searchVector(ctx context.Context, req request.Request) ([]result.Result, int, error) {
	log := logger.FromContext(ctx)

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, 0, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(embResult.TotalTokens)
	q := embResult.Embedding

	hits, err := s.repo.SearchKNN(ctx, q, req.Limit(), domdep.Filter{})
	if err != nil {
		return nil, 0, fmt.Errorf("search knn: %w", err)
	}

	results := make([]result.Result, 0, len(hits))
	skipped := 0
	for _, hit := range hits {
		if !hit.HasEmbedding() || len(hit.Embedding()) != len(q) {
			skipped++
			metrics.SearchSkippedHitsTotal.Inc()
			log.Warn("Skipping hit with unreadable embedding",
				zap.String("id", hit.ID()),
				zap.String("node_ref", hit.NodeRef()),
				zap.Int("stored_dim", len(hit.Embedding())),
			)
			continue
		}
		score := vector.Cosine(q, hit.Embedding())
		if score < req.MinScore() {
			continue
		}
		results = append(results, result.NewScored(hit, score))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].Score() > *results[j].Score()
	})
	if len(results) > req.Limit() {
		results = results[:req.Limit()]
	}
	return results, skipped, nil
}

func (s *Service) searchLiteral(
	ctx context.Context, req request.Request, fetch func() ([]domdep.Record, error),
) ([]result.Result, error) {
	recs, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Mode(), err)
	}
	if len(recs) > req.Limit() {
		recs = recs[:req.Limit()]
	}
	results := make([]result.Result, len(recs))
	for i, r := range recs {
		results[i] = result.New(r)
	}
	logger.FromContext(ctx).Debug("Literal search",
		zap.String("mode", string(req.Mode())), zap.Int("hits", len(results)))
	return results, nil
}
