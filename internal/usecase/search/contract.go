package search

import (
	"context"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchKNN(ctx context.Context, v []float32, k int, f domdep.Filter) ([]domdep.Record, error)
	SearchText(ctx context.Context, query string, fields []domdep.Field, limit int) ([]domdep.Record, error)
	SearchSource(ctx context.Context, query string, limit int) ([]domdep.Record, error)
}

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Completer runs JSON-mode chat completions for query refinement.
type Completer interface {
	CompleteJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
}

// QueryRefiner rewrites a query before searching.
type QueryRefiner interface {
	Refine(ctx context.Context, query string) Refinement
}
