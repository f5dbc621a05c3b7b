package enrichment

import (
	"context"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/usecase/classify"
)

// RecordStore is the consumer interface for enrichment passes.
type RecordStore interface {
	ListRecords(ctx context.Context, f domdep.Filter, pageSize, offset int) ([]domdep.Record, error)
	UpsertFields(ctx context.Context, ref string, p domdep.Patch) error
}

// Classifier produces an enrichment from contract source.
type Classifier interface {
	Classify(ctx context.Context, source string) (classify.Result, error)
}

// Embedder vectorizes one page of embedding inputs per call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
