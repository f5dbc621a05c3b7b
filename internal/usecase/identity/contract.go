package identity

import (
	"context"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// RecordStore is the consumer interface for id passes.
type RecordStore interface {
	ListRecords(ctx context.Context, f domdep.Filter, pageSize, offset int) ([]domdep.Record, error)
	UpsertFields(ctx context.Context, ref string, p domdep.Patch) error
}
