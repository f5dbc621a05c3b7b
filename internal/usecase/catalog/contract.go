package catalog

import (
	"context"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Store is the record store as seen by catalog operations.
type Store interface {
	ListRecords(ctx context.Context, f domdep.Filter, pageSize, offset int) ([]domdep.Record, error)
	CountRecords(ctx context.Context, f domdep.Filter) (int, error)
	GetByID(ctx context.Context, id string) (domdep.Record, error)
	GetByNodeRef(ctx context.Context, ref string) (domdep.Record, error)
	DeleteFields(ctx context.Context, ref string, fields ...domdep.Field) error
	Insert(ctx context.Context, rec domdep.Record) (string, error)
}
