// Package identity assigns and verifies content-addressed record ids.
package identity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/logger"
)

// DefaultPageSize is used when AssignOptions.PageSize is unset.
const DefaultPageSize = 100

// Service walks the record store computing ids from deployment facts.
type Service struct {
	store RecordStore
}

// New creates an identity service.
func New(store RecordStore) *Service {
	return &Service{store: store}
}

// AssignOptions controls an assignment pass.
type AssignOptions struct {
	Force    bool // recompute ids that are already set
	PageSize int
}

// AssignReport summarizes an assignment pass.
type AssignReport struct {
	Scanned    int
	Assigned   int
	AlreadySet int
	Failed     int
}

// Assign computes ids for records missing one, or for every record with
// Force. Write failures are counted and the pass continues; a failed page
// read ends the pass with an error.
func (s *Service) Assign(ctx context.Context, opts AssignOptions) (AssignReport, error) {
	log := logger.FromContext(ctx)
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var rep AssignReport
	err := s.walk(ctx, pageSize, func(rec *domdep.Record) bool {
		rep.Scanned++
		computed := domdep.ComputeID(rec.Facts())
		if rec.ID() != "" && (!opts.Force || rec.ID() == computed) {
			rep.AlreadySet++
			return true
		}
		if err := s.store.UpsertFields(ctx, rec.NodeRef(), domdep.Patch{}.WithID(computed)); err != nil {
			rep.Failed++
			log.Warn("Failed to assign id", zap.String("node_ref", rec.NodeRef()), zap.Error(err))
			return true
		}
		rep.Assigned++
		return true
	})
	if err != nil {
		return rep, err
	}

	log.Info("Id assignment finished",
		zap.Int("scanned", rep.Scanned),
		zap.Int("assigned", rep.Assigned),
		zap.Int("already_set", rep.AlreadySet),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

// Mismatch is a record whose stored id differs from the recomputed one.
type Mismatch struct {
	NodeRef  string
	Stored   string
	Computed string
}

// VerifyReport summarizes a verification pass.
type VerifyReport struct {
	Checked    int
	Matched    int
	Missing    []string // node refs without an id
	Mismatches []Mismatch
}

// OK reports whether every checked record carries its computed id.
func (r VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Mismatches) == 0
}

// Verify recomputes ids for up to sample records (all when sample <= 0).
func (s *Service) Verify(ctx context.Context, sample int) (VerifyReport, error) {
	pageSize := DefaultPageSize
	if sample > 0 {
		pageSize = min(pageSize, sample)
	}

	var rep VerifyReport
	err := s.walk(ctx, pageSize, func(rec *domdep.Record) bool {
		if sample > 0 && rep.Checked >= sample {
			return false
		}
		rep.Checked++
		switch computed := domdep.ComputeID(rec.Facts()); {
		case rec.ID() == "":
			rep.Missing = append(rep.Missing, rec.NodeRef())
		case rec.ID() != computed:
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				NodeRef: rec.NodeRef(), Stored: rec.ID(), Computed: computed,
			})
		default:
			rep.Matched++
		}
		return true
	})
	return rep, err
}

// walk visits every record page by page until fn returns false or a page is empty.
// Ids never affect selection, so offsets advance by full pages.
func (s *Service) walk(ctx context.Context, pageSize int, fn func(*domdep.Record) bool) error {
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("id pass cancelled: %w", err)
		}
		page, err := s.store.ListRecords(ctx, domdep.Filter{Status: domdep.StatusAny}, pageSize, offset)
		if err != nil {
			return fmt.Errorf("list records at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			return nil
		}
		for i := range page {
			if !fn(&page[i]) {
				return nil
			}
		}
	}
}
