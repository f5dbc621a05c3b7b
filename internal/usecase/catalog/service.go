// Package catalog covers record lookup, statistics and bulk maintenance.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/batch"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/logger"
)

// DefaultPageSize is used by paged walks when none is given.
const DefaultPageSize = 100

// Service implements catalog operations over a record store.
type Service struct {
	store Store
}

// New creates a catalog service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Stats are record counts by pipeline state. Pipeline states count
// verified records only.
type Stats struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Enriched   int `json:"enriched"`
	Unenriched int `json:"unenriched"`
	Unembedded int `json:"unembedded"`
}

// Stats counts records.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		dst *int
		f   domdep.Filter
	}{
		{&st.Total, domdep.Filter{}},
		{&st.Verified, domdep.Filter{VerifiedOnly: true}},
		{&st.Enriched, domdep.Selection(domdep.StatusEnriched)},
		{&st.Unenriched, domdep.Selection(domdep.StatusUnenriched)},
		{&st.Unembedded, domdep.Selection(domdep.StatusUnembedded)},
	}
	for _, c := range counts {
		n, err := s.store.CountRecords(ctx, c.f)
		if err != nil {
			return Stats{}, fmt.Errorf("count records: %w", err)
		}
		*c.dst = n
	}
	return st, nil
}

// Get returns a record by content id.
func (s *Service) Get(ctx context.Context, id string) (domdep.Record, error) {
	if id == "" {
		return domdep.Record{}, fmt.Errorf("id is required: %w", domain.ErrInvalidRequest)
	}
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domdep.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// GetByRef returns a record by store reference.
func (s *Service) GetByRef(ctx context.Context, ref string) (domdep.Record, error) {
	if ref == "" {
		return domdep.Record{}, fmt.Errorf("ref is required: %w", domain.ErrInvalidRequest)
	}
	rec, err := s.store.GetByNodeRef(ctx, ref)
	if err != nil {
		return domdep.Record{}, fmt.Errorf("get record %s: %w", ref, err)
	}
	return rec, nil
}

// DeleteRequest selects fields and the records to remove them from.
// Exactly one of IDs, Refs or All must be set.
type DeleteRequest struct {
	Fields   []domdep.Field
	IDs      []string
	Refs     []string
	All      bool
	DryRun   bool
	PageSize int
}

func (r DeleteRequest) validate() error {
	if len(r.Fields) == 0 {
		return fmt.Errorf("no fields given: %w", domain.ErrInvalidRequest)
	}
	for _, f := range r.Fields {
		if !slices.Contains(domdep.DeletableFields, f) {
			return fmt.Errorf("field %q cannot be deleted: %w", f, domain.ErrInvalidRequest)
		}
	}
	targets := 0
	for _, set := range []bool{len(r.IDs) > 0, len(r.Refs) > 0, r.All} {
		if set {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("exactly one of ids, refs or all is required: %w", domain.ErrInvalidRequest)
	}
	return nil
}

// DeleteReport summarizes a field deletion.
type DeleteReport struct {
	Targets  int
	Updated  int
	NotFound int
	Failed   int
	DryRun   bool
	Results  []batch.Result
}

// DeleteFields removes fields from the selected records. Missing records and
// write failures are reported per record. A dry run resolves targets only.
func (s *Service) DeleteFields(ctx context.Context, req DeleteRequest) (DeleteReport, error) {
	if err := req.validate(); err != nil {
		return DeleteReport{}, err
	}
	log := logger.FromContext(ctx)
	rep := DeleteReport{DryRun: req.DryRun}

	apply := func(ref, label string) {
		rep.Targets++
		if req.DryRun {
			rep.Results = append(rep.Results, batch.NewOK(label))
			return
		}
		if err := s.store.DeleteFields(ctx, ref, req.Fields...); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				rep.NotFound++
			} else {
				rep.Failed++
				log.Warn("Failed to delete fields", zap.String("target", label), zap.Error(err))
			}
			rep.Results = append(rep.Results, batch.NewError(label, err))
			return
		}
		rep.Updated++
		rep.Results = append(rep.Results, batch.NewOK(label))
	}

	switch {
	case len(req.IDs) > 0:
		for _, id := range req.IDs {
			rec, err := s.store.GetByID(ctx, id)
			if err != nil {
				rep.Targets++
				if errors.Is(err, domain.ErrRecordNotFound) {
					rep.NotFound++
				} else {
					rep.Failed++
				}
				rep.Results = append(rep.Results, batch.NewError(id, err))
				continue
			}
			apply(rec.NodeRef(), id)
		}
	case len(req.Refs) > 0:
		for _, ref := range req.Refs {
			apply(ref, ref)
		}
	default:
		// Field deletion never changes membership of the unfiltered
		// selection, so offset paging stays stable.
		err := s.walk(ctx, domdep.Filter{}, req.PageSize, func(rec *domdep.Record) error {
			apply(rec.NodeRef(), rec.NodeRef())
			return nil
		})
		if err != nil {
			return rep, err
		}
	}

	log.Info("Field deletion finished",
		zap.Strings("fields", fieldNames(req.Fields)),
		zap.Bool("dry_run", rep.DryRun),
		zap.Int("targets", rep.Targets),
		zap.Int("updated", rep.Updated),
		zap.Int("not_found", rep.NotFound),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

// walk visits every record matching f page by page.
func (s *Service) walk(ctx context.Context, f domdep.Filter, pageSize int, fn func(*domdep.Record) error) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.store.ListRecords(ctx, f, pageSize, offset)
		if err != nil {
			return fmt.Errorf("list records at %d: %w", offset, err)
		}
		for i := range page {
			if err := fn(&page[i]); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

func fieldNames(fields []domdep.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.String()
	}
	return out
}
