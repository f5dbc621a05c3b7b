package contractdex

import (
	"context"
	"io"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/search/request"
	domusage "github.com/kailas-cloud/contractdex/internal/domain/usage"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
	"github.com/kailas-cloud/contractdex/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/contractdex/internal/usecase/health"
	identityuc "github.com/kailas-cloud/contractdex/internal/usecase/identity"
	searchuc "github.com/kailas-cloud/contractdex/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req request.Request) (searchuc.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) (searchuc.Response, error) {
	return m.searchFn(ctx, req)
}

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	getFn    func(ctx context.Context, id string) (domdep.Record, error)
	statsFn  func(ctx context.Context) (cataloguc.Stats, error)
	ingestFn func(ctx context.Context, r io.Reader) (cataloguc.IngestReport, error)
}

func (m *mockCatalogUC) Get(ctx context.Context, id string) (domdep.Record, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalogUC) Stats(ctx context.Context) (cataloguc.Stats, error) {
	return m.statsFn(ctx)
}

func (m *mockCatalogUC) Ingest(ctx context.Context, r io.Reader) (cataloguc.IngestReport, error) {
	return m.ingestFn(ctx, r)
}

// --- enrichUseCase mock ---

type mockEnrichUC struct {
	runFn func(ctx context.Context, mode enrichment.Mode) (enrichment.Report, error)
}

func (m *mockEnrichUC) Run(ctx context.Context, mode enrichment.Mode) (enrichment.Report, error) {
	return m.runFn(ctx, mode)
}

// --- identityUseCase mock ---

type mockIdentityUC struct {
	assignFn func(ctx context.Context, opts identityuc.AssignOptions) (identityuc.AssignReport, error)
}

func (m *mockIdentityUC) Assign(ctx context.Context, opts identityuc.AssignOptions) (identityuc.AssignReport, error) {
	return m.assignFn(ctx, opts)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- usageUseCase mock ---

type mockUsageUC struct {
	reports []domusage.Report
}

func (m *mockUsageUC) GetReports(_ context.Context, _ domusage.Period) []domusage.Report {
	return m.reports
}
