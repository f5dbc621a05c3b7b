// Package chi exposes the search and lookup API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contractdex/internal/domain/search/request"
	"github.com/kailas-cloud/contractdex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/contractdex/internal/domain/usage"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/contractdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/contractdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/contractdex/internal/usecase/usage"
)

// Vector search parameter bounds.
const (
	minVectorLimit     = 1
	defaultVectorLimit = 5
	defaultThreshold   = 0.7
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SearchDefaults are applied to POST /api/v1/search when the body omits them.
type SearchDefaults struct {
	Limit    int
	MinScore float64
	Refine   bool
}

// Server serves the HTTP API.
type Server struct {
	search        *searchuc.Service
	refiner       searchuc.QueryRefiner
	catalog       *cataloguc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	defaults      SearchDefaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. refiner may be nil, in which case
// /api/v1/refine uses keyword rules only.
func NewServer(
	search *searchuc.Service,
	refiner searchuc.QueryRefiner,
	catalog *cataloguc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	defaults SearchDefaults,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		refiner:  refiner,
		catalog:  catalog,
		usage:    usage,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, ErrorResponseCodeRecordNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, ErrorResponseCodeQuotaExceeded),
		sentinelHandler(domain.ErrDimensionMismatch,
			http.StatusInternalServerError, ErrorResponseCodeDimensionMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorResponseCodeLLMProviderError),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/search", s.Search)
		r.Post("/vector_search", s.VectorSearch)
		r.Post("/refine", s.Refine)
		r.Get("/contracts/by-ref/{ref}", s.GetContractByRef)
		r.Get("/contracts/{id}", s.GetContract)
		r.Get("/stats", s.GetStats)
		r.Get("/usage", s.GetUsage)
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	m := mode.Vector
	if body.Mode != nil {
		m = mode.Mode(*body.Mode)
	}
	limit := s.defaults.Limit
	if body.Limit != nil {
		limit = *body.Limit
	}
	minScore := 0.0
	if m == mode.Vector {
		minScore = s.defaults.MinScore
	}
	if body.MinScore != nil {
		minScore = *body.MinScore
	}
	refine := s.defaults.Refine
	if body.Refine != nil {
		refine = *body.Refine
	}

	req, err := request.New(body.Query, m, limit, minScore, refine)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.runSearch(w, r, req)
}

// VectorSearch handles POST /api/v1/vector_search.
func (s *Server) VectorSearch(w http.ResponseWriter, r *http.Request) {
	var body VectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	limit := defaultVectorLimit
	if body.Limit != nil {
		limit = *body.Limit
	}
	if limit < minVectorLimit || limit > request.MaxVectorLimit {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("limit must be between %d and %d", minVectorLimit, request.MaxVectorLimit))
		return
	}
	threshold := defaultThreshold
	if body.Threshold != nil {
		threshold = *body.Threshold
	}

	req, err := request.New(body.Query, mode.Vector, limit, threshold, false)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req request.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())

	resp, err := s.search.Search(ctx, req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setTokenHeaders(w, usage)
	out := SearchResponse{
		Query:   resp.Query,
		Mode:    string(req.Mode()),
		Results: make([]ContractResult, len(resp.Results)),
		Count:   len(resp.Results),
		Skipped: resp.Skipped,
	}
	if resp.Refinement != nil {
		ref := refinementToAPI(*resp.Refinement)
		out.Refinement = &ref
	}
	for i := range resp.Results {
		out.Results[i] = resultToAPI(&resp.Results[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// Refine handles POST /api/v1/refine.
func (s *Server) Refine(w http.ResponseWriter, r *http.Request) {
	var body RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req, err := request.New(body.Query, mode.Vector, 0, 0, true)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	var ref searchuc.Refinement
	if s.refiner != nil {
		ref = s.refiner.Refine(ctx, req.Query())
	} else {
		ref = searchuc.FallbackRefinement(req.Query())
	}
	setTokenHeaders(w, usage)
	writeJSON(w, http.StatusOK, refinementToAPI(ref))
}

// GetContract handles GET /api/v1/contracts/{id}.
func (s *Server) GetContract(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := bindPathParam(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	params, err := bindContractParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	rec, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contractToAPI(&rec, params.IncludeSource != nil && *params.IncludeSource))
}

// GetContractByRef handles GET /api/v1/contracts/by-ref/{ref}.
func (s *Server) GetContractByRef(w http.ResponseWriter, r *http.Request) {
	var ref string
	if err := bindPathParam(r, "ref", &ref); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	params, err := bindContractParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	rec, err := s.catalog.GetByRef(r.Context(), ref)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contractToAPI(&rec, params.IncludeSource != nil && *params.IncludeSource))
}

// GetStats handles GET /api/v1/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params GetUsageParams
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter period: "+err.Error())
		return
	}
	raw := ""
	if params.Period != nil {
		raw = *params.Period
	}
	period, ok := domusage.ParsePeriod(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "period must be day or month")
		return
	}

	reports := s.usage.GetReports(r.Context(), period)
	resp := UsageResponse{Period: string(period), Budgets: make([]BudgetStatus, 0, len(reports))}
	for i := range reports {
		rep := &reports[i]
		if resp.PeriodStartAt == nil && rep.PeriodStart() > 0 {
			start := time.UnixMilli(rep.PeriodStart()).UTC()
			end := time.UnixMilli(rep.PeriodEnd()).UTC()
			resp.PeriodStartAt = &start
			resp.PeriodEndAt = &end
		}
		snap := rep.Snapshot()
		b := BudgetStatus{
			Scope:           snap.Scope,
			TokensUsed:      snap.Used,
			TokensLimit:     snap.Limit,
			TokensRemaining: snap.Remaining,
			Requests:        snap.Requests,
			IsExhausted:     snap.Exhausted(),
		}
		if snap.CostMillidollars > 0 {
			cost := snap.CostMillidollars
			b.CostMillidollars = &cost
		}
		if snap.Limit > 0 && rep.PeriodEnd() > 0 {
			resetsAt := time.UnixMilli(rep.PeriodEnd()).UTC()
			b.ResetsAt = &resetsAt
		}
		resp.Budgets = append(resp.Budgets, b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func bindPathParam(r *http.Request, name string, dest *string) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chirouter.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

func bindContractParams(r *http.Request) (GetContractParams, error) {
	var params GetContractParams
	err := runtime.BindQueryParameter("form", true, false, "include_source", r.URL.Query(), &params.IncludeSource)
	if err != nil {
		return params, fmt.Errorf("invalid format for parameter include_source: %w", err)
	}
	return params, nil
}

func setTokenHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	emb, completion, used := usage.Snapshot()
	if !used {
		return
	}
	if emb > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(emb))
	}
	if completion > 0 {
		w.Header().Set("X-Completion-Tokens", strconv.Itoa(completion))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := domain.PublicMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func refinementToAPI(ref searchuc.Refinement) RefineResponse {
	return RefineResponse{
		OriginalQuery: ref.Original,
		RefinedQuery:  ref.Refined,
		Reasoning:     ref.Reasoning,
		Fallback:      ref.Fallback,
	}
}

func resultToAPI(res *result.Result) ContractResult {
	rec := res.Record()
	out := recordToAPI(&rec)
	out.SimilarityScore = res.Score()
	return out
}

func recordToAPI(rec *domdep.Record) ContractResult {
	out := ContractResult{
		ID:              rec.ID(),
		Contract:        rec.Facts().Address,
		Standards:       []string{},
		Patterns:        []string{},
		Functionalities: []string{},
	}
	if name := rec.Name(); name != "" {
		out.Name = &name
	}
	if e := rec.Enrichment(); e != nil {
		out.Description = e.Description
		out.ApplicationDomain = e.Domain
		out.SecurityRisksDescription = e.SecurityRisks
		if e.Standards != nil {
			out.Standards = e.Standards
		}
		if e.Patterns != nil {
			out.Patterns = e.Patterns
		}
		if e.Functionalities != nil {
			out.Functionalities = e.Functionalities
		}
	}
	return out
}

func contractToAPI(rec *domdep.Record, includeSource bool) ContractResponse {
	facts := rec.Facts()
	out := ContractResponse{
		ContractResult:  recordToAPI(rec),
		Block:           facts.Block,
		StorageProtocol: facts.StorageProtocol,
		StorageAddress:  facts.StorageAddress,
		Experimental:    facts.Experimental,
		SolcVersion:     facts.SolcVersion,
		VerifiedSource:  facts.Verified,
		Enriched:        rec.IsEnriched(),
		HasEmbedding:    rec.HasEmbedding(),
	}
	if includeSource && facts.SourceCode != "" {
		src := facts.SourceCode
		out.VerifiedSourceCode = &src
	}
	return out
}
