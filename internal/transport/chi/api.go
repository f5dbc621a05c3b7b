package chi

import "time"

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeRecordNotFound         ErrorResponseCode = "record_not_found"
	ErrorResponseCodeRateLimited            ErrorResponseCode = "rate_limited"
	ErrorResponseCodeQuotaExceeded          ErrorResponseCode = "quota_exceeded"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeLLMProviderError       ErrorResponseCode = "llm_provider_error"
	ErrorResponseCodeDimensionMismatch      ErrorResponseCode = "embedding_dimension_mismatch"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query    string   `json:"query"`
	Mode     *string  `json:"mode,omitempty"`
	Limit    *int     `json:"limit,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
	Refine   *bool    `json:"refine,omitempty"`
}

// VectorSearchRequest is the body of POST /api/v1/vector_search.
type VectorSearchRequest struct {
	Query     string   `json:"query"`
	Limit     *int     `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// RefineRequest is the body of POST /api/v1/refine.
type RefineRequest struct {
	Query string `json:"query"`
}

// RefineResponse is the rewritten query.
type RefineResponse struct {
	OriginalQuery string `json:"original_query"`
	RefinedQuery  string `json:"refined_query"`
	Reasoning     string `json:"reasoning"`
	Fallback      bool   `json:"fallback"`
}

// ContractResult is one search hit.
type ContractResult struct {
	ID                       string   `json:"id"`
	Contract                 string   `json:"contract"`
	Name                     *string  `json:"name,omitempty"`
	Description              string   `json:"description"`
	Standards                []string `json:"standards"`
	Patterns                 []string `json:"patterns"`
	Functionalities          []string `json:"functionalities"`
	ApplicationDomain        string   `json:"application_domain"`
	SecurityRisksDescription string   `json:"security_risks_description"`
	SimilarityScore          *float64 `json:"similarity_score,omitempty"`
}

// SearchResponse lists search hits.
type SearchResponse struct {
	Query      string           `json:"query"`
	Mode       string           `json:"mode"`
	Refinement *RefineResponse  `json:"refinement,omitempty"`
	Results    []ContractResult `json:"results"`
	Count      int              `json:"count"`
	Skipped    int              `json:"skipped,omitempty"`
}

// ContractResponse is a full deployment record.
type ContractResponse struct {
	ContractResult
	Block              string  `json:"block"`
	StorageProtocol    string  `json:"storage_protocol"`
	StorageAddress     string  `json:"storage_address"`
	Experimental       bool    `json:"experimental"`
	SolcVersion        string  `json:"solc_version"`
	VerifiedSource     bool    `json:"verified_source"`
	VerifiedSourceCode *string `json:"verified_source_code,omitempty"`
	Enriched           bool    `json:"enriched"`
	HasEmbedding       bool    `json:"has_embedding"`
}

// GetContractParams are the query parameters of the contract lookups.
type GetContractParams struct {
	IncludeSource *bool `form:"include_source,omitempty" json:"include_source,omitempty"`
}

// GetUsageParams are the query parameters of GET /api/v1/usage.
type GetUsageParams struct {
	Period *string `form:"period,omitempty" json:"period,omitempty"`
}

// BudgetStatus describes one token budget.
type BudgetStatus struct {
	Scope            string     `json:"scope"`
	TokensUsed       int64      `json:"tokens_used"`
	TokensLimit      int64      `json:"tokens_limit"`
	TokensRemaining  int64      `json:"tokens_remaining"`
	Requests         int64      `json:"requests"`
	CostMillidollars *int64     `json:"cost_millidollars,omitempty"`
	IsExhausted      bool       `json:"is_exhausted"`
	ResetsAt         *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse reports token usage for a period.
type UsageResponse struct {
	Period        string         `json:"period"`
	PeriodStartAt *time.Time     `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time     `json:"period_end_at,omitempty"`
	Budgets       []BudgetStatus `json:"budgets"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
