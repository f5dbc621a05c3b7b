package contractdex

import "github.com/kailas-cloud/contractdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrRecordNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrRateLimited            = domain.ErrRateLimited
	ErrQuotaExceeded          = domain.ErrQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrLLMProviderError       = domain.ErrLLMProviderError
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
)
