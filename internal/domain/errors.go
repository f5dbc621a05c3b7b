package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRecordNotFound signals a missing deployment record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidRequest signals malformed input from a caller.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDimensionMismatch signals that the embedding model returned vectors
	// of a size other than the configured one. Fatal for an enrichment run.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded signals an exhausted token budget.
	ErrQuotaExceeded = errors.New("token quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a language model transport failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrMalformedOutput signals classifier output that does not fit the expected object.
	ErrMalformedOutput = errors.New("malformed classifier output")
	// ErrEmptySource signals a record whose source is empty after preprocessing.
	ErrEmptySource = errors.New("empty source code")
	// ErrUpstreamFailed marks a classifier stage skipped because a dependency failed.
	ErrUpstreamFailed = errors.New("upstream stage failed")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the observed sizes.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}

// CheckDimensions verifies every vector has exactly want components.
// A non-positive want disables the check.
func CheckDimensions(want int, vectors ...[]float32) error {
	if want <= 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != want {
			return NewDimensionMismatch(want, len(v))
		}
	}
	return nil
}

// publicSentinels are the errors whose message may be shown to API callers.
var publicSentinels = []error{
	ErrRecordNotFound,
	ErrRateLimited,
	ErrQuotaExceeded,
	ErrDimensionMismatch,
	ErrEmbeddingProviderError,
	ErrLLMProviderError,
}

// PublicMessage returns a caller-facing message for err without exposing
// internals. Validation errors keep their detail since it only echoes
// caller input.
func PublicMessage(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return err.Error()
	}
	for _, s := range publicSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
