package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 5
	// MaxVectorLimit caps nearest-neighbour retrieval.
	MaxVectorLimit = 20
	// MaxLiteralLimit caps text and source matches.
	MaxLiteralLimit = 100
	// DefaultMinScore is the similarity threshold applied when none is given.
	DefaultMinScore = 0.0
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	limit      int
	minScore   float64
	refine     bool
}

// New validates and normalizes search parameters.
// Defaults: mode=vector, limit=5. Limits above the mode cap are clamped.
func New(query string, m mode.Mode, limit int, minScore float64, refine bool) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidRequest)
	}
	if m == "" {
		m = mode.Vector
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode %q: %w", m, domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	maxLimit := MaxLiteralLimit
	if m == mode.Vector {
		maxLimit = MaxVectorLimit
	}
	limit = min(limit, maxLimit)
	if minScore < 0 || minScore > 1 {
		return Request{}, fmt.Errorf("min_score must be between 0 and 1: %w", domain.ErrInvalidRequest)
	}

	return Request{
		query:      query,
		searchMode: m,
		limit:      limit,
		minScore:   minScore,
		refine:     refine,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// MinScore returns the minimum similarity threshold (vector mode only).
func (r *Request) MinScore() float64 { return r.minScore }

// Refine reports whether the query should be rewritten before searching.
func (r *Request) Refine() bool { return r.refine }

// WithQuery returns a copy with the query replaced, used after refinement.
func (r Request) WithQuery(q string) Request {
	if q = strings.TrimSpace(q); q != "" {
		r.query = q
	}
	return r
}
