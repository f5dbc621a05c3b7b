package result

import "github.com/kailas-cloud/contractdex/internal/domain/deployment"

// Result is a single search hit.
type Result struct {
	record deployment.Record
	score  *float64
}

// New creates an unscored hit (literal modes).
func New(rec deployment.Record) Result {
	return Result{record: rec}
}

// NewScored creates a hit carrying a cosine similarity score.
func NewScored(rec deployment.Record, score float64) Result {
	return Result{record: rec, score: &score}
}

// Record returns the matched deployment record.
func (r *Result) Record() deployment.Record { return r.record }

// ID returns the matched record identifier.
func (r *Result) ID() string { return r.record.ID() }

// Score returns the similarity score, nil for unscored modes.
func (r *Result) Score() *float64 { return r.score }
