package deployment

import "fmt"

// Status selects records by enrichment progress.
type Status string

// Selection states.
const (
	StatusAny        Status = "any"
	StatusEnriched   Status = "enriched"
	StatusUnenriched Status = "unenriched"
	// StatusUnembedded is enriched with no embedding yet.
	StatusUnembedded Status = "unembedded"
)

// IsValid checks the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusAny, StatusEnriched, StatusUnenriched, StatusUnembedded:
		return true
	}
	return false
}

// Filter is a record selection predicate evaluated by the store.
type Filter struct {
	VerifiedOnly bool
	Status       Status
}

// Selection returns the filter used by enrichment passes.
func Selection(status Status) Filter {
	return Filter{VerifiedOnly: true, Status: status}
}

// Validate rejects unknown statuses. An empty status means any.
func (f Filter) Validate() error {
	if f.Status == "" {
		return nil
	}
	if !f.Status.IsValid() {
		return fmt.Errorf("unknown status %q", f.Status)
	}
	return nil
}

// Matches evaluates the filter in memory. Stores must agree with it.
func (f Filter) Matches(r *Record) bool {
	if f.VerifiedOnly && !r.facts.Verified {
		return false
	}
	switch f.Status {
	case StatusEnriched:
		return r.IsEnriched()
	case StatusUnenriched:
		return !r.IsEnriched()
	case StatusUnembedded:
		return r.NeedsEmbedding()
	}
	return true
}
