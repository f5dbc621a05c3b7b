// Package usage models token consumption reports for the embedding and
// language model scopes.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means day.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, true
	case PeriodMonth:
		return PeriodMonth, true
	default:
		return "", false
	}
}

// Snapshot is a point-in-time view of one budget scope for one period.
type Snapshot struct {
	Scope            string
	Limit            int64 // 0 = unlimited
	Used             int64
	Remaining        int64 // -1 = unlimited
	Requests         int64
	CostMillidollars int64
}

// Exhausted reports whether a limited budget has no tokens left.
func (s Snapshot) Exhausted() bool {
	return s.Limit > 0 && s.Remaining == 0
}

// Report is the usage of one scope over a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	snapshot    Snapshot
}

// NewReport creates a usage report. start and end are unix millis.
func NewReport(period Period, start, end int64, s Snapshot) Report {
	return Report{period: period, periodStart: start, periodEnd: end, snapshot: s}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp, which is also when the budget resets.
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Scope returns the budget scope ("embedding", "llm").
func (r *Report) Scope() string { return r.snapshot.Scope }

// Snapshot returns the counters.
func (r *Report) Snapshot() Snapshot { return r.snapshot }
