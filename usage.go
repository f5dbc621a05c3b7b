package contractdex

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/contractdex/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// BudgetUsage is token consumption of one budget scope ("embedding" or
// "llm") in a period.
type BudgetUsage struct {
	Scope            string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Requests         int64
	TokensUsed       int64
	TokensLimit      int64 // 0 = unlimited
	TokensRemaining  int64 // -1 = unlimited
	CostMillidollars int64
	IsExhausted      bool
}

// Usage reports token usage per budget scope. Scopes without a configured
// budget are not tracked and do not appear.
// Observer always records success; the reports are read from memory.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) []BudgetUsage {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	reports := c.usageSvc.GetReports(ctx, domusage.Period(period))
	out := make([]BudgetUsage, 0, len(reports))
	for i := range reports {
		s := reports[i].Snapshot()
		out = append(out, BudgetUsage{
			Scope:            reports[i].Scope(),
			PeriodStart:      time.UnixMilli(reports[i].PeriodStart()).UTC(),
			PeriodEnd:        time.UnixMilli(reports[i].PeriodEnd()).UTC(),
			Requests:         s.Requests,
			TokensUsed:       s.Used,
			TokensLimit:      s.Limit,
			TokensRemaining:  s.Remaining,
			CostMillidollars: s.CostMillidollars,
			IsExhausted:      s.Exhausted(),
		})
	}
	return out
}
