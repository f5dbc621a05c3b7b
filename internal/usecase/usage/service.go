// Package usage reports token consumption per budget scope.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/contractdex/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	readers []BudgetReader
	now     func() time.Time
}

// New creates a Service over the configured budgets. With no readers
// every report is empty (unlimited mode).
func New(readers ...BudgetReader) *Service {
	return &Service{readers: readers, now: time.Now}
}

// GetReports builds one report per budget scope for the given period.
func (s *Service) GetReports(_ context.Context, period domusage.Period) []domusage.Report {
	now := s.now().UTC()
	var start, end time.Time

	switch period {
	case domusage.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		period = domusage.PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	}

	reports := make([]domusage.Report, 0, len(s.readers))
	for _, r := range s.readers {
		snap := r.Daily()
		if period == domusage.PeriodMonth {
			snap = r.Monthly()
		}
		reports = append(reports, domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), snap))
	}
	return reports
}
