package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/logger"
	"github.com/kailas-cloud/contractdex/internal/metrics"
)

// StageFunc runs one stage against the shared state.
type StageFunc func(ctx context.Context, st *State) error

// Stage is a named step of a Chain. Needs lists stages that must succeed first.
type Stage struct {
	Name  string
	Needs []string
	Run   StageFunc
}

// StageError attributes a failure to a stage.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error { return e.Cause }

// StageReport is the outcome of one stage. Err is nil on success.
type StageReport struct {
	Stage    string
	Duration time.Duration
	Err      *StageError
}

// Skipped reports whether the stage never ran because a dependency failed.
func (r StageReport) Skipped() bool {
	return r.Err != nil && errors.Is(r.Err.Cause, domain.ErrUpstreamFailed)
}

// Chain runs stages in declaration order.
type Chain struct {
	stages []Stage
}

// NewChain validates that names are unique and every dependency is
// declared earlier.
func NewChain(stages ...Stage) (*Chain, error) {
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if s.Name == "" || s.Run == nil {
			return nil, errors.New("stage needs a name and a func")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate stage %q", s.Name)
		}
		for _, dep := range s.Needs {
			if !seen[dep] {
				return nil, fmt.Errorf("stage %q needs %q which is not declared before it", s.Name, dep)
			}
		}
		seen[s.Name] = true
	}
	return &Chain{stages: stages}, nil
}

// Run executes every stage. A stage whose dependency failed is skipped with
// ErrUpstreamFailed; other failures are recorded and the chain continues.
func (c *Chain) Run(ctx context.Context, st *State) []StageReport {
	log := logger.FromContext(ctx)
	failed := make(map[string]bool, len(c.stages))
	reports := make([]StageReport, 0, len(c.stages))

	for _, s := range c.stages {
		if dep, ok := firstFailed(s.Needs, failed); ok {
			failed[s.Name] = true
			reports = append(reports, StageReport{
				Stage: s.Name,
				Err: &StageError{
					Stage: s.Name,
					Cause: fmt.Errorf("%s: %w", dep, domain.ErrUpstreamFailed),
				},
			})
			continue
		}

		stageCtx, span := tracer.Start(ctx, "classify.stage."+s.Name)
		start := time.Now()
		err := s.Run(stageCtx, st)
		dur := time.Since(start)
		span.SetAttributes(attribute.String("classify.stage", s.Name))

		report := StageReport{Stage: s.Name, Duration: dur}
		if err != nil {
			failed[s.Name] = true
			report.Err = &StageError{Stage: s.Name, Cause: err}
			metrics.ClassifierStageErrorsTotal.WithLabelValues(s.Name).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("Classifier stage failed", zap.String("stage", s.Name), zap.Error(err))
		}
		span.End()
		reports = append(reports, report)
	}
	return reports
}

func firstFailed(needs []string, failed map[string]bool) (string, bool) {
	for _, dep := range needs {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}
