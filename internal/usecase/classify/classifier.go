// Package classify turns verified contract source into a structured
// enrichment through a language model.
package classify

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/vocabulary"
)

// Strategies.
const (
	StrategySingle     = "single"
	StrategyMultistage = "multistage"
)

var tracer = otel.Tracer("github.com/kailas-cloud/contractdex/internal/usecase/classify")

// Classifier produces an enrichment for one contract source.
type Classifier interface {
	Classify(ctx context.Context, source string) (Result, error)
}

// Result is a validated, vocabulary-normalized enrichment.
type Result struct {
	Enrichment deployment.Enrichment
	// Findings lists tags outside the controlled vocabulary. They stay on the enrichment.
	Findings []vocabulary.Finding
	// Trace is filled by the multi-stage strategy only.
	Trace []StageReport
}

// Options tune both strategies.
type Options struct {
	MaxInputTokens int
	Temperature    *float32
	MaxTokens      int
}

// New builds the classifier for a configured strategy. Empty means single.
func New(strategy string, llm Completer, opts Options) (Classifier, error) {
	switch strategy {
	case "", StrategySingle:
		return NewSingleShot(llm, opts), nil
	case StrategyMultistage:
		return NewMultiStage(llm, opts), nil
	}
	return nil, fmt.Errorf("unknown classifier strategy %q", strategy)
}

func newResult(e deployment.Enrichment, trace []StageReport) Result {
	norm := vocabulary.Normalized(e)
	return Result{
		Enrichment: norm,
		Findings:   vocabulary.Check(norm),
		Trace:      trace,
	}
}
