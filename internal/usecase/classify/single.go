package classify

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// PurposeClassify labels single-shot and assemble calls in LLM metrics.
const PurposeClassify = "classify"

// SingleShot classifies with one JSON-mode model call.
type SingleShot struct {
	llm  Completer
	opts Options
}

// NewSingleShot creates a single-shot classifier.
func NewSingleShot(llm Completer, opts Options) *SingleShot {
	return &SingleShot{llm: llm, opts: opts}
}

// Classify preprocesses source, asks the model once and validates the answer.
func (s *SingleShot) Classify(ctx context.Context, source string) (Result, error) {
	ctx, span := tracer.Start(ctx, "classify.single")
	defer span.End()

	src, err := Preprocess(source, s.opts.MaxInputTokens)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("classify.input_tokens_estimate", EstimateTokens(src)))

	e, err := complete(ctx, s.llm, s.opts, src, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	return newResult(e, nil), nil
}

// complete asks for the final enrichment object, optionally primed with
// prior analysis, and validates it.
func complete(ctx context.Context, llm Completer, opts Options, src, analysis string) (deployment.Enrichment, error) {
	res, err := llm.CompleteJSON(ctx, domain.ChatRequest{
		Purpose:     PurposeClassify,
		System:      SystemPrompt(),
		User:        classifyUserPrompt(src, analysis),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return deployment.Enrichment{}, fmt.Errorf("classify: %w", err)
	}
	e, err := ParseEnrichment(res.Content)
	if err != nil {
		return deployment.Enrichment{}, fmt.Errorf("classify: %w", err)
	}
	return e, nil
}
