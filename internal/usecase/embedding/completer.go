package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
)

// BudgetedCompleter enforces a token budget on chat completions.
type BudgetedCompleter struct {
	inner  domain.Completer
	budget BudgetChecker
	logger *zap.Logger
}

// NewBudgetedCompleter wraps inner. budget may be nil.
func NewBudgetedCompleter(inner domain.Completer, budget BudgetChecker, logger *zap.Logger) *BudgetedCompleter {
	return &BudgetedCompleter{inner: inner, budget: budget, logger: logger}
}

// CompleteJSON implements domain.Completer.
func (c *BudgetedCompleter) CompleteJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			c.logger.Error("LLM budget exceeded", zap.String("purpose", req.Purpose), zap.Error(err))
			return domain.ChatResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	res, err := c.inner.CompleteJSON(ctx, req)
	if err != nil {
		return domain.ChatResult{}, err
	}

	if c.budget != nil && res.TotalTokens > 0 {
		c.budget.Record(int64(res.TotalTokens))
	}
	return res, nil
}
