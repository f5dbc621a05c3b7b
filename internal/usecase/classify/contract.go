package classify

import (
	"context"

	"github.com/kailas-cloud/contractdex/internal/domain"
)

// Completer runs JSON-mode chat completions.
type Completer interface {
	CompleteJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
}
