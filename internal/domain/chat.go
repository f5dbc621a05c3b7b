package domain

import "context"

// Completer runs a chat completion constrained to a single JSON object.
type Completer interface {
	CompleteJSON(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// ChatRequest is one system+user exchange.
type ChatRequest struct {
	Purpose     string // metrics label: classify, stage name, refine
	System      string
	User        string
	Temperature *float32 // nil uses the provider default
	MaxTokens   int      // 0 uses the provider default
}

// ChatResult carries the raw model output and token usage.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
