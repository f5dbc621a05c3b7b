package domain

import (
	"context"
	"sync"
)

type tokenUsageKey struct{}

// TokenUsage collects model token consumption for one request or one enrichment page.
// The caller puts a pointer into the context; embedders and the chat client add to it.
// Safe for concurrent use since classification runs in parallel within a page.
type TokenUsage struct {
	mu               sync.Mutex
	embeddingTokens  int
	completionTokens int
	used             bool
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// AddEmbeddingTokens records tokens spent on embeddings.
func (u *TokenUsage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.used = true
	u.mu.Unlock()
}

// AddCompletionTokens records tokens spent on chat completions.
func (u *TokenUsage) AddCompletionTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.completionTokens += n
	u.used = true
	u.mu.Unlock()
}

// Snapshot returns embedding and completion totals and whether any model was called.
func (u *TokenUsage) Snapshot() (embedding, completion int, used bool) {
	if u == nil {
		return 0, 0, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens, u.completionTokens, u.used
}
