package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/metrics"
)

// Chat runs JSON-mode chat completions against an OpenAI-compatible API.
// Calls are paced by a token-bucket limiter shared by all callers.
type Chat struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// ChatConfig holds the language model settings.
type ChatConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	MaxTokens         int
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int
	Logger            *zap.Logger
}

// NewChat creates a chat completion client.
func NewChat(cfg *ChatConfig) *Chat {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Chat{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      cfg.Logger,
	}
}

// CompleteJSON implements domain.Completer.
func (c *Chat) CompleteJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ChatResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = "default"
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		wrapped := parseAPIError("chat", err, domain.ErrLLMProviderError)
		metrics.LLMRequestsTotal.WithLabelValues(c.model, purpose, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(c.model, errorType(wrapped)).Inc()
		return domain.ChatResult{}, wrapped
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, purpose, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(c.model, "empty_response").Inc()
		return domain.ChatResult{}, fmt.Errorf("empty chat response: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, purpose, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.model, purpose).Observe(duration.Seconds())
	metrics.LLMTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	c.logger.Debug("Chat completion finished",
		zap.String("model", c.model),
		zap.String("purpose", purpose),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return domain.ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
