package classify

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/vocabulary"
	"github.com/kailas-cloud/contractdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

const tokenSource = `pragma solidity ^0.8.20;
contract Token is ERC20, Ownable {
    function mint(address to, uint256 amount) external onlyOwner { _mint(to, amount); }
}`

const validOutput = `{"description":"A mintable ERC-20 token owned by a single admin.",
"standards":["ERC 20"],"patterns":["Access Control Ownable","made up pattern"],
"functionalities":["token_minting"],"application_domain":"Utility General Purpose",
"security_risks_description":"The owner can mint unlimited supply."}`

// --- Mocks ---

type mockCompleter struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
	calls []domain.ChatRequest
}

func (m *mockCompleter) CompleteJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.fn(ctx, req)
}

func (m *mockCompleter) purposes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Purpose
	}
	return out
}

func reply(content string) func(context.Context, domain.ChatRequest) (domain.ChatResult, error) {
	return func(context.Context, domain.ChatRequest) (domain.ChatResult, error) {
		return domain.ChatResult{Content: content, TotalTokens: 100}, nil
	}
}

// --- Single-shot ---

func TestSingleShot_Classify(t *testing.T) {
	llm := &mockCompleter{fn: reply("```json\n" + validOutput + "\n```")}
	c := NewSingleShot(llm, Options{MaxTokens: 512})

	res, err := c.Classify(context.Background(), tokenSource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := res.Enrichment
	if len(e.Standards) != 1 || e.Standards[0] != "erc-20" {
		t.Errorf("standards not normalized: %v", e.Standards)
	}
	if e.Patterns[0] != "access_control_ownable" || e.Patterns[1] != "made_up_pattern" {
		t.Errorf("patterns = %v", e.Patterns)
	}
	if e.Domain != "utility_general_purpose" {
		t.Errorf("domain = %q", e.Domain)
	}
	if len(res.Findings) != 1 || res.Findings[0] != (vocabulary.Finding{Category: vocabulary.Patterns, Value: "made_up_pattern"}) {
		t.Errorf("findings = %v", res.Findings)
	}
	if res.Trace != nil {
		t.Errorf("single-shot should not trace stages")
	}

	if len(llm.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(llm.calls))
	}
	req := llm.calls[0]
	if req.Purpose != PurposeClassify || req.MaxTokens != 512 {
		t.Errorf("request = %+v", req)
	}
	if !strings.Contains(req.User, "// Solidity version") {
		t.Errorf("source was not preprocessed: %q", req.User)
	}
	if !strings.Contains(req.System, "- erc-4337:") || !strings.Contains(req.System, "#### Application Domain (application_domain)") {
		t.Errorf("system prompt lacks the vocabulary")
	}
}

func TestSingleShot_ProviderError(t *testing.T) {
	llm := &mockCompleter{fn: func(context.Context, domain.ChatRequest) (domain.ChatResult, error) {
		return domain.ChatResult{}, domain.ErrLLMProviderError
	}}
	_, err := NewSingleShot(llm, Options{}).Classify(context.Background(), tokenSource)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestSingleShot_Malformed(t *testing.T) {
	llm := &mockCompleter{fn: reply(`{"description": 42}`)}
	_, err := NewSingleShot(llm, Options{}).Classify(context.Background(), tokenSource)
	if !errors.Is(err, domain.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestSingleShot_EmptySourceSkipsModel(t *testing.T) {
	llm := &mockCompleter{fn: reply(validOutput)}
	_, err := NewSingleShot(llm, Options{}).Classify(context.Background(), "/* nothing */")
	if !errors.Is(err, domain.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if len(llm.calls) != 0 {
		t.Fatalf("model must not be called for empty source")
	}
}

func TestNew_Strategies(t *testing.T) {
	llm := &mockCompleter{fn: reply(validOutput)}
	if c, err := New("", llm, Options{}); err != nil || c == nil {
		t.Fatalf("default strategy: %v", err)
	}
	if _, ok := mustNew(t, StrategySingle, llm).(*SingleShot); !ok {
		t.Error("single should build SingleShot")
	}
	if _, ok := mustNew(t, StrategyMultistage, llm).(*MultiStage); !ok {
		t.Error("multistage should build MultiStage")
	}
	if _, err := New("graph", llm, Options{}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func mustNew(t *testing.T, strategy string, llm Completer) Classifier {
	t.Helper()
	c, err := New(strategy, llm, Options{})
	if err != nil {
		t.Fatalf("New(%q): %v", strategy, err)
	}
	return c
}

func TestSystemPrompt_GroupsTerms(t *testing.T) {
	p := SystemPrompt()
	for _, c := range vocabulary.Categories {
		for _, term := range vocabulary.Terms(c) {
			if !strings.Contains(p, "- "+term.Value+": ") {
				t.Fatalf("prompt lacks %s/%s", c, term.Value)
			}
		}
	}
	if strings.Count(p, "##### Token Standards") != 1 {
		t.Error("each group heading should appear once")
	}
}
