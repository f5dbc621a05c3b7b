package search

import (
	"context"
	"strings"
	"testing"

	"github.com/kailas-cloud/contractdex/internal/domain"
)

type mockCompleter struct {
	res  domain.ChatResult
	err  error
	last domain.ChatRequest
}

func (m *mockCompleter) CompleteJSON(_ context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	m.last = req
	return m.res, m.err
}

func TestRefine_LLM(t *testing.T) {
	llm := &mockCompleter{res: domain.ChatResult{
		Content:     `{"refined_query":"ERC20 token implementations with mint and burn","reasoning":"added standards"}`,
		TotalTokens: 40,
	}}
	ctx, usage := domain.NewContextWithUsage(context.Background())

	ref := NewRefiner(llm).Refine(ctx, "token")
	if ref.Fallback {
		t.Fatal("unexpected fallback")
	}
	if ref.Original != "token" || ref.Refined != "ERC20 token implementations with mint and burn" || ref.Reasoning != "added standards" {
		t.Errorf("refinement = %+v", ref)
	}
	if llm.last.Purpose != PurposeRefine || llm.last.MaxTokens != 300 || *llm.last.Temperature != 0.3 {
		t.Errorf("request = %+v", llm.last)
	}
	if !strings.HasSuffix(llm.last.User, ": token") {
		t.Errorf("user prompt = %q", llm.last.User)
	}
	if _, completion, _ := usage.Snapshot(); completion != 40 {
		t.Errorf("completion tokens = %d", completion)
	}
}

func TestRefine_EmptyFieldsKeepOriginal(t *testing.T) {
	llm := &mockCompleter{res: domain.ChatResult{Content: `{}`}}
	ref := NewRefiner(llm).Refine(context.Background(), "dao")
	if ref.Refined != "dao" || ref.Reasoning == "" {
		t.Errorf("refinement = %+v", ref)
	}
}

func TestRefine_FallsBack(t *testing.T) {
	tests := map[string]*Refiner{
		"provider error": NewRefiner(&mockCompleter{err: domain.ErrLLMProviderError}),
		"bad json":       NewRefiner(&mockCompleter{res: domain.ChatResult{Content: "sure!"}}),
		"no model":       NewRefiner(nil),
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			ref := r.Refine(context.Background(), "nft marketplace")
			if !ref.Fallback {
				t.Fatal("expected fallback")
			}
			if !strings.HasPrefix(ref.Refined, "nft marketplace - non-fungible token") {
				t.Errorf("refined = %q", ref.Refined)
			}
		})
	}
}

func TestFallbackRefinement(t *testing.T) {
	ref := FallbackRefinement("DAO voting token")
	want := "DAO voting token - ERC20 or ERC721 token standard implementation, " +
		"decentralized governance system with proposal and voting mechanisms"
	if ref.Refined != want {
		t.Errorf("refined = %q", ref.Refined)
	}

	generic := FallbackRefinement("registry")
	if generic.Refined != "registry smart contract functionality with standard implementation patterns" {
		t.Errorf("generic = %q", generic.Refined)
	}
	if generic.Reasoning != "Added general smart contract context" {
		t.Errorf("reasoning = %q", generic.Reasoning)
	}
}
