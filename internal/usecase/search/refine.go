package search

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/logger"
)

// PurposeRefine labels refinement calls in LLM metrics.
const PurposeRefine = "refine"

const refineSystemPrompt = `You are an expert smart contract search query enhancement assistant. Transform user queries into more detailed, semantically rich descriptions that improve search results for smart contracts.

Enhance the query with:
1. Technical terminology relevant to blockchain and smart contracts
2. Specific functionality descriptions
3. Common patterns and standards (ERC20, ERC721, DeFi protocols)
4. Security considerations when relevant
5. Use cases and business logic details

Guidelines:
- Keep the core intent of the original query
- Add semantic depth without changing the meaning
- Mention specific standards, patterns, or protocols when applicable
- Be concise but descriptive, 1-3 sentences
- Focus on functionality, not implementation details

Examples:
Input: "token contract"
Output: "ERC20 or ERC721 token contract implementations with standard transfer functionality, allowance mechanisms, and potentially mintable or burnable capabilities"

Input: "NFT marketplace"
Output: "Non-fungible token marketplace smart contracts implementing ERC721 or ERC1155 standards with auction mechanisms, royalty distribution, and decentralized trading functionality"

Input: "lending protocol"
Output: "Decentralized finance lending and borrowing protocols with collateral management, interest rate calculations, liquidation mechanisms, and automated market maker integration"

Return a JSON object with:
- "refined_query": the enhanced query
- "reasoning": a brief explanation of what you added and why`

// Refinement is a rewritten query.
type Refinement struct {
	Original  string `json:"original_query"`
	Refined   string `json:"refined_query"`
	Reasoning string `json:"reasoning"`
	// Fallback marks a rule-based rewrite used when the model was unavailable.
	Fallback bool `json:"-"`
}

// Refiner rewrites queries with a language model, falling back to keyword rules.
type Refiner struct {
	llm Completer
}

// NewRefiner creates a refiner. A nil llm always uses the keyword rules.
func NewRefiner(llm Completer) *Refiner {
	return &Refiner{llm: llm}
}

var refineTemperature float32 = 0.3

// Refine never fails: provider or output errors produce the rule-based rewrite.
func (r *Refiner) Refine(ctx context.Context, query string) Refinement {
	if r.llm == nil {
		return FallbackRefinement(query)
	}
	res, err := r.llm.CompleteJSON(ctx, domain.ChatRequest{
		Purpose:     PurposeRefine,
		System:      refineSystemPrompt,
		User:        "Please refine this search query: " + query,
		Temperature: &refineTemperature,
		MaxTokens:   300,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Query refinement failed, using keyword rules", zap.Error(err))
		return FallbackRefinement(query)
	}
	domain.UsageFromContext(ctx).AddCompletionTokens(res.TotalTokens)

	var out struct {
		Refined   string `json:"refined_query"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		logger.FromContext(ctx).Warn("Unreadable refinement output, using keyword rules", zap.Error(err))
		return FallbackRefinement(query)
	}
	ref := Refinement{Original: query, Refined: strings.TrimSpace(out.Refined), Reasoning: out.Reasoning}
	if ref.Refined == "" {
		ref.Refined = query
	}
	if ref.Reasoning == "" {
		ref.Reasoning = "Query enhanced with semantic details"
	}
	return ref
}

type keywordRule struct {
	words       []string
	enhancement string
}

var keywordRules = []keywordRule{
	{[]string{"token", "coin", "currency"}, "ERC20 or ERC721 token standard implementation"},
	{[]string{"nft", "collectible", "art", "gaming"}, "non-fungible token with metadata and ownership transfer capabilities"},
	{[]string{"defi", "lending", "borrowing", "liquidity"}, "decentralized finance protocol with automated market maker functionality"},
	{[]string{"governance", "voting", "dao"}, "decentralized governance system with proposal and voting mechanisms"},
	{[]string{"security", "audit", "safe"}, "security-focused implementation with access controls and vulnerability mitigations"},
}

// FallbackRefinement enhances a query by keyword groups. Matching is by
// substring, so "tokens" and "artwork" match too.
func FallbackRefinement(query string) Refinement {
	lower := strings.ToLower(query)
	var enhancements []string
	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				enhancements = append(enhancements, rule.enhancement)
				break
			}
		}
	}
	if len(enhancements) == 0 {
		return Refinement{
			Original:  query,
			Refined:   query + " smart contract functionality with standard implementation patterns",
			Reasoning: "Added general smart contract context",
			Fallback:  true,
		}
	}
	return Refinement{
		Original:  query,
		Refined:   query + " - " + strings.Join(enhancements, ", "),
		Reasoning: "Enhanced with rule-based pattern matching for blockchain terminology",
		Fallback:  true,
	}
}
