package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Prompt names.
const (
	PromptAnalyze = "analyze_contract"
	PromptCompare = "compare_contracts"
)

const analyzeTemplate = `You are a smart contract security expert. Please analyze the contract at address %s.

Perform a %s analysis and provide insights on:

1. **Security Vulnerabilities**: Look for common issues like reentrancy, overflow/underflow, access control problems
2. **Code Patterns**: Identify design patterns used (proxy, factory, etc.)
3. **Gas Optimization**: Suggest improvements for gas efficiency
4. **Best Practices**: Evaluate adherence to Solidity best practices

Use the get_contract_details tool to read the verified source first. Please be thorough and provide specific recommendations.`

const compareTemplate = `You are a smart contract analyst. Please compare the following contracts:

Contract ids: %s

Provide a detailed comparison covering:

1. **Functionality**: What each contract does and how they differ
2. **Security**: Compare security implementations and potential vulnerabilities
3. **Architecture**: Analyze design patterns and architectural choices
4. **Similarities**: Identify common code patterns or shared functionality
5. **Differences**: Highlight key differences in implementation
6. **Recommendations**: Suggest which approach is better and why

Please use the contract search tools to gather information about each contract first.`

var analysisTypes = map[string]bool{"security": true, "patterns": true, "full": true}

func analyzePrompt() mcpgo.Prompt {
	return mcpgo.NewPrompt(PromptAnalyze,
		mcpgo.WithPromptDescription("Analyze a smart contract for security vulnerabilities and patterns"),
		mcpgo.WithArgument("contract_address",
			mcpgo.ArgumentDescription("The contract address to analyze"), mcpgo.RequiredArgument()),
		mcpgo.WithArgument("analysis_type",
			mcpgo.ArgumentDescription("Type of analysis: security, patterns, or full")),
	)
}

func comparePrompt() mcpgo.Prompt {
	return mcpgo.NewPrompt(PromptCompare,
		mcpgo.WithPromptDescription("Compare multiple contracts for similarities and differences"),
		mcpgo.WithArgument("contract_ids",
			mcpgo.ArgumentDescription("Comma-separated contract ids to compare"), mcpgo.RequiredArgument()),
	)
}

// AnalyzeContract renders the contract analysis prompt.
func AnalyzeContract(_ context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
	addr := strings.TrimSpace(req.Params.Arguments["contract_address"])
	if addr == "" {
		return nil, errors.New("contract_address is required")
	}
	kind := strings.ToLower(strings.TrimSpace(req.Params.Arguments["analysis_type"]))
	if kind == "" {
		kind = "full"
	}
	if !analysisTypes[kind] {
		return nil, fmt.Errorf("analysis_type must be security, patterns or full, got %q", kind)
	}
	return mcpgo.NewGetPromptResult(
		fmt.Sprintf("Analyze contract %s for %s analysis", addr, kind),
		[]mcpgo.PromptMessage{
			mcpgo.NewPromptMessage(mcpgo.RoleUser, mcpgo.NewTextContent(fmt.Sprintf(analyzeTemplate, addr, kind))),
		},
	), nil
}

// CompareContracts renders the comparison prompt for two or more ids.
func CompareContracts(_ context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
	var ids []string
	for _, id := range strings.Split(req.Params.Arguments["contract_ids"], ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil, errors.New("contract_ids needs at least two ids")
	}
	joined := strings.Join(ids, ", ")
	return mcpgo.NewGetPromptResult(
		"Compare contracts: "+joined,
		[]mcpgo.PromptMessage{
			mcpgo.NewPromptMessage(mcpgo.RoleUser, mcpgo.NewTextContent(fmt.Sprintf(compareTemplate, joined))),
		},
	), nil
}
