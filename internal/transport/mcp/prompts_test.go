package mcp

import (
	"context"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func promptRequest(args map[string]string) mcpgo.GetPromptRequest {
	var req mcpgo.GetPromptRequest
	req.Params.Arguments = args
	return req
}

func promptText(t *testing.T, res *mcpgo.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(res.Messages))
	}
	switch c := res.Messages[0].Content.(type) {
	case mcpgo.TextContent:
		return c.Text
	case *mcpgo.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Messages[0].Content)
	return ""
}

func TestAnalyzeContract(t *testing.T) {
	res, err := AnalyzeContract(context.Background(), promptRequest(map[string]string{
		"contract_address": "0xAbC",
		"analysis_type":    "Security",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := promptText(t, res)
	if !strings.Contains(text, "address 0xAbC") || !strings.Contains(text, "Perform a security analysis") {
		t.Errorf("unexpected prompt:\n%s", text)
	}
	if res.Messages[0].Role != mcpgo.RoleUser {
		t.Errorf("role = %s", res.Messages[0].Role)
	}
}

func TestAnalyzeContract_DefaultsToFull(t *testing.T) {
	res, err := AnalyzeContract(context.Background(), promptRequest(map[string]string{"contract_address": "0xAbC"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Description, "full analysis") {
		t.Errorf("description = %q", res.Description)
	}
}

func TestAnalyzeContract_Invalid(t *testing.T) {
	if _, err := AnalyzeContract(context.Background(), promptRequest(nil)); err == nil {
		t.Error("expected error without address")
	}
	_, err := AnalyzeContract(context.Background(), promptRequest(map[string]string{
		"contract_address": "0xAbC",
		"analysis_type":    "gas",
	}))
	if err == nil {
		t.Error("expected error for unknown analysis type")
	}
}

func TestCompareContracts(t *testing.T) {
	res, err := CompareContracts(context.Background(), promptRequest(map[string]string{"contract_ids": "a1, b2,,c3"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(promptText(t, res), "Contract ids: a1, b2, c3") {
		t.Errorf("ids not listed:\n%s", promptText(t, res))
	}

	if _, err := CompareContracts(context.Background(), promptRequest(map[string]string{"contract_ids": "a1"})); err == nil {
		t.Error("expected error for a single id")
	}
}
