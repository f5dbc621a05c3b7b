package vocabulary

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

func TestTerms_Sizes(t *testing.T) {
	want := map[Category]int{Standards: 14, Patterns: 13, Functionalities: 16, Domains: 22}
	for c, n := range want {
		if got := len(Terms(c)); got != n {
			t.Errorf("%s: %d terms, want %d", c, got, n)
		}
	}
}

func TestTerms_UniqueAndDescribed(t *testing.T) {
	for _, c := range Categories {
		seen := map[string]bool{}
		for _, term := range Terms(c) {
			if seen[term.Value] {
				t.Errorf("%s: duplicate %q", c, term.Value)
			}
			seen[term.Value] = true
			if term.Description == "" {
				t.Errorf("%s: %q has no description", c, term.Value)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		cat  Category
		in   string
		want string
	}{
		{Standards, "ERC-20", "erc-20"},
		{Standards, " erc 721 ", "erc-721"},
		{Patterns, "Reentrancy Guard", "reentrancy_guard"},
		{Domains, "DeFi_Lending", "defi_lending"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.cat, tt.in); got != tt.want {
			t.Errorf("Normalize(%s, %q) = %q, want %q", tt.cat, tt.in, got, tt.want)
		}
	}
}

func TestCheck_ReportsUnknownButKeepsThem(t *testing.T) {
	e := Normalized(deployment.Enrichment{
		Description:     "token",
		Standards:       []string{"ERC-20", "erc-9999"},
		Patterns:        []string{"access_control_ownable"},
		Functionalities: []string{"token_transfer", "moon_math"},
		Domain:          "utility_general_purpose",
	})

	findings := Check(e)
	if len(findings) != 2 {
		t.Fatalf("findings = %v, want 2", findings)
	}
	if findings[0] != (Finding{Category: Standards, Value: "erc-9999"}) {
		t.Errorf("findings[0] = %+v", findings[0])
	}
	if findings[1] != (Finding{Category: Functionalities, Value: "moon_math"}) {
		t.Errorf("findings[1] = %+v", findings[1])
	}
	if len(e.Standards) != 2 || e.Standards[1] != "erc-9999" {
		t.Errorf("unknown value dropped: %v", e.Standards)
	}
}

func TestCheck_EmptyDomainIsNotAFinding(t *testing.T) {
	if f := Check(deployment.Enrichment{Description: "x"}); len(f) != 0 {
		t.Errorf("findings = %v", f)
	}
}

func TestNormalized_DoesNotMutateInput(t *testing.T) {
	in := deployment.Enrichment{Standards: []string{"ERC-20"}}
	_ = Normalized(in)
	if in.Standards[0] != "ERC-20" {
		t.Errorf("input mutated: %v", in.Standards)
	}
}

func TestExpand(t *testing.T) {
	lines := Expand(deployment.Enrichment{
		Standards: []string{"erc-4626", "unknown"},
		Domain:    "defi_yield_aggregator",
	})
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.HasPrefix(lines[0], "erc-4626: The \"Tokenized Vault\"") {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "defi_yield_aggregator: ") {
		t.Errorf("lines[1] = %q", lines[1])
	}
}
