package classify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kailas-cloud/contractdex/internal/domain/vocabulary"
)

const classifyPreamble = `Your primary task is to analyze the provided smart contract source code and generate a single, minified JSON object as your response. Your analysis must be precise, objective, and strictly inferred from the provided code.

## Instructions:

Analyze the smart contract code and generate a single, valid, minified JSON object with the following schema. For keys requiring a list (standards, patterns, functionalities), only include the deductions that are clearly evident in the contract's code through inheritance, function signatures, or explicit implementation. Only pick values from the options listed below, never identifiers from the code.

The source code is flattened, so imported contracts are inlined. Analyze the main contract, which usually follows the imported ones.

### JSON Schema:

- description: (String) A 3-4 sentence high-level summary. State the contract's identity, its main purpose and role in the system, what it does, and how it interacts with users or other contracts.
- standards: (List of Strings) All ERC/EIP standards the contract adheres to.
- patterns: (List of Strings) All high-level design patterns used to build the contract.
- functionalities: (List of Strings) Granular tags for specific jobs the contract performs.
- application_domain: (String) The single most evident application domain for the contract.
- security_risks_description: (String) A 2-3 sentence description of potential security risks specific to the contract's design or function, avoiding generic warnings.

---

### Key Definitions and Options:
`

var categoryHints = map[vocabulary.Category]string{
	vocabulary.Standards:       "Pick all that apply. Infer from interface IDs, inheritance, or function signatures.",
	vocabulary.Patterns:        "Pick all that apply.",
	vocabulary.Functionalities: "Pick all that apply.",
	vocabulary.Domains:         "Pick exactly one.",
}

var (
	systemPromptOnce sync.Once
	systemPrompt     string
)

// SystemPrompt returns the classifier system prompt with the controlled
// vocabulary listed per category and group.
func SystemPrompt() string {
	systemPromptOnce.Do(func() {
		var b strings.Builder
		b.WriteString(classifyPreamble)
		for _, c := range vocabulary.Categories {
			fmt.Fprintf(&b, "\n#### %s (%s)\n\n*%s*\n", categoryTitle(c), c, categoryHints[c])
			group := ""
			for _, t := range vocabulary.Terms(c) {
				if t.Group != group {
					group = t.Group
					fmt.Fprintf(&b, "\n##### %s\n", group)
				}
				fmt.Fprintf(&b, "- %s: %s\n", t.Value, t.Description)
			}
		}
		systemPrompt = b.String()
	})
	return systemPrompt
}

func categoryTitle(c vocabulary.Category) string {
	switch c {
	case vocabulary.Standards:
		return "Standards"
	case vocabulary.Patterns:
		return "Patterns"
	case vocabulary.Functionalities:
		return "Functionalities"
	case vocabulary.Domains:
		return "Application Domain"
	}
	return string(c)
}

func classifyUserPrompt(source, analysis string) string {
	if analysis == "" {
		return "Data:\n" + source
	}
	return "Prior analysis:\n" + analysis + "\n\nData:\n" + source
}

const extractSystem = `You are a smart contract analyzer specialized in extracting structural information from Solidity code.
Identify and extract key components like contract names, functions, events, state variables, and inheritance.
Be precise and thorough. Return only valid JSON with the specified fields.`

const extractUser = `Extract key information from this smart contract. Return JSON with:
- contract_name: the name of the main contract
- functions: list of function names with their visibility
- events: list of event names
- state_variables: list of state variables with their types
- inheritance: list of inherited contracts

Contract code:
%s`

const insightSystem = `You are a smart contract security and functionality analyst.
Analyze smart contracts and generate insights about their functionality, domain, security risks, and key features.
Be specific about the contract's domain and functionality. Return only valid JSON with the specified fields.`

const insightUser = `Analyze this smart contract and its extracted information. Return JSON with:
- functionality: 2-3 sentence description of what the contract does
- domain: the application area, for example DeFi, NFT, DAO or Gaming
- security_risks: list of potential security risks
- key_features: list of notable features or patterns

Contract code:
%s

Extracted information:
%s`

const ontologySystem = `You are a smart contract ontology specialist.
Categorize smart contracts into a structured ontology capturing their type, access control mechanisms, state management, business logic, and external interactions.
Return only valid JSON with the specified fields.`

const ontologyUser = `Based on the contract code and insights, populate the contract ontology. Return JSON with:
- contract_type: the type of contract, for example Token, Marketplace or Governance
- access_control: list of access control mechanisms
- state_management: how state is managed
- business_logic: key business logic patterns
- external_interactions: list of external contract interactions

Contract code:
%s

Extracted information:
%s

Generated insights:
%s`
