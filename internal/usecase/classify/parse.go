package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Output keys of the enrichment object.
const (
	keyDescription     = "description"
	keyStandards       = "standards"
	keyPatterns        = "patterns"
	keyFunctionalities = "functionalities"
	keyDomain          = "application_domain"
	keySecurityRisks   = "security_risks_description"
)

// ExtractJSON returns the first balanced JSON object in s. Code fences and
// surrounding prose are ignored. Braces inside string literals do not count.
func ExtractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in output: %w", domain.ErrMalformedOutput)
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in output: %w", domain.ErrMalformedOutput)
}

// decodeObject extracts and decodes the first JSON object of model output.
func decodeObject(content string) (map[string]any, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("decode output: %v: %w", err, domain.ErrMalformedOutput)
	}
	return obj, nil
}

// ParseEnrichment validates classifier output into an Enrichment.
// The description is required; missing lists and scalars are empty,
// null counts as missing. Wrongly typed values are malformed.
func ParseEnrichment(content string) (deployment.Enrichment, error) {
	obj, err := decodeObject(content)
	if err != nil {
		return deployment.Enrichment{}, err
	}

	var e deployment.Enrichment
	if e.Description, err = stringField(obj, keyDescription); err != nil {
		return deployment.Enrichment{}, err
	}
	if strings.TrimSpace(e.Description) == "" {
		return deployment.Enrichment{}, fmt.Errorf("%s is empty: %w", keyDescription, domain.ErrMalformedOutput)
	}
	if e.Standards, err = listField(obj, keyStandards); err != nil {
		return deployment.Enrichment{}, err
	}
	if e.Patterns, err = listField(obj, keyPatterns); err != nil {
		return deployment.Enrichment{}, err
	}
	if e.Functionalities, err = listField(obj, keyFunctionalities); err != nil {
		return deployment.Enrichment{}, err
	}
	if e.Domain, err = stringField(obj, keyDomain); err != nil {
		return deployment.Enrichment{}, err
	}
	if e.SecurityRisks, err = stringField(obj, keySecurityRisks); err != nil {
		return deployment.Enrichment{}, err
	}
	return e, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T: %w", key, v, domain.ErrMalformedOutput)
	}
	return strings.TrimSpace(s), nil
}

func listField(obj map[string]any, key string) ([]string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return []string{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: want array, got %T: %w", key, v, domain.ErrMalformedOutput)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: want string, got %T: %w", key, i, item, domain.ErrMalformedOutput)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// stringList reads an optional list of strings from a stage output,
// accepting a bare string as a single item. Stage outputs are advisory
// so type errors degrade to empty.
func stringList(obj map[string]any, key string) []string {
	switch v := obj[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch x := item.(type) {
			case string:
				if s := strings.TrimSpace(x); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if b, err := json.Marshal(x); err == nil {
					out = append(out, string(b))
				}
			}
		}
		return out
	}
	return nil
}

// stringValue reads an optional scalar from a stage output.
func stringValue(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
