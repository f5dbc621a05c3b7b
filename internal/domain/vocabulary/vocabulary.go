// Package vocabulary is the controlled vocabulary for classifier tags.
package vocabulary

import (
	"strings"

	"github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Category names a tag list of the enrichment.
type Category string

// Tag categories.
const (
	Standards       Category = "standards"
	Patterns        Category = "patterns"
	Functionalities Category = "functionalities"
	Domains         Category = "application_domain"
)

// Categories lists every category in prompt order.
var Categories = []Category{Standards, Patterns, Functionalities, Domains}

// Finding is an out-of-vocabulary value kept on the record and reported.
type Finding struct {
	Category Category
	Value    string
}

var index = buildIndex()

func buildIndex() map[Category]map[string]Term {
	idx := make(map[Category]map[string]Term, len(Categories))
	for _, c := range Categories {
		m := make(map[string]Term)
		for _, t := range Terms(c) {
			m[t.Value] = t
		}
		idx[c] = m
	}
	return idx
}

// Terms returns the allowed terms of a category in definition order.
func Terms(c Category) []Term {
	switch c {
	case Standards:
		return standards
	case Patterns:
		return patterns
	case Functionalities:
		return functionalities
	case Domains:
		return domains
	}
	return nil
}

// Normalize lowercases a tag and folds spaces into the stored spelling.
func Normalize(c Category, v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if c == Standards {
		return strings.Join(strings.Fields(v), "-")
	}
	return strings.Join(strings.Fields(v), "_")
}

// Contains reports whether v is an allowed value of c.
func Contains(c Category, v string) bool {
	_, ok := index[c][v]
	return ok
}

// Describe returns the definition of v, empty for unknown values.
func Describe(c Category, v string) string {
	return index[c][v].Description
}

// Normalized returns a copy of e with every tag normalized. Unknown values are kept.
func Normalized(e deployment.Enrichment) deployment.Enrichment {
	out := e.Clone()
	normalizeList(Standards, out.Standards)
	normalizeList(Patterns, out.Patterns)
	normalizeList(Functionalities, out.Functionalities)
	out.Domain = Normalize(Domains, out.Domain)
	return out
}

func normalizeList(c Category, vs []string) {
	for i, v := range vs {
		vs[i] = Normalize(c, v)
	}
}

// Check returns out-of-vocabulary values in e. An empty domain is not a finding.
func Check(e deployment.Enrichment) []Finding {
	var out []Finding
	collect := func(c Category, vs ...string) {
		for _, v := range vs {
			if v == "" && c == Domains {
				continue
			}
			if !Contains(c, v) {
				out = append(out, Finding{Category: c, Value: v})
			}
		}
	}
	collect(Standards, e.Standards...)
	collect(Patterns, e.Patterns...)
	collect(Functionalities, e.Functionalities...)
	collect(Domains, e.Domain)
	return out
}

// Expand appends term definitions to each known tag, used as embedding input.
func Expand(e deployment.Enrichment) []string {
	var out []string
	add := func(c Category, vs ...string) {
		for _, v := range vs {
			if d := Describe(c, v); d != "" {
				out = append(out, v+": "+d)
			}
		}
	}
	add(Standards, e.Standards...)
	add(Patterns, e.Patterns...)
	add(Functionalities, e.Functionalities...)
	add(Domains, e.Domain)
	return out
}
