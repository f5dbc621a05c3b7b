package db

import (
	"fmt"
	"strings"
	"unicode"
)

// MatchAll selects every document of an index.
const MatchAll = "*"

// TagEquals matches a TAG field value exactly.
func TagEquals(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// IsMissing matches documents where field is absent. Requires INDEXMISSING and DIALECT 2.
func IsMissing(field string) string {
	return fmt.Sprintf("ismissing(@%s)", field)
}

// NumericAtLeast matches NUMERIC field values >= v.
func NumericAtLeast(field string, v float64) string {
	return fmt.Sprintf("@%s:[%g +inf]", field, v)
}

// Not negates a clause.
func Not(clause string) string {
	if clause == "" {
		return ""
	}
	return "-" + clause
}

// And intersects clauses, skipping empty ones. No clauses means MatchAll.
func And(clauses ...string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	switch len(parts) {
	case 0:
		return MatchAll
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// TextMatch matches every query term against any of the TEXT fields.
// Terms are split on the same separators the indexer uses, so "erc-20"
// matches a document containing "ERC-20".
func TextMatch(fields []string, text string) string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(terms) == 0 || len(fields) == 0 {
		return ""
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(fields, "|"), strings.Join(terms, " "))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
