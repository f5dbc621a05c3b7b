package enrichment

import (
	"strings"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/vocabulary"
)

// EmbeddingText renders an enrichment as embedding input. Known tags are
// expanded with their vocabulary definitions.
func EmbeddingText(e domdep.Enrichment) string {
	var b strings.Builder
	line := func(label, v string) {
		if v == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	line("Description", e.Description)
	line("Standards", strings.Join(e.Standards, ", "))
	line("Patterns", strings.Join(e.Patterns, ", "))
	line("Functionalities", strings.Join(e.Functionalities, ", "))
	line("Application domain", e.Domain)
	line("Security risks", e.SecurityRisks)
	if defs := vocabulary.Expand(e); len(defs) > 0 {
		b.WriteString("Definitions:\n")
		for _, d := range defs {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}
