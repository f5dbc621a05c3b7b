package graph

import (
	"fmt"
	"strings"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Label is the node label of deployment records.
const Label = "ContractDeployment"

// VectorIndexName is the Neo4j vector index over embedding_vector.
const VectorIndexName = "deployment_embedding"

// propVector holds the embedding as a native list for the vector index.
const propVector = "embedding_vector"

const returnNode = "RETURN elementId(n) AS ref, n {.*, " + propVector + ": null} AS props"

// listFields are stored as native string lists.
var listFields = map[domdep.Field]bool{
	domdep.FieldStandards:       true,
	domdep.FieldPatterns:        true,
	domdep.FieldFunctionalities: true,
}

// whereClause renders a selection filter as a Cypher predicate on n.
func whereClause(f domdep.Filter) string {
	var conds []string
	if f.VerifiedOnly {
		conds = append(conds, "n.verified_source = true")
	}
	enriched := "coalesce(n.description, '') <> ''"
	switch f.Status {
	case domdep.StatusEnriched:
		conds = append(conds, enriched)
	case domdep.StatusUnenriched:
		conds = append(conds, "coalesce(n.description, '') = ''")
	case domdep.StatusUnembedded:
		conds = append(conds, enriched, "n."+propVector+" IS NULL")
	}
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ")
}

// containsClause matches $q case-insensitively against any of fields.
func containsClause(fields []domdep.Field) string {
	conds := make([]string, 0, len(fields))
	for _, f := range fields {
		if listFields[f] {
			conds = append(conds, fmt.Sprintf(
				"any(x IN coalesce(n.%s, []) WHERE toLower(x) CONTAINS $q)", f))
			continue
		}
		conds = append(conds, fmt.Sprintf("toLower(coalesce(n.%s, '')) CONTAINS $q", f))
	}
	return "WHERE " + strings.Join(conds, " OR ")
}

// removeClause renders REMOVE for the given fields. Embedding removal also
// drops the index property.
func removeClause(fields []domdep.Field) string {
	props := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		props = append(props, "n."+f.String())
		if f == domdep.FieldEmbedding {
			props = append(props, "n."+propVector)
		}
	}
	return "REMOVE " + strings.Join(props, ", ")
}
