package deployment

import (
	"github.com/kailas-cloud/contractdex/internal/db"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// buildIndex defines the FT index over deployment hashes.
// description uses INDEXMISSING so "unenriched" is a plain ismissing() clause.
func buildIndex(name, prefix string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).
		Prefix(prefix).
		Tag(domdep.FieldID.String(), db.WithSortable()).
		Tag(domdep.FieldVerified.String()).
		Tag(domdep.FieldAddress.String()).
		Text(domdep.FieldName.String()).
		Text(domdep.FieldDescription.String(), db.WithIndexMissing()).
		Text(domdep.FieldStandards.String()).
		Text(domdep.FieldPatterns.String()).
		Text(domdep.FieldFunctionalities.String()).
		Text(domdep.FieldDomain.String()).
		Text(domdep.FieldSecurityRisks.String()).
		Text(domdep.FieldSourceCode.String(), db.WithNoStem()).
		Numeric(fieldEmbeddingDim).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct)
	return b.Build()
}

// filterQuery renders a selection filter as an FT.SEARCH query (DIALECT 2).
func filterQuery(f domdep.Filter) string {
	var clauses []string
	if f.VerifiedOnly {
		clauses = append(clauses, db.TagEquals(domdep.FieldVerified.String(), domdep.FormatBool(true)))
	}
	descMissing := db.IsMissing(domdep.FieldDescription.String())
	switch f.Status {
	case domdep.StatusEnriched:
		clauses = append(clauses, db.Not(descMissing))
	case domdep.StatusUnenriched:
		clauses = append(clauses, descMissing)
	case domdep.StatusUnembedded:
		clauses = append(clauses,
			db.Not(descMissing),
			db.Not(db.NumericAtLeast(fieldEmbeddingDim, 1)),
		)
	}
	return db.And(clauses...)
}
