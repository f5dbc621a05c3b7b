package deployment

import (
	"fmt"
	"strings"
)

// Field names a logical record attribute. Repositories map them to storage.
type Field string

// Fact fields.
const (
	FieldID              Field = "id"
	FieldAddress         Field = "contract"
	FieldBlock           Field = "block"
	FieldStorageProtocol Field = "storage_protocol"
	FieldStorageAddress  Field = "storage_address"
	FieldExperimental    Field = "experimental"
	FieldSolcVersion     Field = "solc_version"
	FieldVerified        Field = "verified_source"
	FieldSourceCode      Field = "verified_source_code"
	FieldName            Field = "name"
)

// Enrichment fields.
const (
	FieldDescription     Field = "description"
	FieldStandards       Field = "standards"
	FieldPatterns        Field = "patterns"
	FieldFunctionalities Field = "functionalities"
	FieldDomain          Field = "application_domain"
	FieldSecurityRisks   Field = "security_risks_description"
	FieldEmbedding       Field = "embeddings"
)

func (f Field) String() string { return string(f) }

// EnrichmentFields are the classifier-owned fields in output order.
var EnrichmentFields = []Field{
	FieldDescription,
	FieldStandards,
	FieldPatterns,
	FieldFunctionalities,
	FieldDomain,
	FieldSecurityRisks,
}

// DeletableFields may be reset by administrative field deletion. Facts are immutable.
var DeletableFields = append(append([]Field{}, EnrichmentFields...), FieldEmbedding, FieldID)

// TextSearchFields are matched by literal text search.
var TextSearchFields = EnrichmentFields

// ParseDeletableFields validates a comma separated field list.
func ParseDeletableFields(csv string) ([]Field, error) {
	var out []Field
	for _, raw := range strings.Split(csv, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		f := Field(name)
		if !isDeletable(f) {
			return nil, fmt.Errorf("field %q cannot be deleted", name)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no fields given")
	}
	return out, nil
}

func isDeletable(f Field) bool {
	for _, d := range DeletableFields {
		if d == f {
			return true
		}
	}
	return false
}
