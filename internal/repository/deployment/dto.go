package deployment

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kailas-cloud/contractdex/internal/db"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/vector"
)

// Storage-only hash fields derived from the embedding.
const (
	fieldEmbeddingDim = "embedding_dim"
	fieldVector       = "vector"
)

// legacyListSeparator splits list fields written before they were stored
// as JSON arrays.
const legacyListSeparator = ","

// storedFields are returned by FT.SEARCH; the binary vector is never read back.
var storedFields = []string{
	domdep.FieldID.String(),
	domdep.FieldAddress.String(),
	domdep.FieldBlock.String(),
	domdep.FieldStorageProtocol.String(),
	domdep.FieldStorageAddress.String(),
	domdep.FieldExperimental.String(),
	domdep.FieldSolcVersion.String(),
	domdep.FieldVerified.String(),
	domdep.FieldSourceCode.String(),
	domdep.FieldName.String(),
	domdep.FieldDescription.String(),
	domdep.FieldStandards.String(),
	domdep.FieldPatterns.String(),
	domdep.FieldFunctionalities.String(),
	domdep.FieldDomain.String(),
	domdep.FieldSecurityRisks.String(),
	domdep.FieldEmbedding.String(),
}

// factFields converts immutable facts into hash fields.
func factFields(f domdep.Facts) map[string]string {
	return map[string]string{
		domdep.FieldAddress.String():         f.Address,
		domdep.FieldBlock.String():           f.Block,
		domdep.FieldStorageProtocol.String(): f.StorageProtocol,
		domdep.FieldStorageAddress.String():  f.StorageAddress,
		domdep.FieldExperimental.String():    domdep.FormatBool(f.Experimental),
		domdep.FieldSolcVersion.String():     f.SolcVersion,
		domdep.FieldVerified.String():        domdep.FormatBool(f.Verified),
		domdep.FieldSourceCode.String():      f.SourceCode,
	}
}

// enrichmentFields converts classifier output into hash fields.
// An empty description is left out so the record stays unenriched.
func enrichmentFields(e *domdep.Enrichment) map[string]string {
	m := map[string]string{
		domdep.FieldStandards.String():       joinList(e.Standards),
		domdep.FieldPatterns.String():        joinList(e.Patterns),
		domdep.FieldFunctionalities.String(): joinList(e.Functionalities),
		domdep.FieldDomain.String():          e.Domain,
		domdep.FieldSecurityRisks.String():   e.SecurityRisks,
	}
	if e.Description != "" {
		m[domdep.FieldDescription.String()] = e.Description
	}
	return m
}

// embeddingFields stores the embedding as its JSON wire format plus the
// index blob and a dimension marker used for presence filtering.
func embeddingFields(v []float32) (map[string]string, error) {
	encoded, err := vector.Encode(v)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		domdep.FieldEmbedding.String(): encoded,
		fieldEmbeddingDim:              strconv.Itoa(len(v)),
		fieldVector:                    db.VectorBlob(v),
	}, nil
}

// buildHashFields converts a full record into HSET fields.
func buildHashFields(rec *domdep.Record) (map[string]string, error) {
	m := factFields(rec.Facts())
	if rec.ID() != "" {
		m[domdep.FieldID.String()] = rec.ID()
	}
	if rec.Name() != "" {
		m[domdep.FieldName.String()] = rec.Name()
	}
	if e := rec.Enrichment(); e != nil {
		for k, v := range enrichmentFields(e) {
			m[k] = v
		}
	}
	if rec.HasEmbedding() {
		emb, err := embeddingFields(rec.Embedding())
		if err != nil {
			return nil, err
		}
		for k, v := range emb {
			m[k] = v
		}
	}
	return m, nil
}

// patchFields converts a patch into HSET fields and HDEL field names.
func patchFields(p domdep.Patch) (set map[string]string, del []string, err error) {
	set = make(map[string]string)
	if id := p.ID(); id != nil {
		set[domdep.FieldID.String()] = *id
	}
	if e := p.Enrichment(); e != nil {
		for k, v := range enrichmentFields(e) {
			set[k] = v
		}
		if e.Description == "" {
			del = append(del, domdep.FieldDescription.String())
		}
	}
	if v := p.Embedding(); v != nil {
		emb, err := embeddingFields(v)
		if err != nil {
			return nil, nil, err
		}
		for k, val := range emb {
			set[k] = val
		}
	}
	return set, del, nil
}

// hashFieldNames maps logical fields to the hash fields that back them.
func hashFieldNames(fields []domdep.Field) []string {
	out := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, f.String())
		if f == domdep.FieldEmbedding {
			out = append(out, fieldEmbeddingDim, fieldVector)
		}
	}
	return out
}

// parseHashFields rebuilds a record from stored fields. An unparseable
// embedding is dropped; callers see the record as unembedded.
func parseHashFields(ref string, m map[string]string) domdep.Record {
	facts := domdep.Facts{
		Address:         m[domdep.FieldAddress.String()],
		Block:           m[domdep.FieldBlock.String()],
		StorageProtocol: m[domdep.FieldStorageProtocol.String()],
		StorageAddress:  m[domdep.FieldStorageAddress.String()],
		Experimental:    domdep.ParseBool(m[domdep.FieldExperimental.String()]),
		SolcVersion:     m[domdep.FieldSolcVersion.String()],
		Verified:        domdep.ParseBool(m[domdep.FieldVerified.String()]),
		SourceCode:      m[domdep.FieldSourceCode.String()],
	}

	var enrichment *domdep.Enrichment
	if desc, ok := m[domdep.FieldDescription.String()]; ok && desc != "" {
		enrichment = &domdep.Enrichment{
			Description:     desc,
			Standards:       splitList(m[domdep.FieldStandards.String()]),
			Patterns:        splitList(m[domdep.FieldPatterns.String()]),
			Functionalities: splitList(m[domdep.FieldFunctionalities.String()]),
			Domain:          m[domdep.FieldDomain.String()],
			SecurityRisks:   m[domdep.FieldSecurityRisks.String()],
		}
	}

	var embedding []float32
	if raw := m[domdep.FieldEmbedding.String()]; raw != "" {
		if v, err := vector.Parse(raw); err == nil {
			embedding = v
		}
	}

	return domdep.Reconstruct(
		m[domdep.FieldID.String()], ref, facts, m[domdep.FieldName.String()],
		enrichment, embedding,
	)
}

// joinList stores a tag list as a JSON array so tags may contain commas.
// An empty list is stored as an empty string.
func joinList(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	b, err := json.Marshal(vs)
	if err != nil {
		return ""
	}
	return string(b)
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var vs []string
		if err := json.Unmarshal([]byte(s), &vs); err == nil {
			return vs
		}
	}
	parts := strings.Split(s, legacyListSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
