package graph

import (
	"fmt"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/vector"
)

func factProps(f domdep.Facts) map[string]any {
	return map[string]any{
		domdep.FieldAddress.String():         f.Address,
		domdep.FieldBlock.String():           f.Block,
		domdep.FieldStorageProtocol.String(): f.StorageProtocol,
		domdep.FieldStorageAddress.String():  f.StorageAddress,
		domdep.FieldExperimental.String():    f.Experimental,
		domdep.FieldSolcVersion.String():     f.SolcVersion,
		domdep.FieldVerified.String():        f.Verified,
		domdep.FieldSourceCode.String():      f.SourceCode,
	}
}

// enrichmentProps sets all classifier properties. An empty description is
// written as null, which removes it.
func enrichmentProps(e *domdep.Enrichment) map[string]any {
	var desc any
	if e.Description != "" {
		desc = e.Description
	}
	return map[string]any{
		domdep.FieldDescription.String():     desc,
		domdep.FieldStandards.String():       stringList(e.Standards),
		domdep.FieldPatterns.String():        stringList(e.Patterns),
		domdep.FieldFunctionalities.String(): stringList(e.Functionalities),
		domdep.FieldDomain.String():          e.Domain,
		domdep.FieldSecurityRisks.String():   e.SecurityRisks,
	}
}

func embeddingProps(v []float32) (map[string]any, error) {
	encoded, err := vector.Encode(v)
	if err != nil {
		return nil, err
	}
	native := make([]float64, len(v))
	for i, x := range v {
		native[i] = float64(x)
	}
	return map[string]any{
		domdep.FieldEmbedding.String(): encoded,
		propVector:                     native,
	}, nil
}

func recordProps(rec *domdep.Record) (map[string]any, error) {
	props := factProps(rec.Facts())
	if rec.ID() != "" {
		props[domdep.FieldID.String()] = rec.ID()
	}
	if rec.Name() != "" {
		props[domdep.FieldName.String()] = rec.Name()
	}
	if e := rec.Enrichment(); e != nil {
		for k, v := range enrichmentProps(e) {
			props[k] = v
		}
	}
	if rec.HasEmbedding() {
		emb, err := embeddingProps(rec.Embedding())
		if err != nil {
			return nil, err
		}
		for k, v := range emb {
			props[k] = v
		}
	}
	return props, nil
}

func patchProps(p domdep.Patch) (map[string]any, error) {
	props := make(map[string]any)
	if id := p.ID(); id != nil {
		props[domdep.FieldID.String()] = *id
	}
	if e := p.Enrichment(); e != nil {
		for k, v := range enrichmentProps(e) {
			props[k] = v
		}
	}
	if v := p.Embedding(); v != nil {
		emb, err := embeddingProps(v)
		if err != nil {
			return nil, err
		}
		for k, val := range emb {
			props[k] = val
		}
	}
	return props, nil
}

// rowToRecord decodes a {ref, props} row. Unreadable facts degrade to
// empty facts; an unparseable embedding is dropped.
func rowToRecord(row map[string]any) (domdep.Record, error) {
	ref, _ := row["ref"].(string)
	if ref == "" {
		return domdep.Record{}, fmt.Errorf("row without ref")
	}
	props, _ := row["props"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}

	facts, err := domdep.FactsFromFields(props)
	if err != nil {
		facts = domdep.Facts{Address: str(props, domdep.FieldAddress)}
	}

	var enrichment *domdep.Enrichment
	if desc := str(props, domdep.FieldDescription); desc != "" {
		enrichment = &domdep.Enrichment{
			Description:     desc,
			Standards:       list(props, domdep.FieldStandards),
			Patterns:        list(props, domdep.FieldPatterns),
			Functionalities: list(props, domdep.FieldFunctionalities),
			Domain:          str(props, domdep.FieldDomain),
			SecurityRisks:   str(props, domdep.FieldSecurityRisks),
		}
	}

	var embedding []float32
	if raw := str(props, domdep.FieldEmbedding); raw != "" {
		if v, err := vector.Parse(raw); err == nil {
			embedding = v
		}
	}

	return domdep.Reconstruct(
		str(props, domdep.FieldID), ref, facts, str(props, domdep.FieldName),
		enrichment, embedding,
	), nil
}

func str(props map[string]any, f domdep.Field) string {
	s, _ := props[f.String()].(string)
	return s
}

func list(props map[string]any, f domdep.Field) []string {
	switch v := props[f.String()].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringList(vs []string) []string {
	if vs == nil {
		return []string{}
	}
	return vs
}
