package graph

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

type call struct {
	write  bool
	cypher string
	params map[string]any
}

// mockRunner records statements and replays canned rows.
type mockRunner struct {
	calls []call
	rows  func(c call) ([]map[string]any, error)
}

func (m *mockRunner) Read(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return m.run(call{cypher: cypher, params: params})
}

func (m *mockRunner) Write(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return m.run(call{write: true, cypher: cypher, params: params})
}

func (m *mockRunner) run(c call) ([]map[string]any, error) {
	m.calls = append(m.calls, c)
	if m.rows == nil {
		return nil, nil
	}
	return m.rows(c)
}

func nodeRow(ref string) map[string]any {
	return map[string]any{
		"ref": ref,
		"props": map[string]any{
			"id":                   "0ae97a34dde3e870",
			"contract":             "0xAbC123",
			"block":                "19000000",
			"storage_protocol":     "ipfs",
			"storage_address":      "Qm123",
			"experimental":         false,
			"solc_version":         "0.8.20",
			"verified_source":      true,
			"verified_source_code": "contract Token { }",
			"description":          "An ERC-20 token.",
			"standards":            []any{"erc-20"},
			"patterns":             []any{"ownable"},
			"application_domain":   "defi",
			"embeddings":           "[1,0,0]",
			"embedding_vector":     nil,
		},
	}
}

func TestWhereClause(t *testing.T) {
	tests := []struct {
		filter domdep.Filter
		want   string
	}{
		{domdep.Filter{}, ""},
		{domdep.Selection(domdep.StatusUnenriched),
			"WHERE n.verified_source = true AND coalesce(n.description, '') = ''"},
		{domdep.Filter{Status: domdep.StatusUnembedded},
			"WHERE coalesce(n.description, '') <> '' AND n.embedding_vector IS NULL"},
	}
	for _, tt := range tests {
		if got := whereClause(tt.filter); got != tt.want {
			t.Errorf("whereClause(%+v) = %q, want %q", tt.filter, got, tt.want)
		}
	}
}

func TestListRecords(t *testing.T) {
	m := &mockRunner{rows: func(call) ([]map[string]any, error) {
		return []map[string]any{nodeRow("4:abc:1"), {"props": map[string]any{}}}, nil
	}}
	repo := New(m, 3)

	recs, err := repo.ListRecords(context.Background(), domdep.Selection(domdep.StatusEnriched), 25, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected rows without ref to be skipped, got %d records", len(recs))
	}
	c := m.calls[0]
	if c.write || c.params["limit"] != int64(25) || c.params["offset"] != int64(50) {
		t.Errorf("unexpected call: %+v", c)
	}
	rec := recs[0]
	if rec.NodeRef() != "4:abc:1" || !rec.Facts().Verified || !rec.IsEnriched() || !rec.HasEmbedding() {
		t.Errorf("unexpected record %+v", rec.Facts())
	}
	if !slices.Equal(rec.Enrichment().Standards, []string{"erc-20"}) {
		t.Errorf("standards = %v", rec.Enrichment().Standards)
	}
}

func TestCountRecords(t *testing.T) {
	m := &mockRunner{rows: func(call) ([]map[string]any, error) {
		return []map[string]any{{"total": int64(12)}}, nil
	}}
	n, err := New(m, 3).CountRecords(context.Background(), domdep.Filter{})
	if err != nil || n != 12 {
		t.Fatalf("CountRecords = %d, %v", n, err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	_, err := New(&mockRunner{}, 3).GetByID(context.Background(), "nope")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpsertFields_ClearsEmptyDescription(t *testing.T) {
	m := &mockRunner{rows: func(call) ([]map[string]any, error) {
		return []map[string]any{{"ref": "r"}}, nil
	}}
	p := domdep.Patch{}.WithEnrichment(domdep.Enrichment{Domain: "defi"})
	if err := New(m, 3).UpsertFields(context.Background(), "r", p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	props := m.calls[0].params["props"].(map[string]any)
	if v, ok := props["description"]; !ok || v != nil {
		t.Errorf("description = %v (present %v), want explicit null", v, ok)
	}
	if got := props["standards"]; got == nil {
		t.Error("empty lists must be written as empty lists")
	}
}

func TestUpsertFields_MissingNode(t *testing.T) {
	err := New(&mockRunner{}, 3).UpsertFields(context.Background(), "r", domdep.Patch{}.WithID("x"))
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteFields_RemovesVector(t *testing.T) {
	m := &mockRunner{rows: func(call) ([]map[string]any, error) {
		return []map[string]any{{"ref": "r"}}, nil
	}}
	if err := New(m, 3).DeleteFields(context.Background(), "r", domdep.FieldEmbedding); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(m.calls[0].cypher, "REMOVE n.embeddings, n.embedding_vector") {
		t.Errorf("cypher = %q", m.calls[0].cypher)
	}
}

func TestInsert_MergesOnID(t *testing.T) {
	m := &mockRunner{rows: func(call) ([]map[string]any, error) {
		return []map[string]any{{"ref": "4:abc:9"}}, nil
	}}
	rec := domdep.New("", domdep.Facts{Address: "0x1", Verified: true}, "")
	ref, err := New(m, 3).Insert(context.Background(), rec)
	if err != nil || ref != "4:abc:9" {
		t.Fatalf("Insert = %q, %v", ref, err)
	}
	c := m.calls[0]
	if !strings.HasPrefix(c.cypher, "MERGE") || c.params["id"] != rec.ID() {
		t.Errorf("unexpected call: %+v", c)
	}
	props := c.params["props"].(map[string]any)
	if props["verified_source"] != true {
		t.Errorf("verified_source = %v", props["verified_source"])
	}
}

func TestSearchKNN(t *testing.T) {
	m := &mockRunner{rows: func(call) ([]map[string]any, error) {
		return []map[string]any{nodeRow("4:abc:1")}, nil
	}}
	recs, err := New(m, 3).SearchKNN(context.Background(), []float32{1, 0, 0}, 5, domdep.Filter{})
	if err != nil || len(recs) != 1 {
		t.Fatalf("SearchKNN = %d, %v", len(recs), err)
	}
	c := m.calls[0]
	if c.params["index"] != VectorIndexName || c.params["k"] != int64(5) {
		t.Errorf("unexpected params: %v", c.params)
	}
	if _, ok := c.params["vector"].([]float64); !ok {
		t.Errorf("vector param must be []float64, got %T", c.params["vector"])
	}
}

func TestSearchText_ListFields(t *testing.T) {
	m := &mockRunner{}
	_, err := New(m, 3).SearchText(context.Background(), " ERC-20 ", nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := m.calls[0]
	if c.params["q"] != "erc-20" {
		t.Errorf("q = %v", c.params["q"])
	}
	if !strings.Contains(c.cypher, "any(x IN coalesce(n.standards, []) WHERE toLower(x) CONTAINS $q)") {
		t.Errorf("cypher = %q", c.cypher)
	}
}

func TestEnsureIndex_Existing(t *testing.T) {
	m := &mockRunner{rows: func(c call) ([]map[string]any, error) {
		if !c.write {
			return []map[string]any{{"name": VectorIndexName}}, nil
		}
		return nil, nil
	}}
	created, err := New(m, 3).EnsureIndex(context.Background())
	if err != nil || created {
		t.Fatalf("EnsureIndex = %v, %v", created, err)
	}
	for _, c := range m.calls {
		if strings.Contains(c.cypher, "VECTOR INDEX") {
			t.Error("vector index must not be recreated")
		}
	}
}

func TestDropIndex(t *testing.T) {
	m := &mockRunner{}
	if err := New(m, 3).DropIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.calls) != 1 || !m.calls[0].write {
		t.Fatalf("calls = %+v", m.calls)
	}
	if m.calls[0].cypher != "DROP INDEX "+VectorIndexName+" IF EXISTS" {
		t.Errorf("cypher = %q", m.calls[0].cypher)
	}
}
