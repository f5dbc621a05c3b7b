// Package graph is the Neo4j-backed record store. Records are
// ContractDeployment nodes; elementId(n) is the node ref.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// runner is the consumer interface over the Neo4j client (ISP).
type runner interface {
	Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Repo implements the record store on a property graph.
type Repo struct {
	db        runner
	vectorDim int
}

// New creates a graph record repository.
func New(r runner, vectorDim int) *Repo {
	return &Repo{db: r, vectorDim: vectorDim}
}

// EnsureIndex creates the id lookup index and the vector index.
// Returns true if the vector index did not exist before.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	rows, err := r.db.Read(ctx,
		"SHOW INDEXES YIELD name WHERE name = $name RETURN name",
		map[string]any{"name": VectorIndexName})
	if err != nil {
		return false, fmt.Errorf("show indexes: %w", err)
	}
	if _, err := r.db.Write(ctx,
		"CREATE INDEX deployment_id IF NOT EXISTS FOR (n:"+Label+") ON (n.id)", nil); err != nil {
		return false, fmt.Errorf("create id index: %w", err)
	}
	if len(rows) > 0 {
		return false, nil
	}
	cypher := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
		VectorIndexName, Label, propVector, r.vectorDim)
	if _, err := r.db.Write(ctx, cypher, nil); err != nil {
		return false, fmt.Errorf("create vector index: %w", err)
	}
	return true, nil
}

// DropIndex removes the vector index. Nodes are kept.
func (r *Repo) DropIndex(ctx context.Context) error {
	if _, err := r.db.Write(ctx, "DROP INDEX "+VectorIndexName+" IF EXISTS", nil); err != nil {
		return fmt.Errorf("drop vector index: %w", err)
	}
	return nil
}

// ListRecords returns one page of records matching f, ordered by id.
func (r *Repo) ListRecords(ctx context.Context, f domdep.Filter, pageSize, offset int) ([]domdep.Record, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive: %w", domain.ErrInvalidRequest)
	}
	cypher := strings.Join([]string{
		"MATCH (n:" + Label + ")",
		whereClause(f),
		returnNode,
		"ORDER BY n.id, elementId(n) SKIP $offset LIMIT $limit",
	}, " ")
	rows, err := r.db.Read(ctx, cypher, map[string]any{
		"offset": int64(max(0, offset)),
		"limit":  int64(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return rowsToRecords(rows), nil
}

// CountRecords returns the number of records matching f.
func (r *Repo) CountRecords(ctx context.Context, f domdep.Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	cypher := "MATCH (n:" + Label + ") " + whereClause(f) + " RETURN count(n) AS total"
	rows, err := r.db.Read(ctx, cypher, nil)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	total, _ := rows[0]["total"].(int64)
	return int(total), nil
}

// GetByID looks a record up by its content-addressed id.
func (r *Repo) GetByID(ctx context.Context, id string) (domdep.Record, error) {
	if id == "" {
		return domdep.Record{}, domain.ErrRecordNotFound
	}
	rows, err := r.db.Read(ctx,
		"MATCH (n:"+Label+" {id: $id}) "+returnNode+" LIMIT 1",
		map[string]any{"id": id})
	if err != nil {
		return domdep.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return firstRecord(rows)
}

// GetByNodeRef looks a record up by element id.
func (r *Repo) GetByNodeRef(ctx context.Context, ref string) (domdep.Record, error) {
	rows, err := r.db.Read(ctx,
		"MATCH (n:"+Label+") WHERE elementId(n) = $ref "+returnNode,
		map[string]any{"ref": ref})
	if err != nil {
		return domdep.Record{}, fmt.Errorf("get record by ref %s: %w", ref, err)
	}
	return firstRecord(rows)
}

// UpsertFields applies a partial update in one write transaction.
func (r *Repo) UpsertFields(ctx context.Context, ref string, p domdep.Patch) error {
	if p.IsEmpty() {
		return nil
	}
	props, err := patchProps(p)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	rows, err := r.db.Write(ctx,
		"MATCH (n:"+Label+") WHERE elementId(n) = $ref SET n += $props RETURN elementId(n) AS ref",
		map[string]any{"ref": ref, "props": props})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// DeleteFields removes properties from a record.
func (r *Repo) DeleteFields(ctx context.Context, ref string, fields ...domdep.Field) error {
	if len(fields) == 0 {
		return nil
	}
	rows, err := r.db.Write(ctx,
		"MATCH (n:"+Label+") WHERE elementId(n) = $ref "+removeClause(fields)+" RETURN elementId(n) AS ref",
		map[string]any{"ref": ref})
	if err != nil {
		return fmt.Errorf("delete fields %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Insert merges a record on its id, or creates a node when it has none.
func (r *Repo) Insert(ctx context.Context, rec domdep.Record) (string, error) {
	props, err := recordProps(&rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	cypher := "CREATE (n:" + Label + ") SET n = $props RETURN elementId(n) AS ref"
	params := map[string]any{"props": props}
	if rec.ID() != "" {
		cypher = "MERGE (n:" + Label + " {id: $id}) SET n += $props RETURN elementId(n) AS ref"
		params["id"] = rec.ID()
	}
	rows, err := r.db.Write(ctx, cypher, params)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("insert record: no node returned")
	}
	ref, _ := rows[0]["ref"].(string)
	return ref, nil
}

// SearchKNN queries the vector index, then applies f to the candidates.
func (r *Repo) SearchKNN(ctx context.Context, v []float32, k int, f domdep.Filter) ([]domdep.Record, error) {
	if err := domain.CheckDimensions(r.vectorDim, v); err != nil {
		return nil, err
	}
	native := make([]float64, len(v))
	for i, x := range v {
		native[i] = float64(x)
	}
	cypher := strings.Join([]string{
		"CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node AS n, score",
		whereClause(f),
		returnNode + ", score ORDER BY score DESC",
	}, " ")
	rows, err := r.db.Read(ctx, cypher, map[string]any{
		"index":  VectorIndexName,
		"k":      int64(k),
		"vector": native,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return rowsToRecords(rows), nil
}

// SearchText matches query case-insensitively as a substring of fields
// (enrichment fields when empty).
func (r *Repo) SearchText(ctx context.Context, query string, fields []domdep.Field, limit int) ([]domdep.Record, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	if len(fields) == 0 {
		fields = domdep.TextSearchFields
	}
	cypher := strings.Join([]string{
		"MATCH (n:" + Label + ")",
		containsClause(fields),
		returnNode,
		"ORDER BY n.id LIMIT $limit",
	}, " ")
	rows, err := r.db.Read(ctx, cypher, map[string]any{"q": q, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	return rowsToRecords(rows), nil
}

// SearchSource matches query against verified source code.
func (r *Repo) SearchSource(ctx context.Context, query string, limit int) ([]domdep.Record, error) {
	return r.SearchText(ctx, query, []domdep.Field{domdep.FieldSourceCode}, limit)
}

func firstRecord(rows []map[string]any) (domdep.Record, error) {
	if len(rows) == 0 {
		return domdep.Record{}, domain.ErrRecordNotFound
	}
	rec, err := rowToRecord(rows[0])
	if err != nil {
		return domdep.Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// rowsToRecords decodes rows, skipping ones without a ref.
func rowsToRecords(rows []map[string]any) []domdep.Record {
	if len(rows) == 0 {
		return nil
	}
	out := make([]domdep.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
