// Package deployment is the Redis-backed record store: one HASH per record
// plus an FT index for selection, KNN and literal search.
package deployment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/contractdex/internal/db"
	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// KeyPrefix namespaces record hashes.
const KeyPrefix = "contractdex:deployment:"

// IndexName is the FT index over record hashes.
const IndexName = KeyPrefix + "idx"

// store is the consumer interface for records (ISP).
//
//nolint:interfacebloat // record repo needs hash + index + search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the record store consumed by the enrichment, identity,
// search and admin use cases.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a record repository. vectorDim sizes the index vector field.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the FT index unless it exists. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	if exists {
		return false, nil
	}
	def, err := buildIndex(IndexName, KeyPrefix, r.vectorDim, r.hnsw)
	if err != nil {
		return false, fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index: %w", err)
	}
	return true, nil
}

// DropIndex removes the FT index. Record hashes are kept.
// A missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
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
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    IndexName,
		Query:        filterQuery(f),
		Offset:       max(0, offset),
		Limit:        pageSize,
		SortBy:       domdep.FieldID.String(),
		ReturnFields: storedFields,
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return entriesToRecords(res), nil
}

// CountRecords returns the number of records matching f.
func (r *Repo) CountRecords(ctx context.Context, f domdep.Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	n, err := r.store.SearchCount(ctx, IndexName, filterQuery(f))
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// GetByID looks a record up by its content-addressed id.
func (r *Repo) GetByID(ctx context.Context, id string) (domdep.Record, error) {
	if id == "" {
		return domdep.Record{}, domain.ErrRecordNotFound
	}
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    IndexName,
		Query:        db.TagEquals(domdep.FieldID.String(), id),
		Limit:        1,
		ReturnFields: storedFields,
	})
	if err != nil {
		return domdep.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	recs := entriesToRecords(res)
	if len(recs) == 0 {
		return domdep.Record{}, domain.ErrRecordNotFound
	}
	return recs[0], nil
}

// GetByNodeRef reads a record hash directly.
func (r *Repo) GetByNodeRef(ctx context.Context, ref string) (domdep.Record, error) {
	m, err := r.store.HGetAll(ctx, recordKey(ref))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdep.Record{}, domain.ErrRecordNotFound
		}
		return domdep.Record{}, fmt.Errorf("hgetall %s: %w", ref, err)
	}
	if len(m) == 0 {
		return domdep.Record{}, domain.ErrRecordNotFound
	}
	return parseHashFields(ref, m), nil
}

// UpsertFields applies a partial update to an existing record.
func (r *Repo) UpsertFields(ctx context.Context, ref string, p domdep.Patch) error {
	if p.IsEmpty() {
		return nil
	}
	key := recordKey(ref)
	if err := r.mustExist(ctx, key); err != nil {
		return err
	}
	set, del, err := patchFields(p)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	if len(del) > 0 {
		if err := r.store.HDel(ctx, key, del...); err != nil {
			return fmt.Errorf("hdel %s: %w", ref, err)
		}
	}
	if len(set) == 0 {
		return nil
	}
	if err := r.store.HSet(ctx, key, set); err != nil {
		return fmt.Errorf("hset %s: %w", ref, err)
	}
	return nil
}

// DeleteFields makes the given fields absent on a record.
func (r *Repo) DeleteFields(ctx context.Context, ref string, fields ...domdep.Field) error {
	if len(fields) == 0 {
		return nil
	}
	key := recordKey(ref)
	if err := r.mustExist(ctx, key); err != nil {
		return err
	}
	if err := r.store.HDel(ctx, key, hashFieldNames(fields)...); err != nil {
		return fmt.Errorf("hdel %s: %w", ref, err)
	}
	return nil
}

// Insert stores a full record. The node ref is the record id, or a fresh
// uuid when the record has none. Re-inserting the same facts overwrites
// the same hash.
func (r *Repo) Insert(ctx context.Context, rec domdep.Record) (string, error) {
	ref := rec.ID()
	if ref == "" {
		ref = uuid.NewString()
	}
	fields, err := buildHashFields(&rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	if err := r.store.HSet(ctx, recordKey(ref), fields); err != nil {
		return "", fmt.Errorf("hset %s: %w", ref, err)
	}
	return ref, nil
}

// SearchKNN returns the k nearest embedded records to v.
func (r *Repo) SearchKNN(ctx context.Context, v []float32, k int, f domdep.Filter) ([]domdep.Record, error) {
	if err := domain.CheckDimensions(r.vectorDim, v); err != nil {
		return nil, err
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		VectorField:  fieldVector,
		Filter:       filterQuery(f),
		Vector:       v,
		K:            k,
		ReturnFields: storedFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return entriesToRecords(res), nil
}

// SearchText matches query terms against fields (enrichment fields when empty).
func (r *Repo) SearchText(ctx context.Context, query string, fields []domdep.Field, limit int) ([]domdep.Record, error) {
	if len(fields) == 0 {
		fields = domdep.TextSearchFields
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	q := db.TextMatch(names, query)
	if q == "" {
		return nil, nil
	}
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    IndexName,
		Query:        q,
		Limit:        limit,
		ReturnFields: storedFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	return entriesToRecords(res), nil
}

// SearchSource matches query terms against verified source code.
func (r *Repo) SearchSource(ctx context.Context, query string, limit int) ([]domdep.Record, error) {
	return r.SearchText(ctx, query, []domdep.Field{domdep.FieldSourceCode}, limit)
}

func (r *Repo) mustExist(ctx context.Context, key string) error {
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrRecordNotFound
	}
	return nil
}

func entriesToRecords(res *db.SearchResult) []domdep.Record {
	if res == nil || len(res.Entries) == 0 {
		return nil
	}
	out := make([]domdep.Record, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, parseHashFields(strings.TrimPrefix(e.Key, KeyPrefix), e.Fields))
	}
	return out
}

func recordKey(ref string) string {
	return KeyPrefix + ref
}
