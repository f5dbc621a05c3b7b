package db

import (
	"encoding/binary"
	"math"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filter       string // FT.SEARCH pre-filter, empty for all documents
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a filtered, paginated FT.SEARCH.
type ListQuery struct {
	IndexName    string
	Query        string
	Offset       int
	Limit        int
	SortBy       string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// VectorBlob encodes v as a FLOAT32 little-endian blob, the layout of HASH
// vector fields and KNN query parameters.
func VectorBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
