package contractdex

import (
	"context"
	"time"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is one embedding and its token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Completer runs a chat completion that must answer with one JSON object.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (Completion, error)
}

// Completion is the raw model answer and its token usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// SearchMode selects how a query is matched.
type SearchMode string

// Search modes.
const (
	ModeVector SearchMode = "vector"
	ModeText   SearchMode = "text"
	ModeSource SearchMode = "source"
)

// Query describes a search. Zero values use the defaults: vector mode,
// five results, no threshold.
type Query struct {
	Text     string
	Mode     SearchMode
	Limit    int
	MinScore float64
	Refine   bool
}

// Facts are the immutable deployment facts of a record.
type Facts struct {
	Address         string
	Block           string
	StorageProtocol string
	StorageAddress  string
	Experimental    bool
	SolcVersion     string
	Verified        bool
	SourceCode      string
}

// Enrichment is the classifier output attached to a record.
type Enrichment struct {
	Description     string
	Standards       []string
	Patterns        []string
	Functionalities []string
	Domain          string
	SecurityRisks   string
}

// Record is a deployment record.
type Record struct {
	ID           string
	NodeRef      string
	Name         string
	Facts        Facts
	Enrichment   *Enrichment
	HasEmbedding bool
}

// Hit is one search result. Score is nil for text and source modes.
type Hit struct {
	Record Record
	Score  *float64
}

// SearchResult lists hits for a query.
type SearchResult struct {
	// Query is the text actually searched, after refinement.
	Query   string
	Refined bool
	Hits    []Hit
	// Skipped counts vector hits dropped for an unreadable stored embedding.
	Skipped int
}

// EnrichMode selects an enrichment pass.
type EnrichMode string

// Enrichment passes.
const (
	EnrichNew     EnrichMode = "new"
	EnrichUpdate  EnrichMode = "update"
	EnrichRepair  EnrichMode = "repair-embeddings"
	EnrichReembed EnrichMode = "reembed"
)

// EnrichReport summarizes an enrichment pass.
type EnrichReport struct {
	RunID           string
	Pages           int
	Processed       int
	Enriched        int
	Embedded        int
	Skipped         int
	Failed          int
	EmbedFailed     int
	QualityFindings int
	Duration        time.Duration
}

// Stats are record counts by pipeline state.
type Stats struct {
	Total      int
	Verified   int
	Enriched   int
	Unenriched int
	Unembedded int
}
