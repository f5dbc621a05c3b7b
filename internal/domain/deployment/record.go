// Package deployment holds the smart-contract deployment record and its
// content-addressed identity.
package deployment

import "slices"

// Facts are the immutable deployment facts captured at ingestion.
// They are the sole input of the record identity.
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

// Clone returns a deep copy.
func (e Enrichment) Clone() Enrichment {
	e.Standards = slices.Clone(e.Standards)
	e.Patterns = slices.Clone(e.Patterns)
	e.Functionalities = slices.Clone(e.Functionalities)
	return e
}

// Record is a deployment record as seen by the pipeline.
type Record struct {
	id         string
	nodeRef    string
	facts      Facts
	name       string
	enrichment *Enrichment
	embedding  []float32
}

// New creates a freshly ingested record: facts only, identity computed.
func New(nodeRef string, facts Facts, name string) Record {
	return Record{
		id:      ComputeID(facts),
		nodeRef: nodeRef,
		facts:   facts,
		name:    name,
	}
}

// Reconstruct creates a Record from stored state without recomputing anything.
// An empty id means the record has not been assigned one yet.
func Reconstruct(
	id, nodeRef string, facts Facts, name string,
	enrichment *Enrichment, embedding []float32,
) Record {
	return Record{
		id:         id,
		nodeRef:    nodeRef,
		facts:      facts,
		name:       name,
		enrichment: enrichment,
		embedding:  embedding,
	}
}

// ID returns the content-addressed identifier, empty if unassigned.
func (r *Record) ID() string { return r.id }

// NodeRef returns the backing store reference used for updates.
func (r *Record) NodeRef() string { return r.nodeRef }

// Facts returns the immutable deployment facts.
func (r *Record) Facts() Facts { return r.facts }

// Name returns the optional contract name.
func (r *Record) Name() string { return r.name }

// Enrichment returns the classifier output, nil if absent.
func (r *Record) Enrichment() *Enrichment { return r.enrichment }

// Embedding returns the stored embedding, nil if absent.
func (r *Record) Embedding() []float32 { return r.embedding }

// IsEnriched reports whether a description is present.
func (r *Record) IsEnriched() bool {
	return r.enrichment != nil && r.enrichment.Description != ""
}

// HasEmbedding reports whether an embedding is present.
func (r *Record) HasEmbedding() bool { return len(r.embedding) > 0 }

// NeedsEmbedding reports the enriched-but-unembedded state left behind by a
// failed embedding step.
func (r *Record) NeedsEmbedding() bool { return r.IsEnriched() && !r.HasEmbedding() }
