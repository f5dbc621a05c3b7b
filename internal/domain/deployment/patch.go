package deployment

// Patch is a partial record update keyed by node ref.
// Nil members are left untouched; lists in a present Enrichment replace the stored ones.
type Patch struct {
	id         *string
	enrichment *Enrichment
	embedding  []float32
}

// WithID sets the identity.
func (p Patch) WithID(id string) Patch {
	p.id = &id
	return p
}

// WithEnrichment sets all classifier fields.
func (p Patch) WithEnrichment(e Enrichment) Patch {
	c := e.Clone()
	p.enrichment = &c
	return p
}

// WithEmbedding sets the embedding.
func (p Patch) WithEmbedding(v []float32) Patch {
	p.embedding = v
	return p
}

// ID returns the new identity, or nil if unchanged.
func (p Patch) ID() *string { return p.id }

// Enrichment returns the new enrichment, or nil if unchanged.
func (p Patch) Enrichment() *Enrichment { return p.enrichment }

// Embedding returns the new embedding, or nil if unchanged.
func (p Patch) Embedding() []float32 { return p.embedding }

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.id == nil && p.enrichment == nil && p.embedding == nil
}
