package domain

// VectorIndex is an ordered sequence of embedded chunks built once at ingest
// and read-only thereafter. Construction is owned by the vectorstore package.
type VectorIndex struct {
	chunks    []EmbeddedChunk
	dimension int
}

// NewVectorIndex wraps already-validated embedded chunks. Callers must
// guarantee that every vector has the given dimension.
func NewVectorIndex(chunks []EmbeddedChunk, dimension int) *VectorIndex {
	return &VectorIndex{chunks: chunks, dimension: dimension}
}

// Len returns the number of embedded chunks in the index.
func (ix *VectorIndex) Len() int { return len(ix.chunks) }

// Dimension returns the embedding vector size shared by all chunks.
func (ix *VectorIndex) Dimension() int { return ix.dimension }

// At returns the embedded chunk at position i in document order.
func (ix *VectorIndex) At(i int) EmbeddedChunk { return ix.chunks[i] }
