// Package vectorstore builds per-session vector indexes and runs brute-force
// cosine similarity search over them.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"docchat/internal/domain"
)

// Builder embeds chunk texts and assembles them into an immutable index.
type Builder struct {
	embedder domain.Embedder
}

// NewBuilder creates an index builder backed by the given embedder.
func NewBuilder(embedder domain.Embedder) *Builder {
	return &Builder{embedder: embedder}
}

// Build embeds all chunk texts in one batched call and pairs each vector
// with its source chunk, preserving order. It fails atomically: any
// embedding failure or dimension mismatch returns a nil index.
func (b *Builder) Build(ctx context.Context, apiKey string, chunks []domain.Chunk) (*domain.VectorIndex, error) {
	if len(chunks) == 0 {
		return domain.NewVectorIndex(nil, b.embedder.Dimension()), nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := b.embedder.Embed(ctx, apiKey, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	embedded := make([]domain.EmbeddedChunk, len(chunks))
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector dimension mismatch at chunk %d: got %d, want %d", i, len(vec), dim)
		}
		embedded[i] = domain.EmbeddedChunk{Chunk: chunks[i], Vector: vec}
	}

	log.Debug().Int("chunks", len(embedded)).Int("dimension", dim).Msg("built vector index")
	return domain.NewVectorIndex(embedded, dim), nil
}
