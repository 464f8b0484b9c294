package chunker

import (
	"fmt"

	"docchat/internal/domain"
)

// Default chunk parameters, matching the upload path defaults.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// WindowChunker splits text into fixed-size overlapping windows. Boundaries
// are computed on code points, so a window never splits a multibyte
// character.
type WindowChunker struct {
	size    int
	overlap int
}

// New creates a window chunker. Size must be positive and overlap must
// satisfy 0 <= overlap < size.
func New(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", domain.ErrInvalidInput, overlap)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Split slides a window of size runes across text, advancing by size-overlap
// runes per step. Only the final chunk may be shorter than size. Empty input
// yields no chunks. Identical input and parameters always yield identical
// boundaries.
func (c *WindowChunker) Split(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Text:  string(runes[start:end]),
			Index: len(chunks),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
