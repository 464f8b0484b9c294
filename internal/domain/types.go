package domain

import "time"

// Chunk is a bounded-length window of a source document retained for
// independent retrieval. Immutable once produced.
type Chunk struct {
	Text  string
	Index int // 0-based position in document order
}

// EmbeddedChunk pairs a chunk with its embedding vector. All vectors in one
// index share the same dimension.
type EmbeddedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// SearchResult represents a matching chunk with a cosine similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Session is the isolated vector index created from one uploaded document.
// It is published atomically by the registry and never mutated afterwards.
type Session struct {
	ID         string
	SourceName string
	Preview    string
	CreatedAt  time.Time
	Index      *VectorIndex
}

// ChunkCount returns the number of chunks indexed for this session.
func (s *Session) ChunkCount() int {
	if s.Index == nil {
		return 0
	}
	return s.Index.Len()
}

// Message is a single role-tagged message sent to the completion capability.
type Message struct {
	Role    string
	Content string
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Fragment is one piece of a streamed answer. A fragment with Err set is the
// terminal sentinel of a failed stream; fragments delivered before it remain
// valid.
type Fragment struct {
	Text string
	Err  error
}
