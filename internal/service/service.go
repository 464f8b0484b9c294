// Package service composes the document chat core: ingest, retrieval
// augmented answering, plain chat and session lookup.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"docchat/internal/chunker"
	"docchat/internal/domain"
	"docchat/internal/session"
	"docchat/internal/vectorstore"
)

// Defaults matching the original upload and chat paths.
const (
	DefaultTopK      = 3
	DefaultRAGModel  = "gpt-4o-mini"
	DefaultChatModel = "gpt-4.1-mini"
)

// Previewer produces a short extractive preview of a document.
type Previewer interface {
	Preview(text string) string
}

// Service wires the chunker, the gateways, the vector store and the session
// registry into the operations exposed to callers. API keys are forwarded
// per call and never retained.
type Service struct {
	chunker   *chunker.WindowChunker
	builder   *vectorstore.Builder
	embedder  domain.Embedder
	completer domain.Completer
	sessions  *session.Registry
	previewer Previewer
	ragModel  string
}

// New creates the service. Previewer may be nil, in which case sessions
// carry no preview.
func New(ch *chunker.WindowChunker, emb domain.Embedder, comp domain.Completer, reg *session.Registry, prev Previewer, ragModel string) *Service {
	if ragModel == "" {
		ragModel = DefaultRAGModel
	}
	return &Service{
		chunker:   ch,
		builder:   vectorstore.NewBuilder(emb),
		embedder:  emb,
		completer: comp,
		sessions:  reg,
		previewer: prev,
		ragModel:  ragModel,
	}
}

// Ingest chunks the extracted document text, embeds all chunks in one
// batched call, builds the vector index and publishes a new session. The
// session id is returned to the caller through the Session.
func (s *Service) Ingest(ctx context.Context, apiKey, sourceName, text string) (*domain.Session, error) {
	chunks := s.chunker.Split(text)
	index, err := s.builder.Build(ctx, apiKey, chunks)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", sourceName, err)
	}
	var preview string
	if s.previewer != nil {
		preview = s.previewer.Preview(text)
	}
	sess := s.sessions.Create(sourceName, preview, index)
	log.Info().Str("session", sess.ID).Str("source", sourceName).
		Int("chunks", sess.ChunkCount()).Msg("document ingested")
	return sess, nil
}

// SessionInfo resolves a session id. It fails with ErrSessionNotFound for
// unknown ids and never touches the network.
func (s *Service) SessionInfo(id string) (*domain.Session, error) {
	return s.sessions.Get(id)
}

// Answer resolves the session, embeds the question, retrieves the top k
// chunks and streams a completion constrained to that context. Failures
// before the stream opens are returned directly; mid-stream failures arrive
// as a terminal fragment on the channel.
func (s *Service) Answer(ctx context.Context, apiKey, sessionID, question string, k int) (<-chan domain.Fragment, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	// Resolve before any network call so unknown sessions fail fast.
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, apiKey, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vectors))
	}

	results := vectorstore.Search(sess.Index, vectors[0], k)
	log.Debug().Str("session", sessionID).Int("retrieved", len(results)).Msg("context retrieved")

	return s.completer.StreamChat(ctx, apiKey, s.ragModel, ragMessages(results, question))
}

// Chat streams a completion directly from a system instruction and a user
// message, with no retrieval step.
func (s *Service) Chat(ctx context.Context, apiKey, model, system, user string) (<-chan domain.Fragment, error) {
	if strings.TrimSpace(user) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if model == "" {
		model = DefaultChatModel
	}
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: user},
	}
	return s.completer.StreamChat(ctx, apiKey, model, messages)
}
