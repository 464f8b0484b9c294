// Package session owns the process-wide mapping from opaque session ids to
// built vector indexes. Entries live until process shutdown; there is no
// eviction.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docchat/internal/domain"
)

// Registry maps session ids to sessions. Insertions are atomic: a reader
// either sees a fully built session or none at all. Lookups never block on
// unrelated insertions beyond the shared mutex hold.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*domain.Session)}
}

// Create generates a fresh unique id, publishes the session and returns it.
// Ids are never reused; re-uploading the same document always creates a new
// session.
func (r *Registry) Create(sourceName, preview string, index *domain.VectorIndex) *domain.Session {
	sess := &domain.Session{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		Preview:    preview,
		CreatedAt:  time.Now().UTC(),
		Index:      index,
	}
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	log.Debug().Str("session", sess.ID).Str("source", sourceName).
		Int("chunks", sess.ChunkCount()).Msg("session registered")
	return sess
}

// Get resolves a session id, returning ErrSessionNotFound if absent.
func (r *Registry) Get(id string) (*domain.Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
