package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingsServer fakes an OpenAI-compatible /embeddings endpoint. Each
// vector encodes the input's batch index and text length so ordering is
// verifiable.
type embeddingsServer struct {
	mu       sync.Mutex
	requests []embeddingsRequest
	failures []int // status codes to return before succeeding
}

func (s *embeddingsServer) handler(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	var status int
	if len(s.failures) > 0 {
		status = s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":"induced failure","type":"server_error"}}`)
		return
	}

	type datum struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	data := make([]datum, len(req.Input))
	for i := range req.Input {
		// Reverse order on the wire to exercise index-based reassembly.
		j := len(req.Input) - 1 - i
		data[i] = datum{
			Object:    "embedding",
			Index:     j,
			Embedding: []float32{float32(j), float32(len(req.Input[j]))},
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

func (s *embeddingsServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestGateway(t *testing.T, srv *embeddingsServer, batchSize, maxRetries int) (*Gateway, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	t.Cleanup(ts.Close)
	return NewGateway(Config{
		BaseURL:           ts.URL,
		Model:             "text-embedding-3-small",
		Timeout:           5 * time.Second,
		BatchSize:         batchSize,
		MaxRetries:        maxRetries,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}), ts
}

func TestEmbed_BatchesAndPreservesOrder(t *testing.T) {
	srv := &embeddingsServer{}
	g, _ := newTestGateway(t, srv, 2, 1)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := g.Embed(context.Background(), "key", texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)

	// 5 texts with batch size 2 -> 3 requests.
	assert.Equal(t, 3, srv.requestCount())
	assert.Equal(t, []string{"a", "bb"}, srv.requests[0].Input)
	assert.Equal(t, []string{"ccc", "dddd"}, srv.requests[1].Input)
	assert.Equal(t, []string{"eeeee"}, srv.requests[2].Input)

	// vectors[i][1] encodes len(texts[i]) regardless of wire order.
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][1], "vector %d out of order", i)
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	srv := &embeddingsServer{}
	g, _ := newTestGateway(t, srv, 2, 1)

	vectors, err := g.Embed(context.Background(), "key", nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Zero(t, srv.requestCount())
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	srv := &embeddingsServer{failures: []int{http.StatusTooManyRequests, http.StatusInternalServerError}}
	g, _ := newTestGateway(t, srv, 8, 3)

	vectors, err := g.Embed(context.Background(), "key", []string{"x"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, srv.requestCount(), "two failures then success")
}

func TestEmbed_ExhaustedRetriesReturnUnavailable(t *testing.T) {
	srv := &embeddingsServer{failures: []int{500, 500, 500, 500, 500, 500}}
	g, _ := newTestGateway(t, srv, 8, 2)

	_, err := g.Embed(context.Background(), "key", []string{"x"})
	require.Error(t, err)
	var unavailable *domain.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, domain.OpEmbedding, unavailable.Op)
	assert.NotNil(t, unavailable.Cause)
	assert.Equal(t, 3, srv.requestCount(), "maxRetries+1 attempts")
}

func TestEmbed_PermanentFailureIsNotRetried(t *testing.T) {
	srv := &embeddingsServer{failures: []int{http.StatusUnauthorized}}
	g, _ := newTestGateway(t, srv, 8, 3)

	_, err := g.Embed(context.Background(), "key", []string{"x"})
	require.Error(t, err)
	var rejected *domain.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, domain.OpEmbedding, rejected.Op)
	assert.Equal(t, http.StatusUnauthorized, rejected.Status)
	assert.Equal(t, 1, srv.requestCount())
}

func TestEmbed_Idempotent(t *testing.T) {
	srv := &embeddingsServer{}
	g, _ := newTestGateway(t, srv, 8, 1)

	texts := []string{"same", "inputs"}
	first, err := g.Embed(context.Background(), "key", texts)
	require.NoError(t, err)
	second, err := g.Embed(context.Background(), "key", texts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDimension_KnownModels(t *testing.T) {
	assert.Equal(t, 1536, NewGateway(Config{Model: "text-embedding-3-small"}).Dimension())
	assert.Equal(t, 3072, NewGateway(Config{Model: "text-embedding-3-large"}).Dimension())
	assert.Equal(t, 1536, NewGateway(Config{Model: "something-else"}).Dimension())
}
