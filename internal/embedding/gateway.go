// Package embedding provides the gateway to the external embedding
// capability. Requests are batched up to the provider limit, rate limited,
// and retried with bounded exponential backoff on transient failures.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"docchat/internal/domain"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "text-embedding-3-small"
	DefaultTimeout           = 30 * time.Second
	DefaultBatchSize         = 64
	DefaultMaxRetries        = 4
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 5
)

// Known embedding model dimensions; unknown models fall back to 1536.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embedding gateway.
type Config struct {
	BaseURL           string
	Model             string
	Timeout           time.Duration
	BatchSize         int
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
}

// Gateway embeds texts through an OpenAI-compatible API. It holds no state
// besides configuration; the API key is forwarded per call.
type Gateway struct {
	cfg        Config
	limiter    *rate.Limiter
	httpClient *http.Client
	dimension  int
}

// NewGateway creates a gateway with defaults applied for zero-value fields.
func NewGateway(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	dim, ok := modelDimensions[cfg.Model]
	if !ok {
		dim = 1536
	}
	return &Gateway{
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		dimension:  dim,
	}
}

// Dimension returns the vector size produced by the configured model.
func (g *Gateway) Dimension() int { return g.dimension }

// Embed returns one vector per input text, in input order. Transient
// upstream failures are retried per batch; a permanent failure aborts
// immediately with a RejectedError and no partial result is returned.
func (g *Gateway) Embed(ctx context.Context, apiKey string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	client := g.newClient(apiKey)
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := start + g.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := g.embedBatch(ctx, client, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (g *Gateway) embedBatch(ctx context.Context, client *openai.Client, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(g.cfg.Model),
		})
		if err == nil {
			return orderVectors(resp, len(batch))
		}
		if !transient(err) {
			return nil, &domain.RejectedError{Op: domain.OpEmbedding, Status: statusCode(err), Cause: err}
		}
		lastErr = err
		if attempt < g.cfg.MaxRetries {
			log.Debug().Err(err).Int("attempt", attempt+1).Msg("embedding request failed, retrying")
			if err := sleep(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, &domain.UnavailableError{Op: domain.OpEmbedding, Cause: lastErr}
}

func orderVectors(resp openai.EmbeddingResponse, want int) ([][]float32, error) {
	if len(resp.Data) != want {
		return nil, &domain.RejectedError{
			Op:    domain.OpEmbedding,
			Cause: fmt.Errorf("provider returned %d embeddings for %d inputs", len(resp.Data), want),
		}
	}
	vectors := make([][]float32, want)
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= want {
			return nil, &domain.RejectedError{
				Op:    domain.OpEmbedding,
				Cause: fmt.Errorf("provider returned out-of-range index %d", data.Index),
			}
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}

func (g *Gateway) newClient(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = g.cfg.BaseURL
	cfg.HTTPClient = g.httpClient
	return openai.NewClientWithConfig(cfg)
}

// transient reports whether the error is worth retrying: rate limits,
// server-side failures, and transport errors. Anything the provider rejects
// with a 4xx other than 429 is permanent.
func transient(err error) bool {
	if status := statusCode(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= 500
	}
	// Transport-level failure (connection reset, timeout).
	return !errors.Is(err, context.Canceled)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// retryDelay grows exponentially from 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
