// Package llm provides the gateway to the external chat-completion
// capability in streaming mode.
package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"docchat/internal/domain"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 2
)

// fragmentBuffer bounds how far the producer may run ahead of a slow
// consumer before blocking.
const fragmentBuffer = 16

// Config configures the completion client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client streams chat completions from an OpenAI-compatible API. The API key
// is forwarded per call and never retained.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a completion client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// StreamChat opens a streaming completion and re-yields each fragment in
// arrival order on the returned channel. Opening the stream is retried on
// transient failures; once fragments are flowing there is no retry — a
// mid-stream failure is delivered as a terminal fragment with Err set after
// everything already produced. Cancelling ctx stops the producer promptly.
func (c *Client) StreamChat(ctx context.Context, apiKey, model string, messages []domain.Message) (<-chan domain.Fragment, error) {
	stream, err := c.openStream(ctx, apiKey, model, messages)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.Fragment, fragmentBuffer)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Debug().Err(err).Msg("completion stream failed mid-answer")
				fragErr := &domain.UnavailableError{Op: domain.OpGeneration, Cause: err}
				select {
				case ch <- domain.Fragment{Err: fragErr}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case ch <- domain.Fragment{Text: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (c *Client) openStream(ctx context.Context, apiKey, model string, messages []domain.Message) (*openai.ChatCompletionStream, error) {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	req := openai.ChatCompletionRequest{Model: model, Messages: msgs}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.cfg.BaseURL
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		stream, err := client.CreateChatCompletionStream(ctx, req)
		if err == nil {
			return stream, nil
		}
		if !transient(err) {
			return nil, &domain.RejectedError{Op: domain.OpGeneration, Status: statusCode(err), Cause: err}
		}
		lastErr = err
		if attempt < c.cfg.MaxRetries {
			log.Debug().Err(err).Int("attempt", attempt+1).Msg("completion request failed, retrying")
			if err := sleep(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, &domain.UnavailableError{Op: domain.OpGeneration, Cause: lastErr}
}

func transient(err error) bool {
	if status := statusCode(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= 500
	}
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
