package domain

import "context"

// Embedder converts texts into fixed-dimension vectors via the external
// embedding capability. The returned slice has the same length and order as
// the input. The API key is forwarded per call and never retained.
type Embedder interface {
	Embed(ctx context.Context, apiKey string, texts []string) ([][]float32, error)
	Dimension() int
}

// Completer streams chat completions from the external completion capability.
// Fragments arrive on the returned channel in generation order; the channel
// is closed when the stream ends. A mid-stream failure is delivered as a
// final fragment with Err set. Cancelling ctx stops the producer promptly.
type Completer interface {
	StreamChat(ctx context.Context, apiKey, model string, messages []Message) (<-chan Fragment, error)
}
