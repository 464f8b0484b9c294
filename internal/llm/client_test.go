package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func sseChunk(content string) string {
	payload := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion.chunk",
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(payload)
	return fmt.Sprintf("data: %s\n\n", data)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{BaseURL: ts.URL, Timeout: 5 * time.Second, MaxRetries: 1})
}

func streamHandler(fragments []string, done bool, abort bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frag := range fragments {
			fmt.Fprint(w, sseChunk(frag))
			flusher.Flush()
		}
		if abort {
			// Drop the connection mid-stream without a terminator.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		if done {
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
		}
	}
}

func collect(ch <-chan domain.Fragment) (texts []string, errs []error) {
	for frag := range ch {
		if frag.Err != nil {
			errs = append(errs, frag.Err)
			continue
		}
		texts = append(texts, frag.Text)
	}
	return texts, errs
}

func TestStreamChat_DeliversFragmentsInOrder(t *testing.T) {
	c := newTestClient(t, streamHandler([]string{"Hello", ", ", "world"}, true, false))

	ch, err := c.StreamChat(context.Background(), "key", "gpt-4o-mini", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	texts, errs := collect(ch)
	assert.Equal(t, []string{"Hello", ", ", "world"}, texts)
	assert.Empty(t, errs)
}

func TestStreamChat_MidStreamFailure(t *testing.T) {
	c := newTestClient(t, streamHandler([]string{"one ", "two"}, false, true))

	ch, err := c.StreamChat(context.Background(), "key", "gpt-4o-mini", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	texts, errs := collect(ch)
	assert.Equal(t, []string{"one ", "two"}, texts, "fragments before the failure stay delivered")
	require.Len(t, errs, 1, "exactly one terminal error fragment")
	var unavailable *domain.UnavailableError
	require.ErrorAs(t, errs[0], &unavailable)
	assert.Equal(t, domain.OpGeneration, unavailable.Op)
}

func TestStreamChat_PermanentRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := c.StreamChat(context.Background(), "bad", "gpt-4o-mini", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.Error(t, err)
	var rejected *domain.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, domain.OpGeneration, rejected.Op)
	assert.Equal(t, http.StatusUnauthorized, rejected.Status)
}

func TestStreamChat_RetriesTransientOpenFailure(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		streamHandler([]string{"ok"}, true, false)(w, r)
	})

	ch, err := c.StreamChat(context.Background(), "key", "gpt-4o-mini", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	texts, errs := collect(ch)
	assert.Equal(t, []string{"ok"}, texts)
	assert.Empty(t, errs)
	assert.Equal(t, 2, attempts)
}

func TestStreamChat_ForwardsModelAndMessages(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		streamHandler(nil, true, false)(w, r)
	})

	ch, err := c.StreamChat(context.Background(), "key", "gpt-4.1-mini", []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "usr"},
	})
	require.NoError(t, err)
	collect(ch)

	assert.Equal(t, "gpt-4.1-mini", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestStreamChat_ConsumerCancellationStopsProducer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 1000; i++ {
			select {
			case <-r.Context().Done():
				return
			default:
			}
			fmt.Fprint(w, sseChunk("x"))
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.StreamChat(ctx, "key", "gpt-4o-mini", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	<-ch
	<-ch
	cancel()

	// The producer must close the channel promptly, without a terminal
	// error fragment for the caller-initiated cancellation.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frag, ok := <-ch:
			if !ok {
				return
			}
			assert.NoError(t, frag.Err)
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}
