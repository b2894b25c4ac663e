package reasoning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]interface{}
		assert.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "claude-test", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

func TestAnthropicService_Complete(t *testing.T) {
	var calls int32
	server := messagesServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [{"type": "text", "text": "Looks genuine.\nDeal quality score: 82"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 12, "output_tokens": 9}
	}`, &calls)
	defer server.Close()

	svc := NewAnthropicService(Config{
		APIKey:  "test-key",
		Model:   "claude-test",
		BaseURL: server.URL + "/",
		Timeout: 5 * time.Second,
	})

	text, err := svc.Complete(context.Background(), "Analyze this deal")
	require.NoError(t, err)
	assert.Equal(t, "Looks genuine.\nDeal quality score: 82", text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnthropicService_ErrorIsNotRetriedByDefault(t *testing.T) {
	var calls int32
	server := messagesServer(t, http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`, &calls)
	defer server.Close()

	svc := NewAnthropicService(Config{
		APIKey:  "test-key",
		Model:   "claude-test",
		BaseURL: server.URL + "/",
		Timeout: 5 * time.Second,
	})

	_, err := svc.Complete(context.Background(), "Analyze this deal")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnthropicService_EmptyContent(t *testing.T) {
	var calls int32
	server := messagesServer(t, http.StatusOK, `{
		"id": "msg_02", "type": "message", "role": "assistant", "model": "claude-test",
		"content": [], "stop_reason": "end_turn", "stop_sequence": null,
		"usage": {"input_tokens": 1, "output_tokens": 0}
	}`, &calls)
	defer server.Close()

	svc := NewAnthropicService(Config{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL + "/"})

	_, err := svc.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestServiceFunc(t *testing.T) {
	var svc Service = ServiceFunc(func(ctx context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})

	text, err := svc.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", text)
}
