package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derricker/meetai/pkg/config"
)

func completionServer(t *testing.T, status int, response string) (*httptest.Server, *ChatRequest) {
	t.Helper()

	var received ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&received)

		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestComplete(t *testing.T) {
	srv, received := completionServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"A short summary."}}]}`)

	c := NewOpenAIClient(&config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o"})
	out, err := c.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "You are a summarizer."},
		{Role: "user", Content: "Summarize this."},
	})

	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
	assert.Equal(t, "gpt-4o", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, `{"choices":[]}`)

	c := NewOpenAIClient(&config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestComplete_BlankContent(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"   "}}]}`)

	c := NewOpenAIClient(&config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestComplete_HTTPError(t *testing.T) {
	srv, _ := completionServer(t, http.StatusTooManyRequests, `{}`)

	c := NewOpenAIClient(&config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
