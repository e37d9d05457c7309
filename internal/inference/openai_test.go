package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAISummarizer_KeyMissing(t *testing.T) {
	s := NewOpenAISummarizer(OpenAIConfig{Model: "gpt-4o-mini"}, quietLogger())

	res := s.Summarize(context.Background(), "text")
	assert.Equal(t, StatusKeyMissing, res.Status)
	assert.Equal(t, "OpenAI API key is missing", res.Message())
}

func TestOpenAISummarizer_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"A short note."},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)

	s := NewOpenAISummarizer(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, quietLogger())
	res := s.Summarize(context.Background(), "a long note")
	require.True(t, res.OK())
	assert.Equal(t, "A short note.", res.Message())
}

func TestOpenAISummarizer_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s := NewOpenAISummarizer(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, quietLogger())
	res := s.Summarize(context.Background(), "a long note")
	assert.Equal(t, StatusProviderError, res.Status)
	assert.Equal(t, "Failed to generate summary", res.Message())
}
