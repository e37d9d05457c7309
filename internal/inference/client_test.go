package inference

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, h http.HandlerFunc, mutate func(*Config)) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:      srv.URL,
		APIKey:       "hf_test",
		SummaryModel: "facebook/bart-large-cnn",
		NERModel:     "dslim/bert-base-NER",
		MaxLength:    100,
		MinLength:    30,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg, quietLogger()), &calls
}

func TestSummarize_OK(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/facebook/bart-large-cnn", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var body summaryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "long text", body.Inputs)
		assert.Equal(t, 100, body.Parameters.MaxLength)
		assert.Equal(t, 30, body.Parameters.MinLength)

		_, _ = w.Write([]byte(`[{"summary_text":"  short text "}]`))
	}, nil)

	res := client.Summarize(context.Background(), "long text")
	require.True(t, res.OK())
	assert.Equal(t, "short text", res.Message())
}

func TestSummarize_KeyMissing(t *testing.T) {
	client, calls := testClient(t, func(w http.ResponseWriter, r *http.Request) {}, func(c *Config) {
		c.APIKey = ""
	})

	res := client.Summarize(context.Background(), "text")
	assert.Equal(t, StatusKeyMissing, res.Status)
	assert.Equal(t, "Hugging Face API key is missing", res.Message())
	assert.Zero(t, calls.Load(), "no request may be sent without a key")
}

func TestSummarize_ProviderError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model loading"}`, http.StatusServiceUnavailable)
	}, nil)

	res := client.Summarize(context.Background(), "text")
	assert.Equal(t, StatusProviderError, res.Status)
	assert.Equal(t, "Failed to generate summary", res.Message())
	assert.Error(t, res.Err)
}

func TestSummarize_EmptyResponse(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	res := client.Summarize(context.Background(), "text")
	assert.Equal(t, StatusProviderError, res.Status)
}

func TestSummarize_Timeout(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, func(c *Config) {
		c.Timeout = 50 * time.Millisecond
	})

	res := client.Summarize(context.Background(), "text")
	assert.Equal(t, StatusProviderError, res.Status)
}

func TestExtractEntities_OK(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dslim/bert-base-NER", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"entity_group":"PER","word":"John","score":0.99,"start":0,"end":4},
			{"entity_group":"ORG","word":"Acme Corp","score":0.98,"start":13,"end":22},
			{"entity_group":"LOC","word":"Paris","score":0.97,"start":26,"end":31},
			{"entity_group":"PER","word":"John","score":0.91,"start":40,"end":44}
		]`))
	}, nil)

	res := client.ExtractEntities(context.Background(), "John met Acme Corp in Paris. Later John left.")
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []string{"John", "Acme Corp", "Paris"}, res.Tags)
}

func TestExtractEntities_FailureYieldsNoTags(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	res := client.ExtractEntities(context.Background(), "text")
	assert.Equal(t, StatusProviderError, res.Status)
	assert.NotNil(t, res.Tags)
	assert.Empty(t, res.Tags)
}

func TestExtractEntities_KeyMissing(t *testing.T) {
	client, calls := testClient(t, func(w http.ResponseWriter, r *http.Request) {}, func(c *Config) {
		c.APIKey = ""
	})

	res := client.ExtractEntities(context.Background(), "text")
	assert.Equal(t, StatusKeyMissing, res.Status)
	assert.Empty(t, res.Tags)
	assert.Zero(t, calls.Load())
}
