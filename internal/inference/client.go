package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HuggingFace is the provider name used in messages.
const HuggingFace = "Hugging Face"

// DefaultBaseURL is the hosted inference endpoint prefix.
const DefaultBaseURL = "https://api-inference.huggingface.co/models"

// Config holds Hugging Face client settings.
type Config struct {
	BaseURL      string
	APIKey       string
	SummaryModel string
	NERModel     string
	MaxLength    int
	MinLength    int

	// Timeout bounds each call. Zero leaves calls bounded only by ctx.
	Timeout time.Duration
}

// Client calls the Hugging Face inference API. It implements both
// Summarizer and EntityExtractor.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var (
	_ Summarizer      = (*Client)(nil)
	_ EntityExtractor = (*Client)(nil)
)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Hugging Face client.
func NewClient(cfg Config, logger *slog.Logger, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{cfg: cfg, http: http.DefaultClient, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type summaryRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters summaryParameters `json:"parameters"`
}

type summaryParameters struct {
	MaxLength int `json:"max_length"`
	MinLength int `json:"min_length"`
}

type summaryItem struct {
	SummaryText string `json:"summary_text"`
}

type nerRequest struct {
	Inputs string `json:"inputs"`
}

// Summarize returns the first summary produced by the summarization model.
func (c *Client) Summarize(ctx context.Context, text string) SummaryResult {
	if c.cfg.APIKey == "" {
		return SummaryResult{Status: StatusKeyMissing, Provider: HuggingFace}
	}

	var items []summaryItem
	err := c.post(ctx, c.cfg.SummaryModel, summaryRequest{
		Inputs: text,
		Parameters: summaryParameters{
			MaxLength: c.cfg.MaxLength,
			MinLength: c.cfg.MinLength,
		},
	}, &items)
	if err == nil && (len(items) == 0 || strings.TrimSpace(items[0].SummaryText) == "") {
		err = fmt.Errorf("no summary generated")
	}
	if err != nil {
		c.logger.Error("summarization failed",
			slog.String("model", c.cfg.SummaryModel),
			slog.String("error", err.Error()))
		return SummaryResult{Status: StatusProviderError, Provider: HuggingFace, Err: err}
	}

	return SummaryResult{
		Status:   StatusOK,
		Text:     strings.TrimSpace(items[0].SummaryText),
		Provider: HuggingFace,
	}
}

// ExtractEntities runs named-entity recognition and returns distinct
// person, organization and location words. Failures yield no tags.
func (c *Client) ExtractEntities(ctx context.Context, text string) EntityResult {
	if c.cfg.APIKey == "" {
		return EntityResult{Status: StatusKeyMissing, Tags: []string{}}
	}

	var entities []Entity
	if err := c.post(ctx, c.cfg.NERModel, nerRequest{Inputs: text}, &entities); err != nil {
		c.logger.Warn("entity extraction failed",
			slog.String("model", c.cfg.NERModel),
			slog.String("error", err.Error()))
		return EntityResult{Status: StatusProviderError, Tags: []string{}, Err: err}
	}

	return EntityResult{Status: StatusOK, Tags: ExtractTags(entities)}
}

func (c *Client) post(ctx context.Context, model string, body, out any) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+model, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
