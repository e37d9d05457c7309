package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider is the provider name used in messages.
const OpenAIProvider = "OpenAI"

// OpenAIConfig holds settings for the chat-completion summarizer.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAISummarizer summarizes text through an OpenAI-compatible chat model.
type OpenAISummarizer struct {
	client    *openai.Client
	hasKey    bool
	model     string
	maxTokens int
	logger    *slog.Logger
}

var _ Summarizer = (*OpenAISummarizer)(nil)

// NewOpenAISummarizer creates a summarizer backed by go-openai.
func NewOpenAISummarizer(cfg OpenAIConfig, logger *slog.Logger) *OpenAISummarizer {
	occ := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		occ.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAISummarizer{
		client:    openai.NewClientWithConfig(occ),
		hasKey:    cfg.APIKey != "",
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Summarize asks the chat model for a short plain-text summary.
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) SummaryResult {
	if !s.hasKey {
		return SummaryResult{Status: StatusKeyMissing, Provider: OpenAIProvider}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Summarize the user's note in two or three plain sentences. Reply with the summary only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens: s.maxTokens,
	})
	if err == nil && (len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "") {
		err = fmt.Errorf("no summary generated")
	}
	if err != nil {
		s.logger.Error("summarization failed",
			slog.String("model", s.model),
			slog.String("error", err.Error()))
		return SummaryResult{Status: StatusProviderError, Provider: OpenAIProvider, Err: err}
	}

	return SummaryResult{
		Status:   StatusOK,
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider: OpenAIProvider,
	}
}
