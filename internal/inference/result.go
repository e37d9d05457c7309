// Package inference talks to hosted text-inference APIs for abstractive
// summarization and named-entity recognition.
package inference

import "context"

// Status classifies the outcome of an inference call.
type Status int

const (
	// StatusOK means the provider returned usable output.
	StatusOK Status = iota
	// StatusKeyMissing means no API credential is configured. No request was sent.
	StatusKeyMissing
	// StatusProviderError means the call was made and failed.
	StatusProviderError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusKeyMissing:
		return "key_missing"
	case StatusProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// FailedSummaryMessage is shown when the summarization provider fails.
const FailedSummaryMessage = "Failed to generate summary"

// SummaryResult is the outcome of Summarize.
type SummaryResult struct {
	Status Status

	// Text is the summary when Status is StatusOK.
	Text string

	// Provider names the service, used in the key-missing message.
	Provider string

	// Err holds the underlying cause for StatusProviderError.
	Err error
}

// OK reports whether the summary is usable.
func (r SummaryResult) OK() bool { return r.Status == StatusOK }

// Message returns the summary on success, otherwise the user-facing failure text.
func (r SummaryResult) Message() string {
	switch r.Status {
	case StatusOK:
		return r.Text
	case StatusKeyMissing:
		return r.Provider + " API key is missing"
	default:
		return FailedSummaryMessage
	}
}

// EntityResult is the outcome of ExtractEntities. Tags is never nil.
type EntityResult struct {
	Status Status
	Tags   []string
	Err    error
}

// Summarizer produces an abstractive summary of text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) SummaryResult
}

// EntityExtractor derives person, organization and location tags from text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) EntityResult
}
