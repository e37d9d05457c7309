package pipeline

import "fmt"

// Stage names a step of the note-creation run.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageAuthorizing        Stage = "authorizing"
	StageSummarizing        Stage = "summarizing"
	StageExtractingEntities Stage = "extracting_entities"
	StagePersistingNote     Stage = "persisting_note"
	StagePersistingTags     Stage = "persisting_tags"
	StageRefreshingView     Stage = "refreshing_view"
)

// BlockingError ends a run. Message is safe to show to the user.
type BlockingError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *BlockingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pipeline: %s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("pipeline: %s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *BlockingError) Unwrap() error { return e.Err }

func blocking(stage Stage, msg string, err error) *BlockingError {
	return &BlockingError{Stage: stage, Message: msg, Err: err}
}
