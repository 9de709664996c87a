package core

import "fmt"

// ValidationError reports a missing or empty required request field. It is
// never retried and is surfaced verbatim to the caller. Field holds the wire
// name of the offending field ("churchId", "title", ...).
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Stage identifies where in the query pipeline an error originated.
type Stage string

const (
	StageReceived     Stage = "RECEIVED"
	StageFAQLookup    Stage = "FAQ_LOOKUP"
	StageEmbedding    Stage = "EMBEDDING"
	StageVectorSearch Stage = "VECTOR_SEARCH"
	StagePromptBuild  Stage = "PROMPT_BUILD"
	StageLLMCall      Stage = "LLM_CALL"
	StageResponded    Stage = "RESPONDED"
)

// StageError tags a pipeline failure with its originating stage. The error
// state is always terminal; the wrapped error keeps its own type so callers
// can still inspect it with errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
