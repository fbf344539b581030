package chat

import "errors"

// Error taxonomy for the orchestrator. The HTTP boundary maps these to
// status codes; callers should test with errors.Is.
var (
	// ErrInvalidRequest reports a request rejected before any state
	// changed: empty message, missing tenant, or an unknown field value.
	ErrInvalidRequest = errors.New("invalid chat request")

	// ErrPromptTooLarge reports that the system prompt and user message
	// alone exceed the assembler's token budget. The message already
	// passed validation; this points at the budget configuration.
	ErrPromptTooLarge = errors.New("prompt exceeds token budget")

	// ErrRetrievalUnavailable reports that context retrieval failed and
	// the request's retrieval policy did not permit answering without it.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationFailed reports that the model could not produce a
	// reply after retries.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrOverloaded reports that the engine is at its concurrency limit.
	ErrOverloaded = errors.New("engine overloaded")
)
