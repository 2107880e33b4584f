package types

import (
	"errors"
	"fmt"
)

// Error kinds for the generation pipeline and the surrounding API. Handlers
// map these to HTTP statuses with errors.Is/As; parse and schema failures are
// collapsed into one user-facing message, the detail stays in logs and the
// llm_interactions audit row.
var (
	// ErrMissingAPIKey means the Gemini credential is absent. Fatal to any
	// generation attempt, checked before the call is made.
	ErrMissingAPIKey = errors.New("GOOGLE_GEMINI_API_KEY is not set")

	// ErrLLMInvocation wraps network/quota/timeout failures from the model
	// call. Retryable from the user's perspective, never retried server-side.
	ErrLLMInvocation = errors.New("language model invocation failed")

	ErrBadRequest         = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPremiumRequired    = errors.New("premium plan required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotGenerated       = errors.New("itinerary has not been generated yet")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ResponseParseError means the sanitized model output was not valid JSON.
// Raw and sanitized text are kept for diagnostics only and never surfaced to
// the end user.
type ResponseParseError struct {
	Raw       string
	Sanitized string
	Err       error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// SchemaValidationError means the parsed JSON violates the itinerary shape.
// DayIndex and ActivityIndex are zero-based; an index of -1 means the failure
// was not attributable to that level (e.g. a non-array top-level value).
type SchemaValidationError struct {
	DayIndex      int
	ActivityIndex int
	Reason        string
}

func (e *SchemaValidationError) Error() string {
	switch {
	case e.DayIndex < 0:
		return fmt.Sprintf("itinerary document invalid: %s", e.Reason)
	case e.ActivityIndex < 0:
		return fmt.Sprintf("invalid day structure at index %d: %s", e.DayIndex, e.Reason)
	default:
		return fmt.Sprintf("invalid activity structure at day %d, activity %d: %s", e.DayIndex, e.ActivityIndex, e.Reason)
	}
}

// PersistenceError wraps a failed best-effort save after an edit. It is
// recorded on the session's SaveStatus and logged, never returned to the
// mutation caller.
type PersistenceError struct {
	ItineraryID string
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist itinerary %s: %v", e.ItineraryID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
