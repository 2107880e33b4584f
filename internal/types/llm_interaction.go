package types

import (
	"github.com/google/uuid"
)

// LlmInteraction is the audit row written for every generation attempt. The
// raw and sanitized response text live here so parse/schema failures can be
// diagnosed without ever showing model output to the end user.
type LlmInteraction struct {
	UserID        uuid.UUID `json:"user_id"`
	ItineraryID   uuid.UUID `json:"itinerary_id"`
	Prompt        string    `json:"prompt"`
	ResponseText  string    `json:"response_text"`
	SanitizedText string    `json:"sanitized_text"`
	ModelUsed     string    `json:"model_used"`
	Tier          Tier      `json:"tier"`
	LatencyMs     int       `json:"latency_ms"`
	Outcome       string    `json:"outcome"` // ok | invocation_error | parse_error | schema_error
}
