package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

// SanitizeResponse strips leading/trailing code-fence markers and surrounding
// whitespace from a raw model reply. It never attempts to repair invalid
// JSON; that is the parser's concern. Idempotent on already-clean input.
func SanitizeResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseItineraryResponse turns a raw model reply into validated itinerary
// days. This is the only place LLM-originated ItineraryDay values are
// constructed. All-or-nothing: any failure rejects the whole document.
func ParseItineraryResponse(raw string) ([]types.ItineraryDay, error) {
	clean := SanitizeResponse(raw)

	var doc any
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		return nil, &types.ResponseParseError{Raw: raw, Sanitized: clean, Err: err}
	}

	if err := ValidateItineraryDocument(doc); err != nil {
		return nil, err
	}

	var days []types.ItineraryDay
	if err := json.Unmarshal([]byte(clean), &days); err != nil {
		// Structure passed validation but an optional field carries a type
		// the model made up (e.g. estimated_cost as a string).
		return nil, &types.SchemaValidationError{
			DayIndex:      -1,
			ActivityIndex: -1,
			Reason:        fmt.Sprintf("optional field has unexpected type: %v", err),
		}
	}
	return days, nil
}

// ValidateItineraryDocument checks the parsed JSON value against the
// day/activity shape. Rules run in order and short-circuit on the first
// failure, reporting the zero-based day and activity index. Optional and
// premium fields are never required for validation to pass.
func ValidateItineraryDocument(doc any) error {
	arr, ok := doc.([]any)
	if !ok {
		return &types.SchemaValidationError{
			DayIndex:      -1,
			ActivityIndex: -1,
			Reason:        "top-level value is not an array",
		}
	}

	for i, el := range arr {
		day, ok := el.(map[string]any)
		if !ok {
			return &types.SchemaValidationError{DayIndex: i, ActivityIndex: -1, Reason: "day is not an object"}
		}
		if _, ok := day["day"].(float64); !ok {
			return &types.SchemaValidationError{DayIndex: i, ActivityIndex: -1, Reason: "missing or non-numeric day"}
		}
		if _, ok := day["title"].(string); !ok {
			return &types.SchemaValidationError{DayIndex: i, ActivityIndex: -1, Reason: "missing or non-string title"}
		}
		activities, ok := day["activities"].([]any)
		if !ok {
			return &types.SchemaValidationError{DayIndex: i, ActivityIndex: -1, Reason: "missing or non-array activities"}
		}

		for j, ael := range activities {
			activity, ok := ael.(map[string]any)
			if !ok {
				return &types.SchemaValidationError{DayIndex: i, ActivityIndex: j, Reason: "activity is not an object"}
			}
			for _, field := range []string{"time", "activity", "location", "description"} {
				v, ok := activity[field].(string)
				if !ok || strings.TrimSpace(v) == "" {
					return &types.SchemaValidationError{
						DayIndex:      i,
						ActivityIndex: j,
						Reason:        fmt.Sprintf("missing or empty %s", field),
					}
				}
			}
		}
	}
	return nil
}

// MissingPremiumFields reports which premium-only fields appear on no
// activity at all. The caller logs this under the premium tier; it is never
// a validation failure since model output is non-deterministic.
func MissingPremiumFields(days []types.ItineraryDay) []string {
	present := make(map[string]bool, len(premiumActivityFields))
	for _, day := range days {
		for _, a := range day.Activities {
			if a.Duration != "" {
				present["duration"] = true
			}
			if len(a.Tips) > 0 {
				present["tips"] = true
			}
			if len(a.Alternatives) > 0 {
				present["alternatives"] = true
			}
			if a.TransportationDetails != nil {
				present["transportation_details"] = true
			}
			if len(a.DiningOptions) > 0 {
				present["dining_options"] = true
			}
			if a.WeatherForecast != nil {
				present["weather_forecast"] = true
			}
			if len(a.PhotoSpots) > 0 {
				present["photo_spots"] = true
			}
			if len(a.LocalEvents) > 0 {
				present["local_events"] = true
			}
			if len(a.BestTimes) > 0 {
				present["best_times"] = true
			}
			if len(a.BudgetTips) > 0 {
				present["budget_tips"] = true
			}
			if len(a.HiddenGems) > 0 {
				present["hidden_gems"] = true
			}
			if a.CulturalInfo != "" {
				present["cultural_info"] = true
			}
			if len(a.SafetyTips) > 0 {
				present["safety_tips"] = true
			}
			if len(a.Etiquette) > 0 {
				present["etiquette"] = true
			}
			if len(a.LocalPhrases) > 0 {
				present["local_phrases"] = true
			}
			if len(a.EmergencyContacts) > 0 {
				present["emergency_contacts"] = true
			}
		}
	}

	var missing []string
	for _, field := range premiumActivityFields {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return missing
}
