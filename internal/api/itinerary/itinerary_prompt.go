package itinerary

import (
	"fmt"
	"strings"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

// premiumActivityFields is the full optional-field set requested from the
// model on the premium tier, in the order it appears in the prompt.
var premiumActivityFields = []string{
	"duration",
	"tips",
	"alternatives",
	"transportation_details",
	"dining_options",
	"weather_forecast",
	"photo_spots",
	"local_events",
	"best_times",
	"budget_tips",
	"hidden_gems",
	"cultural_info",
	"safety_tips",
	"etiquette",
	"local_phrases",
	"emergency_contacts",
}

// BuildItineraryPrompt maps trip parameters to the generation prompt.
// Deterministic, no side effects; parameters are validated upstream.
func BuildItineraryPrompt(params types.TripParameters) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a detailed %d-day travel itinerary for %s with the following preferences:\n", params.DurationDays, params.Destination)
	fmt.Fprintf(&b, "- Transportation: %s\n", strings.Join(params.Transportation, ", "))
	fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(params.Interests, ", "))
	if params.Budget != nil {
		fmt.Fprintf(&b, "- Total budget: %.2f\n", *params.Budget)
	}

	b.WriteString(`
Make the itinerary realistic, considering:
- Travel time between locations
- Opening hours of attractions
- Local transportation options
- Weather considerations
- Cultural experiences
- Local cuisine recommendations
`)

	if params.Lodging != nil {
		fmt.Fprintf(&b, "\nThe traveller is staying at %s in %s (check-in %s, check-out %s). Plan each day around this base. Do NOT include hotel check-in or check-out as activities on day 1 or on the final day.\n",
			params.Lodging.Name, params.Lodging.Location, params.Lodging.CheckIn, params.Lodging.CheckOut)
	}

	if params.Tier == types.TierPremium {
		writePremiumInstructions(&b, params)
	} else {
		writeStandardInstructions(&b)
	}

	b.WriteString(`
IMPORTANT: Return ONLY a bare JSON array of day objects. Do not include markdown formatting, code fences, comments, or any text outside the JSON array.`)

	return b.String()
}

func writeStandardInstructions(b *strings.Builder) {
	b.WriteString(`
For each day, provide:
- day: number (starting at 1)
- title: string
- activities: array of objects, each with:
  - time: string
  - activity: string
  - location: string
  - description: string
  - estimated_cost: number
Do NOT include any other fields.
`)
}

func writePremiumInstructions(b *strings.Builder, params types.TripParameters) {
	b.WriteString(`
For each day, provide:
- day: number (starting at 1)
- title: string
- activities: array of objects, each with:
  - time: string
  - activity: string
  - location: string
  - description: string
  - estimated_cost: number
`)
	for _, field := range premiumActivityFields {
		fmt.Fprintf(b, "  - %s\n", field)
	}
	b.WriteString(`Where:
- alternatives is an array of {activity, location, description, estimated_cost}
- transportation_details is {mode, duration, cost, tips}
- dining_options is an array of {name, cuisine, price_range, must_try, location}
- weather_forecast is {temperature, conditions, recommendations}
- tips, photo_spots, local_events, best_times, budget_tips, hidden_gems, safety_tips, etiquette, local_phrases and emergency_contacts are arrays of strings
- duration and cultural_info are strings
`)
	if params.Budget != nil && params.DurationDays > 0 {
		perDay := *params.Budget / float64(params.DurationDays)
		fmt.Fprintf(b, "Allocate a realistic daily budget of roughly %.2f per day and break down the estimated cost of every activity so the day totals stay near that allocation.\n", perDay)
	}
}
