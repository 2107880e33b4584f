package types

import (
	"time"

	"github.com/google/uuid"
)

// Alternative is a substitute candidate offered alongside an Activity. It is
// never ordered or nested further.
type Alternative struct {
	Activity      string   `json:"activity"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`
}

// TransportationDetails describes how to get to a premium-tier activity.
type TransportationDetails struct {
	Mode     string   `json:"mode,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Cost     *float64 `json:"cost,omitempty"`
	Tips     []string `json:"tips,omitempty"`
}

// DiningOption is one restaurant suggestion attached to a premium activity.
type DiningOption struct {
	Name       string   `json:"name,omitempty"`
	Cuisine    string   `json:"cuisine,omitempty"`
	PriceRange string   `json:"price_range,omitempty"`
	MustTry    []string `json:"must_try,omitempty"`
	Location   string   `json:"location,omitempty"`
}

// WeatherForecast is the model's weather guess for a premium activity slot.
type WeatherForecast struct {
	Temperature     string   `json:"temperature,omitempty"`
	Conditions      string   `json:"conditions,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Activity is one scheduled item within a day. Time, Activity, Location and
// Description are required regardless of tier; everything else is optional
// and only requested from the model on the premium tier. Values of this type
// that originate from the LLM are only ever constructed by the response
// validator in internal/api/itinerary.
type Activity struct {
	Time          string   `json:"time"`
	Activity      string   `json:"activity"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`

	Duration              string                 `json:"duration,omitempty"`
	Tips                  []string               `json:"tips,omitempty"`
	Alternatives          []Alternative          `json:"alternatives,omitempty"`
	TransportationDetails *TransportationDetails `json:"transportation_details,omitempty"`
	DiningOptions         []DiningOption         `json:"dining_options,omitempty"`
	WeatherForecast       *WeatherForecast       `json:"weather_forecast,omitempty"`
	PhotoSpots            []string               `json:"photo_spots,omitempty"`
	LocalEvents           []string               `json:"local_events,omitempty"`
	BestTimes             []string               `json:"best_times,omitempty"`
	BudgetTips            []string               `json:"budget_tips,omitempty"`
	HiddenGems            []string               `json:"hidden_gems,omitempty"`
	CulturalInfo          string                 `json:"cultural_info,omitempty"`
	SafetyTips            []string               `json:"safety_tips,omitempty"`
	Etiquette             []string               `json:"etiquette,omitempty"`
	LocalPhrases          []string               `json:"local_phrases,omitempty"`
	EmergencyContacts     []string               `json:"emergency_contacts,omitempty"`
}

// ItineraryDay is one calendar day holding an ordered list of activities.
// The order is meaningful and user-editable.
type ItineraryDay struct {
	Day        int        `json:"day"`
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// Itinerary is the stored record for one trip. Days is nil until the first
// successful generation populates itinerary_data.
type Itinerary struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Title          string         `json:"title"`
	Destination    string         `json:"destination"`
	DurationDays   int            `json:"duration_days"`
	Budget         *float64       `json:"budget,omitempty"`
	Transportation []string       `json:"transportation"`
	Interests      []string       `json:"interests"`
	Lodging        *Lodging       `json:"lodging,omitempty"`
	Days           []ItineraryDay `json:"itinerary_data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SaveState tracks the outcome of the last best-effort persistence of an
// edited itinerary. In-memory edits always succeed; this is how callers find
// out whether the remote copy caught up.
type SaveState string

const (
	SaveStateIdle    SaveState = "idle"
	SaveStatePending SaveState = "pending"
	SaveStateSaved   SaveState = "saved"
	SaveStateFailed  SaveState = "failed"
)

type SaveStatus struct {
	State     SaveState `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateItineraryRequest is the planning-form payload that creates a record.
type CreateItineraryRequest struct {
	Title          string   `json:"title"`
	Destination    string   `json:"destination"`
	DurationDays   int      `json:"duration_days"`
	Budget         *float64 `json:"budget,omitempty"`
	Transportation []string `json:"transportation"`
	Interests      []string `json:"interests"`
	Lodging        *Lodging `json:"lodging,omitempty"`
}

// ReorderActivityRequest moves the activity at From to To within one day.
type ReorderActivityRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SubstituteActivityRequest replaces the core fields of the activity at
// ActivityIndex with the chosen alternative.
type SubstituteActivityRequest struct {
	ActivityIndex int         `json:"activity_index"`
	Alternative   Alternative `json:"alternative"`
}
