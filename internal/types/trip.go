package types

import (
	"fmt"
	"strings"
)

// Tier is the service level controlling prompt richness and which optional
// activity fields the model is asked for.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// TierFromPlan maps a subscription plan claim (e.g. "free", "premium_monthly")
// to the tier the generation pipeline should run with.
func TierFromPlan(plan string) Tier {
	if strings.HasPrefix(strings.ToLower(plan), "premium") {
		return TierPremium
	}
	return TierStandard
}

// Lodging is the optional accommodation block of a trip request.
type Lodging struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// TripParameters describes one generation request. It is created from the
// itinerary record plus an explicit tier and never mutated afterwards.
type TripParameters struct {
	Destination    string   `json:"destination"`
	DurationDays   int      `json:"duration_days"`
	Budget         *float64 `json:"budget,omitempty"`
	Transportation []string `json:"transportation"`
	Interests      []string `json:"interests"`
	Lodging        *Lodging `json:"lodging,omitempty"`
	Tier           Tier     `json:"tier"`
}

// Validate checks the invariants the prompt builder assumes. Requests are
// validated once here, at creation; the builder itself never fails.
func (p TripParameters) Validate() error {
	if strings.TrimSpace(p.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrBadRequest)
	}
	if p.DurationDays < 1 {
		return fmt.Errorf("%w: duration must be at least 1 day", ErrBadRequest)
	}
	if p.Budget != nil && *p.Budget < 0 {
		return fmt.Errorf("%w: budget cannot be negative", ErrBadRequest)
	}
	if len(p.Transportation) == 0 {
		return fmt.Errorf("%w: at least one transportation mode is required", ErrBadRequest)
	}
	if len(p.Interests) == 0 {
		return fmt.Errorf("%w: at least one interest is required", ErrBadRequest)
	}
	switch p.Tier {
	case TierStandard, TierPremium:
	default:
		return fmt.Errorf("%w: unknown tier %q", ErrBadRequest, p.Tier)
	}
	return nil
}
