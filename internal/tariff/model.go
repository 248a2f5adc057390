// Package tariff defines the canonical offer schema shared by the
// extraction core and its downstream consumers (the comparison and
// commission layers).
package tariff

import (
	"time"

	"github.com/enerluz/portalex/pkg/portals"
)

// PricePeriod is one canonical per-period energy price, always EUR/kWh.
type PricePeriod struct {
	Period      string  `json:"period"`
	EURPerKWh   float64 `json:"eur_per_kwh"`
	CentsPerKWh float64 `json:"cents_per_kwh"`
}

// FixedCharge is one canonical fixed charge, always EUR/month.
type FixedCharge struct {
	Name        string  `json:"name"`
	EURPerMonth float64 `json:"eur_per_month"`
}

// Offer is the canonical, unit-consistent tariff offer. Offers are never
// mutated after creation; re-extraction replaces them wholesale.
type Offer struct {
	DistributorCode string        `json:"distributor_code"`
	OfferName       string        `json:"offer_name"`
	AccessTariff    string        `json:"access_tariff"`
	Description     string        `json:"description,omitempty"`
	EnergyPrices    []PricePeriod `json:"energy_prices"`
	FixedCharges    []FixedCharge `json:"fixed_charges"`
	ValidFrom       *time.Time    `json:"valid_from,omitempty"`
	ValidTo         *time.Time    `json:"valid_to,omitempty"`
	// SourceTimestamp records when the portal was queried so downstream
	// consumers can apply their own freshness requirements.
	SourceTimestamp time.Time `json:"source_timestamp"`
}

// Failure is the typed failure attached to a distributor's result.
type Failure struct {
	Reason  portals.FailureReason `json:"reason"`
	Field   string                `json:"field,omitempty"`
	Message string                `json:"message,omitempty"`
}

// Result is the per-distributor outcome of one extraction run: either a
// non-empty offer sequence or a typed failure, never both.
type Result struct {
	DistributorCode string   `json:"distributor_code"`
	Offers          []Offer  `json:"offers,omitempty"`
	Failure         *Failure `json:"failure,omitempty"`
	Attempts        int      `json:"attempts"`
	FromCache       bool     `json:"from_cache"`
}

// OK reports whether the result carries at least one offer.
func (r Result) OK() bool { return r.Failure == nil && len(r.Offers) > 0 }

// RunStatus summarizes an extraction run.
type RunStatus string

const (
	RunAllSucceeded RunStatus = "all_succeeded"
	RunPartial      RunStatus = "partial"
	RunAllFailed    RunStatus = "all_failed"
)

// Run aggregates the results of one orchestrated extraction call, keyed by
// distributor code. A Run is assembled fresh per call and not shared across
// calls.
type Run struct {
	ID          string            `json:"id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Status      RunStatus         `json:"status"`
	Requested   []string          `json:"requested"`
	Results     map[string]Result `json:"results"`
}

// ComputeStatus derives the run status from its results: all_succeeded when
// every requested code has at least one offer, all_failed when none do. An
// empty requested set is all_failed, never a vacuous success.
func (r *Run) ComputeStatus() RunStatus {
	if len(r.Requested) == 0 {
		return RunAllFailed
	}
	succeeded := 0
	for _, code := range r.Requested {
		if res, ok := r.Results[code]; ok && res.OK() {
			succeeded++
		}
	}
	switch succeeded {
	case len(r.Requested):
		return RunAllSucceeded
	case 0:
		return RunAllFailed
	default:
		return RunPartial
	}
}
