package portals

import (
	"context"
	"time"
)

// EnergyKind distinguishes electricity and gas distribution portals.
type EnergyKind string

const (
	EnergyElectricity EnergyKind = "electricity"
	EnergyGas         EnergyKind = "gas"
)

// Query carries the parameters a portal needs to return relevant offers.
// The meaning of each field is adapter-specific; the registry and the
// orchestrator never inspect it.
type Query struct {
	// AccessTariff is the regulated access-tariff class, e.g. "2.0TD".
	AccessTariff string
	// ContractedPowerKW is the contracted capacity in kW.
	ContractedPowerKW float64
	// AnnualConsumptionKWh is the yearly consumption profile in kWh.
	AnnualConsumptionKWh float64
	// PostalCode scopes offers for portals that price by zone.
	PostalCode string
}

// RawOffer is one offer as scraped from a portal, before normalization.
// Fields are kept as loosely typed strings in whatever convention the
// portal uses; the normalizer owns unit and format conversion.
type RawOffer struct {
	Name         string
	AccessTariff string
	Description  string
	EnergyPrices []RawPrice
	FixedCharges []RawCharge
	ValidFrom    string
	ValidTo      string
}

// RawPrice is a scraped per-period energy price with its declared unit.
type RawPrice struct {
	Period string // e.g. "punta", "llano", "valle"
	Value  string // as scraped, decimal comma or point
	Unit   string // "EUR/kWh", "cents/kWh", "EUR/MWh"
}

// RawCharge is a scraped fixed charge with its declared unit.
type RawCharge struct {
	Name  string
	Value string
	Unit  string // "EUR/month", "EUR/day", "EUR/year"
}

// RawTariffs is the intermediate extraction result produced by one adapter
// invocation. It is owned by the adapter until handed to the normalizer and
// is never persisted.
type RawTariffs struct {
	Code      string
	SourceURL string
	FetchedAt time.Time
	Offers    []RawOffer
}

// Portal is the capability interface every distributor adapter implements.
//
// Contract:
//   - Extract must respect ctx cancellation and deadlines; exceeding the
//     caller's budget surfaces as a timeout failure, never as truncation.
//   - On any failure path Extract returns a nil RawTariffs and a *Error
//     classifying the failure.
//   - Adapters may retry transient network blips internally but must not
//     retry authentication or response-shape failures.
//   - No state is retained across invocations; sessions are established
//     and discarded within one Extract call.
type Portal interface {
	// Key returns the stable distributor code, e.g. "ide".
	Key() string
	// Name returns the human-readable distributor name.
	Name() string
	// Kind returns the energy kind the portal covers.
	Kind() EnergyKind
	// LandingURL returns the public URL of the portal's tariff page.
	LandingURL() string
	// Description returns a short static description for UI listings.
	Description() string

	// Extract fetches and parses current offers from the live portal.
	Extract(ctx context.Context, q Query) (*RawTariffs, error)
}

// Info is the static descriptive metadata for a registered portal,
// served without any live fetch.
type Info struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}
