package normalize

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/enerluz/portalex/pkg/portals"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func rawFixture() *portals.RawTariffs {
	return &portals.RawTariffs{
		Code:      "ide",
		FetchedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Offers: []portals.RawOffer{
			{
				Name:         "  Plan   Estable ",
				AccessTariff: "2.0TD",
				Description:  "Oferta base",
				EnergyPrices: []portals.RawPrice{
					{Period: "Punta", Value: "0,158", Unit: "EUR/kWh"},
					{Period: "valle", Value: "8,1", Unit: "cents/kWh"},
				},
				FixedCharges: []portals.RawCharge{
					{Name: "Término fijo", Value: "12,50", Unit: "EUR/month"},
				},
				ValidFrom: "01/01/2026",
				ValidTo:   "31/12/2026",
			},
		},
	}
}

func TestOffersCanonicalUnits(t *testing.T) {
	offers, err := Offers("ide", rawFixture())
	if err != nil {
		t.Fatalf("Offers: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}

	o := offers[0]
	if o.DistributorCode != "ide" {
		t.Errorf("DistributorCode = %q", o.DistributorCode)
	}
	if o.OfferName != "Plan Estable" {
		t.Errorf("OfferName = %q, want whitespace-normalized name", o.OfferName)
	}
	if o.EnergyPrices[0].Period != "punta" {
		t.Errorf("period = %q, want lowercased punta", o.EnergyPrices[0].Period)
	}
	if !almostEqual(o.EnergyPrices[0].EURPerKWh, 0.158) {
		t.Errorf("punta EUR/kWh = %v", o.EnergyPrices[0].EURPerKWh)
	}
	if !almostEqual(o.EnergyPrices[0].CentsPerKWh, 15.8) {
		t.Errorf("punta cents/kWh = %v", o.EnergyPrices[0].CentsPerKWh)
	}
	// cents/kWh input converts down to EUR/kWh.
	if !almostEqual(o.EnergyPrices[1].EURPerKWh, 0.081) {
		t.Errorf("valle EUR/kWh = %v", o.EnergyPrices[1].EURPerKWh)
	}
	if !almostEqual(o.FixedCharges[0].EURPerMonth, 12.50) {
		t.Errorf("fixed EUR/month = %v", o.FixedCharges[0].EURPerMonth)
	}
	if o.ValidFrom == nil || !o.ValidFrom.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ValidFrom = %v", o.ValidFrom)
	}
	if !o.SourceTimestamp.Equal(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("SourceTimestamp = %v", o.SourceTimestamp)
	}
}

func TestOffersUnitConversions(t *testing.T) {
	tests := []struct {
		unit  string
		value string
		want  float64
	}{
		{"EUR/kWh", "0,105", 0.105},
		{"EUR/MWh", "105,20", 0.10520},
		{"cents/kWh", "10,5", 0.105},
	}
	for _, tt := range tests {
		raw := rawFixture()
		raw.Offers[0].EnergyPrices = []portals.RawPrice{{Period: "p1", Value: tt.value, Unit: tt.unit}}
		offers, err := Offers("x", raw)
		if err != nil {
			t.Fatalf("unit %s: %v", tt.unit, err)
		}
		if got := offers[0].EnergyPrices[0].EURPerKWh; !almostEqual(got, tt.want) {
			t.Errorf("unit %s: EUR/kWh = %v, want %v", tt.unit, got, tt.want)
		}
	}
}

func TestOffersFixedChargeConversions(t *testing.T) {
	tests := []struct {
		unit  string
		value string
		want  float64
	}{
		{"EUR/month", "12,50", 12.50},
		{"EUR/DIA", "0,44", 0.44 * 365.0 / 12.0},
		{"EUR/AÑO", "150", 12.5},
	}
	for _, tt := range tests {
		raw := rawFixture()
		raw.Offers[0].FixedCharges = []portals.RawCharge{{Name: "fijo", Value: tt.value, Unit: tt.unit}}
		offers, err := Offers("x", raw)
		if err != nil {
			t.Fatalf("unit %s: %v", tt.unit, err)
		}
		if got := offers[0].FixedCharges[0].EURPerMonth; !almostEqual(got, tt.want) {
			t.Errorf("unit %s: EUR/month = %v, want %v", tt.unit, got, tt.want)
		}
	}
}

func TestOffersValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*portals.RawTariffs)
		field  string
	}{
		{"missing name", func(r *portals.RawTariffs) { r.Offers[0].Name = "   " }, "offerName"},
		{"missing access tariff", func(r *portals.RawTariffs) { r.Offers[0].AccessTariff = "" }, "accessTariff"},
		{"no prices", func(r *portals.RawTariffs) { r.Offers[0].EnergyPrices = nil }, "energyPrices"},
		{"garbage price", func(r *portals.RawTariffs) { r.Offers[0].EnergyPrices[0].Value = "n/a" }, "energyPrices"},
		{"unknown price unit", func(r *portals.RawTariffs) { r.Offers[0].EnergyPrices[0].Unit = "USD/gal" }, "energyPrices"},
		{"garbage charge", func(r *portals.RawTariffs) { r.Offers[0].FixedCharges[0].Value = "??" }, "fixedCharges"},
	}

	for _, tt := range tests {
		raw := rawFixture()
		tt.mutate(raw)
		_, err := Offers("ide", raw)
		var pe *portals.Error
		if !errors.As(err, &pe) {
			t.Errorf("%s: err = %v, want *portals.Error", tt.name, err)
			continue
		}
		if pe.Reason != portals.FailureValidation {
			t.Errorf("%s: reason = %s, want validation_error", tt.name, pe.Reason)
		}
		if pe.Field != tt.field {
			t.Errorf("%s: field = %q, want %q", tt.name, pe.Field, tt.field)
		}
	}
}

func TestOffersEmptyRecord(t *testing.T) {
	for _, raw := range []*portals.RawTariffs{nil, {Code: "x"}} {
		_, err := Offers("x", raw)
		var pe *portals.Error
		if !errors.As(err, &pe) || pe.Reason != portals.FailureValidation {
			t.Errorf("err = %v, want validation_error", err)
		}
	}
}

func TestOffersInvalidDatesAreDropped(t *testing.T) {
	raw := rawFixture()
	raw.Offers[0].ValidFrom = "not a date"
	raw.Offers[0].ValidTo = ""
	offers, err := Offers("ide", raw)
	if err != nil {
		t.Fatalf("Offers: %v", err)
	}
	if offers[0].ValidFrom != nil || offers[0].ValidTo != nil {
		t.Errorf("invalid dates should drop, got %v / %v", offers[0].ValidFrom, offers[0].ValidTo)
	}
}

func TestOffersDeduplicate(t *testing.T) {
	raw := rawFixture()
	dup := raw.Offers[0]
	dup.Name = "Plan  Estable" // same after whitespace normalization
	raw.Offers = append(raw.Offers, dup)

	offers, err := Offers("ide", raw)
	if err != nil {
		t.Fatalf("Offers: %v", err)
	}
	if len(offers) != 1 {
		t.Errorf("got %d offers, want 1 after dedup", len(offers))
	}
}

func TestOffersDeterministic(t *testing.T) {
	a, err := Offers("ide", rawFixture())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Offers("ide", rawFixture())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same record did not normalize to identical offers")
	}
}
