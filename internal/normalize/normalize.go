// Package normalize converts adapter intermediate records into canonical
// tariff offers: unit conversion, required-field validation and
// de-duplication. It performs no I/O and is deterministic for a given
// record.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/enerluz/portalex/internal/tariff"
	"github.com/enerluz/portalex/pkg/portals"
	"github.com/enerluz/portalex/pkg/portals/shared"
)

const daysPerMonth = 365.0 / 12.0

// Offers converts raw scraped offers into canonical ones. Critical fields
// (offer name, access tariff, at least one parseable energy price) fail
// with a validation error naming the field; non-critical fields default to
// empty. Offers identical after whitespace normalization are emitted once.
func Offers(code string, raw *portals.RawTariffs) ([]tariff.Offer, error) {
	if raw == nil || len(raw.Offers) == 0 {
		return nil, portals.NewValidationError(code, "offers", fmt.Errorf("empty intermediate record"))
	}

	seen := make(map[string]bool)
	out := make([]tariff.Offer, 0, len(raw.Offers))
	for i, ro := range raw.Offers {
		offer, err := one(code, raw.FetchedAt, ro)
		if err != nil {
			return nil, fmt.Errorf("offer %d: %w", i, err)
		}
		key := dedupKey(offer)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, offer)
	}
	return out, nil
}

func one(code string, fetchedAt time.Time, ro portals.RawOffer) (tariff.Offer, error) {
	name := shared.NormSpace(ro.Name)
	if name == "" {
		return tariff.Offer{}, portals.NewValidationError(code, "offerName", fmt.Errorf("missing"))
	}
	access := shared.NormSpace(ro.AccessTariff)
	if access == "" {
		return tariff.Offer{}, portals.NewValidationError(code, "accessTariff", fmt.Errorf("missing"))
	}
	if len(ro.EnergyPrices) == 0 {
		return tariff.Offer{}, portals.NewValidationError(code, "energyPrices", fmt.Errorf("missing"))
	}

	offer := tariff.Offer{
		DistributorCode: code,
		OfferName:       name,
		AccessTariff:    access,
		Description:     shared.NormSpace(ro.Description),
		SourceTimestamp: fetchedAt,
	}

	for _, rp := range ro.EnergyPrices {
		eur, err := energyEUR(rp)
		if err != nil {
			return tariff.Offer{}, portals.NewValidationError(code, "energyPrices", err)
		}
		offer.EnergyPrices = append(offer.EnergyPrices, tariff.PricePeriod{
			Period:      shared.NormSpace(strings.ToLower(rp.Period)),
			EURPerKWh:   eur,
			CentsPerKWh: eur * 100,
		})
	}

	for _, rc := range ro.FixedCharges {
		monthly, err := chargeEURPerMonth(rc)
		if err != nil {
			return tariff.Offer{}, portals.NewValidationError(code, "fixedCharges", err)
		}
		offer.FixedCharges = append(offer.FixedCharges, tariff.FixedCharge{
			Name:        shared.NormSpace(strings.ToLower(rc.Name)),
			EURPerMonth: monthly,
		})
	}

	// Validity dates are non-critical: unparsable values are dropped.
	offer.ValidFrom = parseDate(ro.ValidFrom)
	offer.ValidTo = parseDate(ro.ValidTo)

	return offer, nil
}

// energyEUR converts a raw per-period price to EUR/kWh.
func energyEUR(rp portals.RawPrice) (float64, error) {
	v, err := shared.ParseDecimal(rp.Value)
	if err != nil {
		return 0, fmt.Errorf("period %s: unparsable price %q", rp.Period, rp.Value)
	}
	switch strings.ToUpper(shared.NormSpace(rp.Unit)) {
	case "", "EUR/KWH", "€/KWH":
		return v, nil
	case "CENTS/KWH", "CENT/KWH", "C€/KWH":
		return v / 100, nil
	case "EUR/MWH", "€/MWH":
		return v / 1000, nil
	default:
		return 0, fmt.Errorf("period %s: unknown unit %q", rp.Period, rp.Unit)
	}
}

// chargeEURPerMonth converts a raw fixed charge to EUR/month.
func chargeEURPerMonth(rc portals.RawCharge) (float64, error) {
	v, err := shared.ParseDecimal(rc.Value)
	if err != nil {
		return 0, fmt.Errorf("charge %s: unparsable value %q", rc.Name, rc.Value)
	}
	switch strings.ToUpper(shared.NormSpace(rc.Unit)) {
	case "", "EUR/MONTH", "EUR/MES", "€/MES":
		return v, nil
	case "EUR/DAY", "EUR/DIA", "€/DÍA", "€/DIA":
		return v * daysPerMonth, nil
	case "EUR/YEAR", "EUR/AÑO", "€/AÑO", "EUR/ANO":
		return v / 12, nil
	default:
		return 0, fmt.Errorf("charge %s: unknown unit %q", rc.Name, rc.Unit)
	}
}

var dateLayouts = []string{"02/01/2006", "2006-01-02", "2.1.2006"}

func parseDate(s string) *time.Time {
	s = shared.NormSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func dedupKey(o tariff.Offer) string {
	var b strings.Builder
	b.WriteString(o.OfferName)
	b.WriteByte('|')
	b.WriteString(o.AccessTariff)
	for _, p := range o.EnergyPrices {
		fmt.Fprintf(&b, "|%s=%.6f", p.Period, p.EURPerKWh)
	}
	for _, c := range o.FixedCharges {
		fmt.Fprintf(&b, "|%s=%.6f", c.Name, c.EURPerMonth)
	}
	return b.String()
}
