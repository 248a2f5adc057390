// Package edistribucion implements the portal adapter for e-distribución,
// the Endesa group electricity distributor. Unlike the HTML portals this
// one exposes a token-authenticated JSON API.
package edistribucion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/enerluz/portalex/pkg/portals"
	"github.com/enerluz/portalex/pkg/portals/shared"
)

func init() {
	portals.Register(New())
}

const defaultBaseURL = "https://api.edistribucion.com"

// Portal adapts the e-distribución tariff API.
type Portal struct {
	// BaseURL is overridable for tests.
	BaseURL string
	Client  *http.Client
}

// New returns an adapter pointed at the production API.
func New() *Portal {
	return &Portal{
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Portal) Key() string  { return "edistribucion" }
func (p *Portal) Name() string { return "e-distribución Redes Digitales" }

func (p *Portal) Kind() portals.EnergyKind { return portals.EnergyElectricity }

func (p *Portal) LandingURL() string {
	return "https://www.edistribucion.com/es/red-electrica/tarifas.html"
}

func (p *Portal) Description() string {
	return "Endesa group electricity distributor covering Andalusia, Aragon, the Balearics, the Canaries, Catalonia and Extremadura"
}

// apiResponse mirrors the JSON shape of /api/v1/tarifas.
type apiResponse struct {
	Tarifas []apiTariff `json:"tarifas"`
}

type apiTariff struct {
	Nombre      string            `json:"nombre"`
	Peaje       string            `json:"peaje"`
	Descripcion string            `json:"descripcion"`
	Precios     map[string]string `json:"precios"`     // period -> price
	PrecioUnit  string            `json:"precio_unit"` // e.g. "EUR/MWh"
	Fijo        *apiCharge        `json:"termino_fijo"`
	Desde       string            `json:"vigencia_desde"`
	Hasta       string            `json:"vigencia_hasta"`
}

type apiCharge struct {
	Importe string `json:"importe"`
	Unidad  string `json:"unidad"`
}

// Extract queries the tariff API and maps its response to raw records.
func (p *Portal) Extract(ctx context.Context, q portals.Query) (*portals.RawTariffs, error) {
	token := os.Getenv("EDISTRIBUCION_API_TOKEN")
	if token == "" {
		return nil, portals.NewError(p.Key(), portals.FailureAuthentication,
			fmt.Errorf("EDISTRIBUCION_API_TOKEN not set"))
	}

	apiURL := fmt.Sprintf("%s/api/v1/tarifas?%s", p.BaseURL, url.Values{
		"peaje":   {q.AccessTariff},
		"cp":      {q.PostalCode},
		"consumo": {fmt.Sprintf("%.0f", q.AnnualConsumptionKWh)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, portals.Classify(p.Key(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, portals.ClassifyStatus(p.Key(), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, portals.Classify(p.Key(), err)
	}

	offers, err := ParseResponse(body)
	if err != nil {
		return nil, err
	}

	return &portals.RawTariffs{
		Code:      p.Key(),
		SourceURL: apiURL,
		FetchedAt: time.Now().UTC(),
		Offers:    offers,
	}, nil
}

// ParseResponse decodes the API payload into raw offers. Pure.
func ParseResponse(body []byte) ([]portals.RawOffer, error) {
	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, portals.NewError("edistribucion", portals.FailureBadShape, err)
	}
	if len(apiResp.Tarifas) == 0 {
		return nil, portals.NewError("edistribucion", portals.FailureBadShape,
			fmt.Errorf("response contains no tariffs"))
	}

	unit := func(u string) string {
		if u == "" {
			return "EUR/kWh"
		}
		return u
	}

	offers := make([]portals.RawOffer, 0, len(apiResp.Tarifas))
	for _, t := range apiResp.Tarifas {
		offer := portals.RawOffer{
			Name:         shared.NormSpace(t.Nombre),
			AccessTariff: shared.NormSpace(t.Peaje),
			Description:  shared.NormSpace(t.Descripcion),
			ValidFrom:    t.Desde,
			ValidTo:      t.Hasta,
		}
		// Period keys come from a JSON object; sort them so repeated
		// extractions yield identical records.
		periods := make([]string, 0, len(t.Precios))
		for period := range t.Precios {
			periods = append(periods, period)
		}
		sort.Strings(periods)
		for _, period := range periods {
			offer.EnergyPrices = append(offer.EnergyPrices, portals.RawPrice{
				Period: period,
				Value:  t.Precios[period],
				Unit:   unit(t.PrecioUnit),
			})
		}
		if t.Fijo != nil {
			offer.FixedCharges = append(offer.FixedCharges, portals.RawCharge{
				Name:  "término fijo",
				Value: t.Fijo.Importe,
				Unit:  unit(t.Fijo.Unidad),
			})
		}
		offers = append(offers, offer)
	}
	return offers, nil
}
