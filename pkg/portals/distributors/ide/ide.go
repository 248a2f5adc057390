// Package ide implements the portal adapter for i-DE, the Iberdrola group
// electricity distributor. The portal is a classic server-rendered site: a
// form login establishes a session cookie, then the offer listing is an
// HTML table filtered by access tariff and contracted power.
package ide

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/enerluz/portalex/pkg/portals"
	"github.com/enerluz/portalex/pkg/portals/shared"
)

func init() {
	portals.Register(New())
}

const defaultBaseURL = "https://www.i-de.es"

// Portal adapts the i-DE distributor portal.
type Portal struct {
	// BaseURL is overridable for tests.
	BaseURL string
	// Client is the HTTP client used for one extraction; a fresh cookie
	// jar is attached per call so sessions never outlive an invocation.
	Client *http.Client
}

// New returns an adapter pointed at the production portal.
func New() *Portal {
	return &Portal{
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Portal) Key() string  { return "ide" }
func (p *Portal) Name() string { return "i-DE Redes Eléctricas Inteligentes" }

func (p *Portal) Kind() portals.EnergyKind { return portals.EnergyElectricity }

func (p *Portal) LandingURL() string { return defaultBaseURL + "/tarifas-electricidad" }

func (p *Portal) Description() string {
	return "Iberdrola group electricity distributor covering central and northern Spain"
}

// Extract logs in, fetches the offer listing for the query and parses it.
func (p *Portal) Extract(ctx context.Context, q portals.Query) (*portals.RawTariffs, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}
	client := *p.Client
	client.Jar = jar

	if err := p.login(ctx, &client); err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s/tarifas/ofertas?%s", p.BaseURL, url.Values{
		"atr":      {q.AccessTariff},
		"potencia": {fmt.Sprintf("%.1f", q.ContractedPowerKW)},
		"cp":       {q.PostalCode},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, portals.Classify(p.Key(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, portals.ClassifyStatus(p.Key(), resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureBadShape, err)
	}

	offers, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}

	return &portals.RawTariffs{
		Code:      p.Key(),
		SourceURL: listURL,
		FetchedAt: time.Now().UTC(),
		Offers:    offers,
	}, nil
}

// login establishes a portal session. The session cookie lives in the
// per-call jar and is discarded with it.
func (p *Portal) login(ctx context.Context, client *http.Client) error {
	user := os.Getenv("IDE_PORTAL_USER")
	pass := os.Getenv("IDE_PORTAL_PASSWORD")
	if user == "" || pass == "" {
		return portals.NewError(p.Key(), portals.FailureAuthentication,
			fmt.Errorf("IDE_PORTAL_USER / IDE_PORTAL_PASSWORD not set"))
	}

	form := url.Values{"usuario": {user}, "clave": {pass}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.BaseURL+"/acceso/login", strings.NewReader(form.Encode()))
	if err != nil {
		return portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return portals.Classify(p.Key(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return portals.NewError(p.Key(), portals.FailureAuthentication,
			fmt.Errorf("login rejected with HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return portals.ClassifyStatus(p.Key(), resp.StatusCode)
	}
	// The portal answers 200 on bad credentials too, re-rendering the login
	// form; the session cookie is the reliable signal.
	if !hasSessionCookie(client, p.BaseURL) {
		return portals.NewError(p.Key(), portals.FailureAuthentication,
			fmt.Errorf("no session cookie after login"))
	}
	return nil
}

func hasSessionCookie(client *http.Client, baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	for _, c := range client.Jar.Cookies(u) {
		if strings.HasPrefix(strings.ToUpper(c.Name), "IDESESSION") {
			return true
		}
	}
	return false
}

// ParseDocument parses the offer listing table. Pure: same document, same
// offers.
func ParseDocument(doc *goquery.Document) ([]portals.RawOffer, error) {
	table := doc.Find("table.tabla-ofertas tbody tr")
	if table.Length() == 0 {
		return nil, portals.NewError("ide", portals.FailureBadShape,
			fmt.Errorf("offer table not found"))
	}

	var offers []portals.RawOffer
	table.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}
		cell := func(i int) string { return shared.NormSpace(cells.Eq(i).Text()) }

		offer := portals.RawOffer{
			Name:         cell(0),
			AccessTariff: cell(1),
			EnergyPrices: []portals.RawPrice{
				{Period: "punta", Value: cell(2), Unit: "EUR/kWh"},
				{Period: "llano", Value: cell(3), Unit: "EUR/kWh"},
				{Period: "valle", Value: cell(4), Unit: "EUR/kWh"},
			},
			FixedCharges: []portals.RawCharge{
				{Name: "término fijo", Value: cell(5), Unit: "EUR/month"},
			},
		}
		if cells.Length() >= 8 {
			offer.ValidFrom = cell(6)
			offer.ValidTo = cell(7)
		}
		if desc, ok := row.Attr("data-descripcion"); ok {
			offer.Description = shared.NormSpace(desc)
		}
		offers = append(offers, offer)
	})

	if len(offers) == 0 {
		return nil, portals.NewError("ide", portals.FailureBadShape,
			fmt.Errorf("offer table present but no parsable rows"))
	}
	return offers, nil
}
