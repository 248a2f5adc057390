// Package ufd implements the portal adapter for UFD, the Naturgy group
// electricity distributor. UFD does not expose a queryable portal; it
// publishes its access tariffs as a PDF price sheet, so extraction is a
// download plus text parse.
package ufd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/enerluz/portalex/pkg/portals"
	"github.com/enerluz/portalex/pkg/portals/shared"
)

func init() {
	portals.Register(New())
}

const defaultBaseURL = "https://www.ufd.es"

// Portal adapts the UFD published tariff sheet.
type Portal struct {
	// BaseURL is overridable for tests.
	BaseURL string
	Client  *http.Client
}

// New returns an adapter pointed at the production site.
func New() *Portal {
	return &Portal{
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Portal) Key() string  { return "ufd" }
func (p *Portal) Name() string { return "UFD Distribución Electricidad" }

func (p *Portal) Kind() portals.EnergyKind { return portals.EnergyElectricity }

func (p *Portal) LandingURL() string { return defaultBaseURL + "/tarifas-de-acceso" }

func (p *Portal) Description() string {
	return "Naturgy group electricity distributor covering Galicia and Madrid"
}

// Extract downloads the current tariff sheet and parses it.
func (p *Portal) Extract(ctx context.Context, q portals.Query) (*portals.RawTariffs, error) {
	sheetURL := p.BaseURL + "/docs/tarifas_acceso_vigentes.pdf"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sheetURL, nil)
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, portals.Classify(p.Key(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, portals.ClassifyStatus(p.Key(), resp.StatusCode)
	}

	// ledongthuc/pdf needs a seekable file, so spool the download to disk.
	tmpDir, err := os.MkdirTemp("", "ufd-sheet-*")
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "tarifas.pdf")
	if err := shared.WriteFileAtomically(path, resp.Body); err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureUnreachable, err)
	}

	text, err := extractText(path)
	if err != nil {
		return nil, portals.NewError(p.Key(), portals.FailureBadShape, err)
	}

	offers, err := ParseText(text, q.AccessTariff)
	if err != nil {
		return nil, err
	}

	return &portals.RawTariffs{
		Code:      p.Key(),
		SourceURL: sheetURL,
		FetchedAt: time.Now().UTC(),
		Offers:    offers,
	}, nil
}

func extractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

const sectionHeader = "TARIFA DE ACCESO"

var (
	tariffRE = regexp.MustCompile(`^\s*([0-9]\.[0-9]TD[A-Z]?)`)
	priceRE  = map[string]*regexp.Regexp{
		"punta": regexp.MustCompile(`Punta:\s*([0-9.,]+)\s*€/kWh`),
		"llano": regexp.MustCompile(`Llano:\s*([0-9.,]+)\s*€/kWh`),
		"valle": regexp.MustCompile(`Valle:\s*([0-9.,]+)\s*€/kWh`),
	}
	fixedRE    = regexp.MustCompile(`T[ée]rmino fijo:\s*([0-9.,]+)\s*€/mes`)
	validityRE = regexp.MustCompile(`Vigente desde\s+(\d{2}/\d{2}/\d{4})(?:\s+hasta\s+(\d{2}/\d{2}/\d{4}))?`)
)

// ParseText parses the plain text of the tariff sheet into raw offers,
// keeping only sections matching accessTariff when it is non-empty. Pure;
// useful for testing without a PDF fixture.
func ParseText(text, accessTariff string) ([]portals.RawOffer, error) {
	chunks := strings.Split(text, sectionHeader)
	if len(chunks) < 2 {
		return nil, portals.NewError("ufd", portals.FailureBadShape,
			fmt.Errorf("no tariff sections found in sheet"))
	}

	var offers []portals.RawOffer
	for _, body := range chunks[1:] {
		m := tariffRE.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		tariff := m[1]
		if accessTariff != "" && !strings.EqualFold(tariff, accessTariff) {
			continue
		}

		offer := portals.RawOffer{
			Name:         "Tarifa de acceso " + tariff,
			AccessTariff: tariff,
		}
		for _, period := range []string{"punta", "llano", "valle"} {
			if pm := priceRE[period].FindStringSubmatch(body); len(pm) >= 2 {
				offer.EnergyPrices = append(offer.EnergyPrices, portals.RawPrice{
					Period: period,
					Value:  pm[1],
					Unit:   "EUR/kWh",
				})
			}
		}
		if fm := fixedRE.FindStringSubmatch(body); len(fm) >= 2 {
			offer.FixedCharges = append(offer.FixedCharges, portals.RawCharge{
				Name:  "término fijo",
				Value: fm[1],
				Unit:  "EUR/month",
			})
		}
		if vm := validityRE.FindStringSubmatch(body); len(vm) >= 2 {
			offer.ValidFrom = vm[1]
			if len(vm) >= 3 {
				offer.ValidTo = vm[2]
			}
		}
		offers = append(offers, offer)
	}

	if len(offers) == 0 {
		return nil, portals.NewError("ufd", portals.FailureBadShape,
			fmt.Errorf("no section matches access tariff %q", accessTariff))
	}
	return offers, nil
}
