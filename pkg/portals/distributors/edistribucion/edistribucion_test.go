package edistribucion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/enerluz/portalex/pkg/portals"
)

const fixtureJSON = `{
  "tarifas": [
    {
      "nombre": "Tarifa Acceso 2.0TD",
      "peaje": "2.0TD",
      "descripcion": "Peaje de acceso para suministros de hasta 15 kW",
      "precios": {"valle": "41,30", "punta": "105,20", "llano": "78,10"},
      "precio_unit": "EUR/MWh",
      "termino_fijo": {"importe": "0,44", "unidad": "EUR/DIA"},
      "vigencia_desde": "2026-01-01"
    },
    {
      "nombre": "Tarifa Acceso 3.0TD",
      "peaje": "3.0TD",
      "precios": {"p1": "98,70", "p2": "84,20"},
      "precio_unit": "EUR/MWh"
    }
  ]
}`

func TestParseResponse(t *testing.T) {
	offers, err := ParseResponse([]byte(fixtureJSON))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}

	first := offers[0]
	if first.Name != "Tarifa Acceso 2.0TD" || first.AccessTariff != "2.0TD" {
		t.Errorf("header fields: %+v", first)
	}

	// Period keys come from a JSON map; they must come out sorted so the
	// same payload always yields the same record.
	var periods []string
	for _, p := range first.EnergyPrices {
		periods = append(periods, p.Period)
		if p.Unit != "EUR/MWh" {
			t.Errorf("price unit = %q, want EUR/MWh", p.Unit)
		}
	}
	if want := []string{"llano", "punta", "valle"}; !reflect.DeepEqual(periods, want) {
		t.Errorf("periods = %v, want %v", periods, want)
	}

	if len(first.FixedCharges) != 1 || first.FixedCharges[0].Unit != "EUR/DIA" {
		t.Errorf("fixed charges = %+v", first.FixedCharges)
	}
	if first.ValidFrom != "2026-01-01" {
		t.Errorf("ValidFrom = %q", first.ValidFrom)
	}

	// Repeat parsing yields identical offers.
	again, err := ParseResponse([]byte(fixtureJSON))
	if err != nil {
		t.Fatalf("second ParseResponse: %v", err)
	}
	if !reflect.DeepEqual(offers, again) {
		t.Error("ParseResponse is not deterministic for the same payload")
	}
}

func TestParseResponseBadShape(t *testing.T) {
	for _, body := range []string{"<html>maintenance</html>", `{"tarifas": []}`} {
		_, err := ParseResponse([]byte(body))
		var pe *portals.Error
		if !errors.As(err, &pe) || pe.Reason != portals.FailureBadShape {
			t.Errorf("ParseResponse(%q) err = %v, want unexpected_response_shape", body, err)
		}
	}
}

func newAPIServer(t *testing.T, status int, body string) *Portal {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-ok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p := New()
	p.BaseURL = srv.URL
	return p
}

func TestExtract(t *testing.T) {
	t.Setenv("EDISTRIBUCION_API_TOKEN", "token-ok")

	p := newAPIServer(t, http.StatusOK, fixtureJSON)
	raw, err := p.Extract(context.Background(), portals.Query{AccessTariff: "2.0TD"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if raw.Code != "edistribucion" || len(raw.Offers) != 2 {
		t.Errorf("unexpected result: code=%q offers=%d", raw.Code, len(raw.Offers))
	}
}

func TestExtractMissingToken(t *testing.T) {
	t.Setenv("EDISTRIBUCION_API_TOKEN", "")

	p := New()
	_, err := p.Extract(context.Background(), portals.Query{})
	var pe *portals.Error
	if !errors.As(err, &pe) || pe.Reason != portals.FailureAuthentication {
		t.Fatalf("err = %v, want authentication_failed", err)
	}
}

func TestExtractRateLimited(t *testing.T) {
	t.Setenv("EDISTRIBUCION_API_TOKEN", "token-ok")

	p := newAPIServer(t, http.StatusTooManyRequests, "")
	_, err := p.Extract(context.Background(), portals.Query{})
	var pe *portals.Error
	if !errors.As(err, &pe) || pe.Reason != portals.FailureRateLimited {
		t.Fatalf("err = %v, want rate_limited", err)
	}
	if !portals.Retryable(pe.Reason) {
		t.Error("rate_limited should be retryable")
	}
}

func TestExtractRejectedToken(t *testing.T) {
	t.Setenv("EDISTRIBUCION_API_TOKEN", "token-bad")

	p := newAPIServer(t, http.StatusOK, fixtureJSON)
	_, err := p.Extract(context.Background(), portals.Query{})
	var pe *portals.Error
	if !errors.As(err, &pe) || pe.Reason != portals.FailureAuthentication {
		t.Fatalf("err = %v, want authentication_failed", err)
	}
}
