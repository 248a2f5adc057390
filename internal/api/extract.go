package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/enerluz/portalex/internal/tariff"
	"github.com/enerluz/portalex/pkg/portals"
)

// queryFromRequest builds an extraction query from the request's URL
// parameters. Missing parameters stay zero; adapters treat them as "no
// filter".
func queryFromRequest(r *http.Request) portals.Query {
	q := portals.Query{
		AccessTariff: r.URL.Query().Get("atr"),
		PostalCode:   r.URL.Query().Get("cp"),
	}
	if v := r.URL.Query().Get("potencia"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.ContractedPowerKW = f
		}
	}
	if v := r.URL.Query().Get("consumo"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.AnnualConsumptionKWh = f
		}
	}
	return q
}

// handleExtract serves GET /extract?codes=ide,ufd&atr=2.0TD: a synchronous
// extraction run over the requested codes, defaulting to every registered
// distributor.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	instrument("/extract", func() int {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}

		codes := portals.Codes()
		if raw := r.URL.Query().Get("codes"); raw != "" {
			codes = nil
			for _, c := range strings.Split(raw, ",") {
				if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
					codes = append(codes, c)
				}
			}
		}
		if len(codes) == 0 {
			s.writeError(w, http.StatusBadRequest, "no distributor codes requested")
			return http.StatusBadRequest
		}

		run := s.svc.ExtractMany(r.Context(), codes, queryFromRequest(r))
		s.writeJSON(w, http.StatusOK, run)
		return http.StatusOK
	})
}

// handleOffers serves GET /offers/{code}: the latest known offers for one
// distributor, preferring the result cache, then the stored snapshot, and
// finally a live extraction.
func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	instrument("/offers/{code}", func() int {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}
		code := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/offers/"))
		if code == "" || strings.Contains(code, "/") {
			s.writeError(w, http.StatusNotFound, "not found")
			return http.StatusNotFound
		}
		if _, ok := portals.Get(code); !ok {
			s.writeError(w, http.StatusNotFound, "unknown distributor: "+code)
			return http.StatusNotFound
		}

		if res, hit := s.svc.Cache().Get(code); hit {
			s.writeJSON(w, http.StatusOK, offersResponse{Distributor: code, Source: "cache", Offers: res.Offers})
			return http.StatusOK
		}

		if s.store != nil {
			snap, err := s.store.GetOfferSnapshot(r.Context(), code)
			if err != nil {
				s.logger.Warn().Err(err).Str("distributor", code).Msg("snapshot read failed")
			} else if snap != nil {
				var offers []tariff.Offer
				if err := json.Unmarshal(snap.Payload, &offers); err == nil {
					s.writeJSON(w, http.StatusOK, offersResponse{Distributor: code, Source: "snapshot", Offers: offers})
					return http.StatusOK
				}
			}
		}

		run := s.svc.ExtractMany(r.Context(), []string{code}, queryFromRequest(r))
		res := run.Results[code]
		if !res.OK() {
			s.writeJSON(w, http.StatusBadGateway, res)
			return http.StatusBadGateway
		}
		s.writeJSON(w, http.StatusOK, offersResponse{Distributor: code, Source: "live", Offers: res.Offers})
		return http.StatusOK
	})
}

type offersResponse struct {
	Distributor string         `json:"distributor"`
	Source      string         `json:"source"`
	Offers      []tariff.Offer `json:"offers"`
}

// handleRefresh serves POST /refresh: drops cached results and re-extracts
// every registered distributor. Used by CronJobs and manual operator runs.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	instrument("/refresh", func() int {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}

		codes := portals.Codes()
		for _, code := range codes {
			s.svc.Cache().Invalidate(code)
		}
		run := s.svc.ExtractMany(r.Context(), codes, queryFromRequest(r))
		s.writeJSON(w, http.StatusOK, run)
		return http.StatusOK
	})
}
