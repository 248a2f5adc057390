// Package api exposes the extraction subsystem over HTTP: portal catalog,
// on-demand extraction, latest-offer reads, refresh and email configuration,
// plus Prometheus metrics and health endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/enerluz/portalex/internal/extract"
	"github.com/enerluz/portalex/internal/metrics"
	"github.com/enerluz/portalex/internal/notification"
	"github.com/enerluz/portalex/internal/storage"
)

// Server bundles the handlers' dependencies.
type Server struct {
	svc    *extract.Service
	store  storage.Storage
	notif  *notification.Service
	logger zerolog.Logger
}

func NewServer(svc *extract.Service, st storage.Storage, notif *notification.Service, logger zerolog.Logger) *Server {
	return &Server{
		svc:    svc,
		store:  st,
		notif:  notif,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Mux constructs the HTTP mux, wiring in the extraction service, metrics and
// health endpoints.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.store != nil {
			if err := s.store.Ping(r.Context()); err != nil {
				s.logger.Warn().Err(err).Msg("readyz: storage ping failed")
				http.Error(w, "storage not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Portal catalog.
	mux.HandleFunc("/portals", s.handlePortals)
	mux.HandleFunc("/portals/", s.handlePortal)

	// Extraction.
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/offers/", s.handleOffers)
	mux.HandleFunc("/refresh", s.handleRefresh)

	// Operator email configuration.
	mux.HandleFunc("/email/config", s.handleEmailConfig)
	mux.HandleFunc("/email/test", s.handleEmailTest)

	return mux
}

// instrument wraps a handler body with the per-path request metrics. The
// body returns the response status it wrote.
func instrument(path string, fn func() int) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues(path).Inc()
	status := fn()
	metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if status >= 400 {
		metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("encode response failed")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
