package api

import (
	"encoding/json"
	"net/http"

	"github.com/enerluz/portalex/internal/storage"
)

// handleEmailConfig serves GET and PUT /email/config: the operator alert
// email settings. Stored passwords and API keys are blanked on reads.
func (s *Server) handleEmailConfig(w http.ResponseWriter, r *http.Request) {
	instrument("/email/config", func() int {
		if s.notif == nil {
			s.writeError(w, http.StatusServiceUnavailable, "notifications not configured")
			return http.StatusServiceUnavailable
		}

		switch r.Method {
		case http.MethodGet:
			cfg, err := s.notif.GetConfig(r.Context())
			if err != nil {
				s.logger.Warn().Err(err).Msg("read email config failed")
				s.writeError(w, http.StatusInternalServerError, "internal error")
				return http.StatusInternalServerError
			}
			if cfg == nil {
				cfg = &storage.EmailConfig{}
			}
			cfg.Password = ""
			cfg.APIKey = ""
			s.writeJSON(w, http.StatusOK, cfg)
			return http.StatusOK

		case http.MethodPut:
			var req storage.EmailConfig
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, http.StatusBadRequest, "invalid request body")
				return http.StatusBadRequest
			}
			if err := s.notif.SaveConfig(r.Context(), req); err != nil {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return http.StatusInternalServerError
			}
			w.WriteHeader(http.StatusOK)
			return http.StatusOK

		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}
	})
}

// handleEmailTest serves POST /email/test: sends a test email with the
// provided (not yet saved) configuration.
func (s *Server) handleEmailTest(w http.ResponseWriter, r *http.Request) {
	instrument("/email/test", func() int {
		if s.notif == nil {
			s.writeError(w, http.StatusServiceUnavailable, "notifications not configured")
			return http.StatusServiceUnavailable
		}
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}

		var req struct {
			Config storage.EmailConfig `json:"config"`
			To     string              `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return http.StatusBadRequest
		}
		if err := s.notif.TestConfig(r.Context(), req.Config, req.To); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return http.StatusBadRequest
		}
		w.WriteHeader(http.StatusOK)
		return http.StatusOK
	})
}
