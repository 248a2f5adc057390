package api

import (
	"net/http"
	"strings"

	"github.com/enerluz/portalex/pkg/portals"
)

// handlePortals serves GET /portals: the registered distributor catalog in
// registration order.
func (s *Server) handlePortals(w http.ResponseWriter, r *http.Request) {
	instrument("/portals", func() int {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}
		s.writeJSON(w, http.StatusOK, portals.Infos())
		return http.StatusOK
	})
}

// handlePortal serves GET /portals/{code}.
func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	instrument("/portals/{code}", func() int {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return http.StatusMethodNotAllowed
		}
		code := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/portals/"))
		if code == "" || strings.Contains(code, "/") {
			s.writeError(w, http.StatusNotFound, "not found")
			return http.StatusNotFound
		}
		info, ok := portals.GetInfo(code)
		if !ok {
			s.writeError(w, http.StatusNotFound, "unknown distributor: "+code)
			return http.StatusNotFound
		}
		s.writeJSON(w, http.StatusOK, info)
		return http.StatusOK
	})
}
