package server

import "net/http"

const headerAdminKey = "X-Admin-Key"

type resetRequest struct {
	AdminKey string `json:"adminKey"`
	Confirm  string `json:"confirm" validate:"required"`
}

func adminKey(r *http.Request) string {
	if k := r.Header.Get(headerAdminKey); k != "" {
		return k
	}
	return r.URL.Query().Get("adminKey")
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Stats.GetAdminSummary(r.Context(), adminKey(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true, Data: summary, Degraded: summary.Degraded})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.decode(w, r, &req) {
		return
	}
	key := req.AdminKey
	if key == "" {
		key = adminKey(r)
	}
	if err := s.Stats.ResetAll(r.Context(), key, req.Confirm); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "statistics reset")
}
