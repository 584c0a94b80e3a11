package api

import (
	"encoding/json"
	"net/http"

	"github.com/smartnest/smartnest-core/internal/settings"
)

// handleGetSettings returns the alert threshold configuration.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	t, err := s.settings.Get(r.Context())
	if err != nil {
		s.logger.Error("loading settings failed", "error", err)
		writeInternalError(w, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updateSettingsRequest is the request body for PATCH /settings. Bands not
// supplied keep their current values.
type updateSettingsRequest struct {
	Temperature *settings.Range `json:"temperature"`
	Humidity    *settings.Range `json:"humidity"`
	Gas         *settings.Range `json:"gas"`
}

// handleUpdateSettings merges the supplied bands over the stored thresholds,
// validates, and saves.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	current, err := s.settings.Get(r.Context())
	if err != nil {
		s.logger.Error("loading settings failed", "error", err)
		writeInternalError(w, "failed to update settings")
		return
	}

	if req.Temperature != nil {
		current.Temperature = *req.Temperature
	}
	if req.Humidity != nil {
		current.Humidity = *req.Humidity
	}
	if req.Gas != nil {
		current.Gas = *req.Gas
	}

	if err := current.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if claims := claimsFromContext(r.Context()); claims != nil {
		current.UpdatedBy = claims.Subject
	}

	if err := s.settings.Save(r.Context(), current); err != nil {
		s.logger.Error("saving settings failed", "error", err)
		writeInternalError(w, "failed to save settings")
		return
	}

	s.recordAudit(r, "update", "settings", "alert-thresholds", "", nil)
	writeJSON(w, http.StatusOK, current)
}
