package api

import (
	"encoding/json"
	"net/http"

	"github.com/smartnest/smartnest-core/internal/home"
	"github.com/smartnest/smartnest-core/internal/infrastructure/mqtt"
	"github.com/smartnest/smartnest-core/internal/settings"
)

// handleOverview returns the whole-home overview: quick status counters, the
// device list, and per-room summary cards with threshold warnings.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.home.Overview(r.Context(), s.thresholds(r))
	if err != nil {
		s.logger.Error("building overview failed", "error", err)
		writeInternalError(w, "failed to build overview")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// controlRequest is the request body for the device control endpoints.
type controlRequest struct {
	State string `json:"state"`
}

// validStates per device kind. Lights switch on/off; doors and windows
// open/close.
var validStates = map[string]map[string]bool{
	home.TypeLight:  {"on": true, "off": true},
	home.TypeDoor:   {"open": true, "closed": true},
	home.TypeWindow: {"open": true, "closed": true},
}

// handleOverviewControl returns a handler that switches every device of one
// kind across the whole home. Commands are published per device; the cached
// state is updated optimistically.
func (s *Server) handleOverviewControl(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req controlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		if !validStates[kind][req.State] {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid state for "+kind)
			return
		}

		devices, err := s.home.Repo().ListDevices(r.Context())
		if err != nil {
			s.logger.Error("listing devices failed", "error", err)
			writeInternalError(w, "failed to control devices")
			return
		}
		for _, d := range devices {
			if d.Type == kind && d.Status == home.StatusOnline {
				s.publishCommand(d.Location, d.ID, req.State)
			}
		}

		affected, err := s.home.Repo().SetStateForKindEverywhere(r.Context(), kind, req.State)
		if err != nil {
			s.logger.Error("updating device states failed", "type", kind, "error", err)
			writeInternalError(w, "failed to control devices")
			return
		}

		s.recordAudit(r, "command", "device", "", "", map[string]any{
			"scope": "overview", "type": kind, "state": req.State, "affected": affected,
		})
		writeJSON(w, http.StatusOK, map[string]any{"state": req.State, "affected": affected})
	}
}

// thresholds loads the alert thresholds, falling back to defaults when the
// settings row is unreadable. Overview and room detail still render without
// warnings rather than failing.
func (s *Server) thresholds(r *http.Request) *settings.Thresholds {
	t, err := s.settings.Get(r.Context())
	if err != nil {
		s.logger.Warn("loading thresholds failed, using defaults", "error", err)
		def := settings.DefaultThresholds()
		return &def
	}
	return t
}

// publishCommand sends a device command over MQTT. Without a broker the
// command is dropped and logged — state still updates optimistically so the
// console reflects intent.
func (s *Server) publishCommand(location, deviceID, state string) {
	if s.mqtt == nil {
		s.logger.Warn("mqtt unavailable, command not published", "device_id", deviceID)
		return
	}

	payload, err := json.Marshal(map[string]string{"state": state})
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.DeviceCommand(location, deviceID)
	if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
		s.logger.Error("publishing command failed", "topic", topic, "error", err)
	}
}
