package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/authz"
	"github.com/smartnest/smartnest-core/internal/home"
	"github.com/smartnest/smartnest-core/internal/infrastructure/mqtt"
)

// handleListRooms returns the room summary cards the caller may open.
//
// Listing is a visibility surface: each room is kept if the caller holds that
// room's detail capability, and the system-role bypass applies. This is the
// one place the bypass and the exact check deliberately diverge — see
// handleRoomDetail.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	caps := authz.Aggregate(snap)

	overview, err := s.home.Overview(r.Context(), s.thresholds(r))
	if err != nil {
		s.logger.Error("building room list failed", "error", err)
		writeInternalError(w, "failed to list rooms")
		return
	}

	visible := make([]home.RoomSummary, 0, len(overview.Rooms))
	for _, room := range overview.Rooms {
		if caps.Allows(authz.RoomDetail(room.Location), true) {
			visible = append(visible, room)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": visible, "count": len(visible)})
}

// handleRoomDetail returns one room's devices, readings, and counters.
//
// The check is exact: respectBypass is false, so even system-role members
// need the room's own detail capability. Nothing is fetched on the denied
// path.
func (s *Server) handleRoomDetail(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !authz.Aggregate(snap).Allows(authz.RoomDetail(location), false) {
		writeForbidden(w)
		return
	}

	detail, err := s.home.RoomDetail(r.Context(), location, s.thresholds(r))
	if err != nil {
		if errors.Is(err, home.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		s.logger.Error("building room detail failed", "location", location, "error", err)
		writeInternalError(w, "failed to build room detail")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleRoomDevice switches a single device. The capability is minted from
// the room and the device's kind, so a grant for kitchen lights says nothing
// about kitchen windows or bedroom lights.
func (s *Server) handleRoomDevice(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	deviceID := chi.URLParam(r, "deviceID")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	device, err := s.home.Repo().GetDevice(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, home.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("getting device failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to control device")
		return
	}
	if device.Location != location {
		writeNotFound(w, "device not found")
		return
	}
	if !device.IsActuator() {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "device does not accept commands")
		return
	}
	if !validStates[device.Type][req.State] {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid state for "+device.Type)
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if authz.Decide(snap, ptr(authz.RoomDevice(location, device.Type)), true) != authz.DecisionGranted {
		writeForbidden(w)
		return
	}

	s.publishCommand(location, deviceID, req.State)
	if err := s.home.Repo().UpdateDeviceState(r.Context(), deviceID, req.State); err != nil {
		s.logger.Error("updating device state failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to control device")
		return
	}

	s.broadcastRoom(location, "device.state_changed", map[string]any{
		"device_id": deviceID, "location": location, "type": device.Type, "state": req.State,
	})
	if s.influx != nil {
		s.influx.WriteDeviceEvent(deviceID, location, device.Type, req.State)
	}

	s.recordAudit(r, "command", "device", deviceID, "", map[string]any{
		"location": location, "type": device.Type, "state": req.State,
	})
	writeJSON(w, http.StatusOK, map[string]any{"device_id": deviceID, "state": req.State})
}

// controlAllRequest is the request body for PATCH /rooms/{location}/devices.
type controlAllRequest struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// handleRoomControlAll switches every device of one kind in a room.
func (s *Server) handleRoomControlAll(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")

	var req controlAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !validStates[req.Type][req.State] {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid type or state")
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	// Control-all capabilities carry the plural kind in their path.
	if authz.Decide(snap, ptr(authz.RoomControlAll(location, req.Type+"s")), true) != authz.DecisionGranted {
		writeForbidden(w)
		return
	}

	if _, err := s.home.Repo().GetRoom(r.Context(), location); err != nil {
		if errors.Is(err, home.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		s.logger.Error("getting room failed", "location", location, "error", err)
		writeInternalError(w, "failed to control devices")
		return
	}

	devices, err := s.home.Repo().ListDevicesByLocation(r.Context(), location)
	if err != nil {
		s.logger.Error("listing room devices failed", "location", location, "error", err)
		writeInternalError(w, "failed to control devices")
		return
	}
	for _, d := range devices {
		if d.Type == req.Type && d.Status == home.StatusOnline {
			s.publishCommand(location, d.ID, req.State)
		}
	}

	affected, err := s.home.Repo().SetStateForKind(r.Context(), location, req.Type, req.State)
	if err != nil {
		s.logger.Error("updating device states failed", "location", location, "error", err)
		writeInternalError(w, "failed to control devices")
		return
	}

	s.broadcastRoom(location, "device.state_changed", map[string]any{
		"location": location, "type": req.Type, "state": req.State, "affected": affected,
	})

	s.recordAudit(r, "command", "device", "", "", map[string]any{
		"location": location, "type": req.Type, "state": req.State, "affected": affected,
	})
	writeJSON(w, http.StatusOK, map[string]any{"state": req.State, "affected": affected})
}

// doorPasswordRequest is the request body for the door code change endpoint.
type doorPasswordRequest struct {
	Password string `json:"password"`
}

// doorCodeLength bounds for lock entry codes.
const (
	minDoorCodeLength = 4
	maxDoorCodeLength = 12
)

// handleDoorPassword changes a door lock's entry code. The code itself goes
// to the lock over MQTT and is never persisted or audited.
func (s *Server) handleDoorPassword(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	deviceID := chi.URLParam(r, "deviceID")

	var req doorPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Password) < minDoorCodeLength || len(req.Password) > maxDoorCodeLength {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "entry code must be 4-12 characters")
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if authz.Decide(snap, ptr(authz.RoomDoorPassword(location)), true) != authz.DecisionGranted {
		writeForbidden(w)
		return
	}

	device, err := s.home.Repo().GetDevice(r.Context(), deviceID)
	if err != nil || device.Location != location || device.Type != home.TypeDoor {
		writeNotFound(w, "door not found")
		return
	}

	if s.mqtt == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "device bus unavailable")
		return
	}
	payload, err := json.Marshal(map[string]string{"command": "change-password", "password": req.Password})
	if err != nil {
		writeInternalError(w, "failed to change entry code")
		return
	}
	topic := mqtt.Topics{}.DeviceCommand(location, deviceID)
	if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
		s.logger.Error("publishing entry code change failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to change entry code")
		return
	}

	s.recordAudit(r, "command", "device", deviceID, "", map[string]any{
		"location": location, "command": "change-password",
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "code change sent"})
}

// autoModeRequest is the request body for the auto climate mode toggle.
type autoModeRequest struct {
	Enabled bool `json:"enabled"`
}

// handleRoomAutoMode toggles a room's automatic climate mode. The command is
// addressed to the room's climate controller on the device bus.
func (s *Server) handleRoomAutoMode(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")

	var req autoModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if authz.Decide(snap, ptr(authz.RoomAutoMode(location)), true) != authz.DecisionGranted {
		writeForbidden(w)
		return
	}

	if _, err := s.home.Repo().GetRoom(r.Context(), location); err != nil {
		writeNotFound(w, "room not found")
		return
	}

	if s.mqtt != nil {
		payload, err := json.Marshal(map[string]any{"auto": req.Enabled})
		if err == nil {
			topic := mqtt.Topics{}.DeviceCommand(location, "climate")
			if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
				s.logger.Error("publishing auto mode failed", "location", location, "error", err)
			}
		}
	}

	s.broadcastRoom(location, "room.auto_mode", map[string]any{"location": location, "auto": req.Enabled})
	s.recordAudit(r, "command", "room", location, "", map[string]any{"auto": req.Enabled})
	writeJSON(w, http.StatusOK, map[string]any{"location": location, "auto": req.Enabled})
}

func ptr(c authz.Capability) *authz.Capability { return &c }
