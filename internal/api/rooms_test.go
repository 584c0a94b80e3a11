package api

import (
	"net/http"
	"testing"

	"github.com/smartnest/smartnest-core/internal/authz"
	"github.com/smartnest/smartnest-core/internal/home"
)

func TestListRooms_FilteredToDetailGrants(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "bedroom-lister", authz.RoomDetail("bedroom"))

	w := env.do(t, http.MethodGet, "/api/v1/rooms", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Rooms []home.RoomSummary `json:"rooms"`
		Count int                `json:"count"`
	}
	decode(t, w, &resp)

	if resp.Count != 1 || len(resp.Rooms) != 1 {
		t.Fatalf("rooms = %+v, want just bedroom", resp.Rooms)
	}
	if resp.Rooms[0].Location != "bedroom" {
		t.Errorf("location = %q, want bedroom", resp.Rooms[0].Location)
	}
}

func TestListRooms_SystemRoleSeesAll(t *testing.T) {
	env := newTestEnv(t)

	// The owner holds no per-room grants; the list is a visibility surface so
	// the system-role bypass shows every room.
	w := env.do(t, http.MethodGet, "/api/v1/rooms", env.ownerToken(t), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3 seeded rooms", resp.Count)
	}
}

func TestListRooms_NoGrants(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "roomless")

	w := env.do(t, http.MethodGet, "/api/v1/rooms", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

func TestRoomDetail_ExactGrant(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-bed-light", "Bedroom Light", home.TypeLight, "bedroom", home.StatusOnline, "off")
	_, token := env.createUser(t, "bedroom-viewer", authz.RoomDetail("bedroom"))

	w := env.do(t, http.MethodGet, "/api/v1/rooms/bedroom", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var detail home.RoomDetail
	decode(t, w, &detail)
	if detail.Location != "bedroom" {
		t.Errorf("location = %q, want bedroom", detail.Location)
	}
	if len(detail.Devices) != 1 {
		t.Errorf("devices = %d, want 1", len(detail.Devices))
	}
}

func TestRoomDetail_GrantDoesNotLeakAcrossRooms(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "bedroom-only-viewer", authz.RoomDetail("bedroom"))

	w := env.do(t, http.MethodGet, "/api/v1/rooms/kitchen", token, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRoomDetail_SystemRoleDoesNotBypass(t *testing.T) {
	env := newTestEnv(t)

	// The detail endpoint checks the room capability exactly: holding the
	// system role is not enough without the explicit grant.
	w := env.do(t, http.MethodGet, "/api/v1/rooms/bedroom", env.ownerToken(t), "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusForbidden, w.Body.String())
	}

	var resp Error
	decode(t, w, &resp)
	if resp.Message != deniedMessage {
		t.Errorf("denial message = %q, want %q", resp.Message, deniedMessage)
	}
}

func TestRoomDevice_Control(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-kitchen-light", "Kitchen Light", home.TypeLight, "kitchen", home.StatusOnline, "off")
	_, token := env.createUser(t, "kitchen-switcher", authz.RoomDevice("kitchen", "light"))

	w := env.do(t, http.MethodPatch, "/api/v1/rooms/kitchen/devices/dev-kitchen-light", token,
		`{"state": "on"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	device, err := env.home.GetDevice(t.Context(), "dev-kitchen-light")
	if err != nil {
		t.Fatalf("reading device: %v", err)
	}
	if device.LastState != "on" {
		t.Errorf("last_state = %q, want on", device.LastState)
	}
}

func TestRoomDevice_KindGrantDoesNotCoverOtherKinds(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-kitchen-window", "Kitchen Window", home.TypeWindow, "kitchen", home.StatusOnline, "closed")
	_, token := env.createUser(t, "lights-not-windows", authz.RoomDevice("kitchen", "light"))

	w := env.do(t, http.MethodPatch, "/api/v1/rooms/kitchen/devices/dev-kitchen-window", token,
		`{"state": "open"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRoomDevice_InvalidState(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-bad-state", "Bedroom Light", home.TypeLight, "bedroom", home.StatusOnline, "off")
	_, token := env.createUser(t, "state-fumbler", authz.RoomDevice("bedroom", "light"))

	// "open" belongs to doors and windows, not lights.
	w := env.do(t, http.MethodPatch, "/api/v1/rooms/bedroom/devices/dev-bad-state", token,
		`{"state": "open"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRoomDevice_SensorRejectsCommands(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-sensor", "Temp Sensor", home.TypeTempHumidSensor, "bedroom", home.StatusOnline, "")
	_, token := env.createUser(t, "sensor-poker", authz.RoomDetail("bedroom"))

	w := env.do(t, http.MethodPatch, "/api/v1/rooms/bedroom/devices/dev-sensor", token,
		`{"state": "on"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRoomDevice_WrongRoomIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-misplaced", "Bedroom Light", home.TypeLight, "bedroom", home.StatusOnline, "off")
	_, token := env.createUser(t, "wrong-room", authz.RoomDevice("kitchen", "light"))

	// Device exists but not in the room named by the URL.
	w := env.do(t, http.MethodPatch, "/api/v1/rooms/kitchen/devices/dev-misplaced", token,
		`{"state": "on"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRoomControlAll(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-l1", "Light 1", home.TypeLight, "living-room", home.StatusOnline, "off")
	env.addDevice(t, "dev-l2", "Light 2", home.TypeLight, "living-room", home.StatusOnline, "off")
	env.addDevice(t, "dev-l3", "Offline Light", home.TypeLight, "living-room", home.StatusOffline, "off")
	_, token := env.createUser(t, "all-lights", authz.RoomControlAll("living-room", "lights"))

	w := env.do(t, http.MethodPatch, "/api/v1/rooms/living-room/devices", token,
		`{"type": "light", "state": "on"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Affected int64 `json:"affected"`
	}
	decode(t, w, &resp)
	// Only the online lights switch.
	if resp.Affected != 2 {
		t.Errorf("affected = %d, want 2", resp.Affected)
	}
}

func TestRoomControlAll_MissingCapability(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "single-switcher", authz.RoomDevice("living-room", "light"))

	// Per-device grant does not imply the control-all grant.
	w := env.do(t, http.MethodPatch, "/api/v1/rooms/living-room/devices", token,
		`{"type": "light", "state": "on"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestDoorPassword_CodeLengthValidated(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-door", "Front Door", home.TypeDoor, "living-room", home.StatusOnline, "closed")
	_, token := env.createUser(t, "door-coder", authz.RoomDoorPassword("living-room"))

	w := env.do(t, http.MethodPatch, "/api/v1/rooms/living-room/door/dev-door/change-password", token,
		`{"password": "123"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short code status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDoorPassword_NoBrokerIsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "dev-door2", "Front Door", home.TypeDoor, "living-room", home.StatusOnline, "closed")
	_, token := env.createUser(t, "door-coder2", authz.RoomDoorPassword("living-room"))

	// The code travels only over MQTT; with no broker the operation cannot
	// happen and must not pretend to.
	w := env.do(t, http.MethodPatch, "/api/v1/rooms/living-room/door/dev-door2/change-password", token,
		`{"password": "4821"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusServiceUnavailable, w.Body.String())
	}
}

func TestRoomAutoMode_RequiresCapability(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "no-auto", authz.RoomDetail("kitchen"))

	w := env.do(t, http.MethodPatch, "/api/v1/rooms/kitchen/auto", token, `{"enabled": true}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}
