// Package home models the house itself: rooms, the devices in them, their
// cached live state, and the aggregate views the console renders (overview
// quick status, per-room detail).
package home

import (
	"errors"
	"time"
)

// Device types.
const (
	TypeLight           = "light"
	TypeDoor            = "door"
	TypeWindow          = "window"
	TypeTempHumidSensor = "temp_humid_sensor"
	TypeGasSensor       = "gas_sensor"
	TypeLightSensor     = "light_sensor"
)

// Device statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Known room locations. Locations double as path segments in room capability
// tuples, so they are slugs, not display names.
const (
	LocationLivingRoom = "living-room"
	LocationBedroom    = "bedroom"
	LocationKitchen    = "kitchen"
)

// Locations lists the rooms in display order.
func Locations() []string {
	return []string{LocationLivingRoom, LocationBedroom, LocationKitchen}
}

// Room is one room record.
type Room struct {
	Location  string    `json:"location"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Device is one controllable or sensing unit registered to a room.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	LastState string    `json:"last_state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActuator reports whether the device accepts commands (as opposed to a
// read-only sensor).
func (d Device) IsActuator() bool {
	switch d.Type {
	case TypeLight, TypeDoor, TypeWindow:
		return true
	default:
		return false
	}
}

// QuickStatus is the overview header aggregation.
type QuickStatus struct {
	LightsOn      int `json:"lightsOn"`
	LightsTotal   int `json:"lightsTotal"`
	DoorsOpen     int `json:"doorsOpen"`
	DoorsTotal    int `json:"doorsTotal"`
	WindowsOpen   int `json:"windowsOpen"`
	WindowsTotal  int `json:"windowsTotal"`
	DevicesOnline int `json:"devicesOnline"`
	DevicesTotal  int `json:"devicesTotal"`
}

// RoomSummary is one room card on the overview page.
type RoomSummary struct {
	Location    string   `json:"location"`
	Name        string   `json:"name"`
	HasWarning  bool     `json:"hasWarning"`
	Warnings    []string `json:"warnings,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	GasLevel    *float64 `json:"gasLevel,omitempty"`
	LightLevel  *float64 `json:"lightLevel,omitempty"`
}

// Overview is the full overview payload.
type Overview struct {
	QuickStatus QuickStatus   `json:"quickStatus"`
	Devices     []Device      `json:"devices"`
	Rooms       []RoomSummary `json:"rooms"`
}

// RoomDetail is the per-room payload: the room's devices, its latest sensor
// readings, and counts mirroring the overview quick status scoped to one
// room.
type RoomDetail struct {
	Location      string   `json:"location"`
	Name          string   `json:"name"`
	Devices       []Device `json:"devices"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	GasLevel      *float64 `json:"gasLevel,omitempty"`
	LightLevel    *float64 `json:"lightLevel,omitempty"`
	HasWarning    bool     `json:"hasWarning"`
	Warnings      []string `json:"warnings,omitempty"`
	LightsOn      int      `json:"lightsOn"`
	LightsTotal   int      `json:"lightsTotal"`
	DoorsOpen     int      `json:"doorsOpen"`
	DoorsTotal    int      `json:"doorsTotal"`
	WindowsOpen   int      `json:"windowsOpen"`
	WindowsTotal  int      `json:"windowsTotal"`
	DevicesOnline int      `json:"devicesOnline"`
	DevicesTotal  int      `json:"devicesTotal"`
}

// Sentinel errors.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrDeviceNotFound = errors.New("device not found")
	ErrNotActuator    = errors.New("device does not accept commands")
)
