package home

import (
	"context"
	"fmt"

	"github.com/smartnest/smartnest-core/internal/settings"
)

// Service composes the durable device rows and the live state cache into the
// views the console renders.
type Service struct {
	repo  Repository
	state *StateRegistry
}

// NewService creates the home view service.
func NewService(repo Repository, state *StateRegistry) *Service {
	return &Service{repo: repo, state: state}
}

// State exposes the live state registry for the realtime pipeline.
func (s *Service) State() *StateRegistry {
	return s.state
}

// Repo exposes the underlying repository for the control handlers.
func (s *Service) Repo() Repository {
	return s.repo
}

// Overview builds the overview payload: quick status counters, the full
// device list, and one summary card per room with its latest readings and
// threshold warnings.
func (s *Service) Overview(ctx context.Context, thresholds *settings.Thresholds) (*Overview, error) {
	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("building overview: %w", err)
	}
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("building overview: %w", err)
	}

	out := &Overview{
		QuickStatus: countDevices(devices),
		Devices:     devices,
		Rooms:       make([]RoomSummary, 0, len(rooms)),
	}

	for _, room := range rooms {
		summary := RoomSummary{Location: room.Location, Name: room.Name}
		summary.Temperature = s.reading(room.Location, "temperature")
		summary.Humidity = s.reading(room.Location, "humidity")
		summary.GasLevel = s.reading(room.Location, "gas")
		summary.LightLevel = s.reading(room.Location, "lightLevel")
		summary.Warnings = warnings(thresholds, summary.Temperature, summary.Humidity, summary.GasLevel)
		summary.HasWarning = len(summary.Warnings) > 0
		out.Rooms = append(out.Rooms, summary)
	}

	return out, nil
}

// RoomDetail builds the per-room payload. The room must exist; unknown
// locations return ErrRoomNotFound.
func (s *Service) RoomDetail(ctx context.Context, location string, thresholds *settings.Thresholds) (*RoomDetail, error) {
	room, err := s.repo.GetRoom(ctx, location)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.ListDevicesByLocation(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("building room detail: %w", err)
	}

	counts := countDevices(devices)
	detail := &RoomDetail{
		Location:      room.Location,
		Name:          room.Name,
		Devices:       devices,
		LightsOn:      counts.LightsOn,
		LightsTotal:   counts.LightsTotal,
		DoorsOpen:     counts.DoorsOpen,
		DoorsTotal:    counts.DoorsTotal,
		WindowsOpen:   counts.WindowsOpen,
		WindowsTotal:  counts.WindowsTotal,
		DevicesOnline: counts.DevicesOnline,
		DevicesTotal:  counts.DevicesTotal,
	}
	detail.Temperature = s.reading(location, "temperature")
	detail.Humidity = s.reading(location, "humidity")
	detail.GasLevel = s.reading(location, "gas")
	detail.LightLevel = s.reading(location, "lightLevel")
	detail.Warnings = warnings(thresholds, detail.Temperature, detail.Humidity, detail.GasLevel)
	detail.HasWarning = len(detail.Warnings) > 0

	return detail, nil
}

func (s *Service) reading(location, field string) *float64 {
	v, ok := s.state.Reading(location, field)
	if !ok {
		return nil
	}
	return &v
}

// countDevices tallies the quick-status counters over a device slice. "on"
// counts lights switched on and doors/windows open; only online devices
// count toward the per-kind totals the toggles act on.
func countDevices(devices []Device) QuickStatus {
	var qs QuickStatus
	for _, d := range devices {
		qs.DevicesTotal++
		if d.Status == StatusOnline {
			qs.DevicesOnline++
		}
		switch d.Type {
		case TypeLight:
			qs.LightsTotal++
			if d.LastState == "on" {
				qs.LightsOn++
			}
		case TypeDoor:
			qs.DoorsTotal++
			if d.LastState == "open" {
				qs.DoorsOpen++
			}
		case TypeWindow:
			qs.WindowsTotal++
			if d.LastState == "open" {
				qs.WindowsOpen++
			}
		}
	}
	return qs
}

// warnings evaluates the available readings against the threshold bands.
func warnings(t *settings.Thresholds, temperature, humidity, gas *float64) []string {
	if t == nil {
		return nil
	}

	var out []string
	check := func(name string, v *float64, band settings.Range) {
		if v != nil && !band.Contains(*v) {
			out = append(out, fmt.Sprintf("%s %.1f outside %.1f–%.1f", name, *v, band.Min, band.Max))
		}
	}
	check("temperature", temperature, t.Temperature)
	check("humidity", humidity, t.Humidity)
	check("gas", gas, t.Gas)
	return out
}
