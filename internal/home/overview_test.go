package home

import (
	"context"
	"errors"
	"testing"

	"github.com/smartnest/smartnest-core/internal/settings"
)

func testService(t *testing.T) (*Service, Repository) {
	t.Helper()
	repo := NewRepository(testDB(t))
	return NewService(repo, NewStateRegistry()), repo
}

func TestService_Overview_QuickStatus(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	seedDevice(t, repo, "Lamp", TypeLight, LocationLivingRoom, StatusOnline, "on")
	seedDevice(t, repo, "Spot", TypeLight, LocationKitchen, StatusOnline, "off")
	seedDevice(t, repo, "Front Door", TypeDoor, LocationLivingRoom, StatusOnline, "open")
	seedDevice(t, repo, "Window", TypeWindow, LocationKitchen, StatusOffline, "closed")

	thresholds := settings.DefaultThresholds()
	overview, err := svc.Overview(ctx, &thresholds)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	qs := overview.QuickStatus
	if qs.LightsOn != 1 || qs.LightsTotal != 2 {
		t.Errorf("lights = %d/%d, want 1/2", qs.LightsOn, qs.LightsTotal)
	}
	if qs.DoorsOpen != 1 || qs.DoorsTotal != 1 {
		t.Errorf("doors = %d/%d, want 1/1", qs.DoorsOpen, qs.DoorsTotal)
	}
	if qs.DevicesOnline != 3 || qs.DevicesTotal != 4 {
		t.Errorf("devices = %d/%d, want 3/4", qs.DevicesOnline, qs.DevicesTotal)
	}
	if len(overview.Rooms) != 3 {
		t.Errorf("expected 3 room cards, got %d", len(overview.Rooms))
	}
	if len(overview.Devices) != 4 {
		t.Errorf("expected 4 devices, got %d", len(overview.Devices))
	}
}

func TestService_Overview_RoomWarnings(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	svc.State().Apply(LocationKitchen, map[string]any{"temperature": 45.0, "humidity": 50.0})
	svc.State().Apply(LocationBedroom, map[string]any{"temperature": 22.0})

	thresholds := settings.DefaultThresholds()
	overview, err := svc.Overview(ctx, &thresholds)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	byLocation := map[string]RoomSummary{}
	for _, room := range overview.Rooms {
		byLocation[room.Location] = room
	}

	if !byLocation[LocationKitchen].HasWarning {
		t.Error("kitchen at 45.0 should warn")
	}
	if byLocation[LocationBedroom].HasWarning {
		t.Error("bedroom at 22.0 should not warn")
	}
	if byLocation[LocationLivingRoom].HasWarning {
		t.Error("room with no readings should not warn")
	}
	if byLocation[LocationLivingRoom].Temperature != nil {
		t.Error("room with no readings should omit sensor fields")
	}
}

func TestService_RoomDetail(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	seedDevice(t, repo, "Spot", TypeLight, LocationKitchen, StatusOnline, "on")
	seedDevice(t, repo, "Window", TypeWindow, LocationKitchen, StatusOnline, "open")
	seedDevice(t, repo, "Elsewhere", TypeLight, LocationBedroom, StatusOnline, "on")
	svc.State().Apply(LocationKitchen, map[string]any{"temperature": 24.0, "gas": 120.0})

	thresholds := settings.DefaultThresholds()
	detail, err := svc.RoomDetail(ctx, LocationKitchen, &thresholds)
	if err != nil {
		t.Fatalf("RoomDetail() error = %v", err)
	}

	if detail.Name != "Kitchen" {
		t.Errorf("Name = %q, want Kitchen", detail.Name)
	}
	if len(detail.Devices) != 2 {
		t.Errorf("expected 2 devices, got %d", len(detail.Devices))
	}
	if detail.LightsOn != 1 || detail.WindowsOpen != 1 {
		t.Errorf("counts = lights %d windows %d, want 1/1", detail.LightsOn, detail.WindowsOpen)
	}
	if detail.Temperature == nil || *detail.Temperature != 24.0 {
		t.Errorf("Temperature = %v, want 24.0", detail.Temperature)
	}
	if detail.HasWarning {
		t.Errorf("in-band readings should not warn: %v", detail.Warnings)
	}
}

func TestService_RoomDetail_UnknownRoom(t *testing.T) {
	svc, _ := testService(t)

	thresholds := settings.DefaultThresholds()
	_, err := svc.RoomDetail(context.Background(), "garage", &thresholds)
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("error = %v, want ErrRoomNotFound", err)
	}
}
