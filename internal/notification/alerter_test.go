package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/smartnest/smartnest-core/internal/settings"
)

func TestAlerter_CheckReading_InBand(t *testing.T) {
	repo := NewRepository(testDB(t))
	alerter := NewAlerter(repo, slog.Default())
	ctx := context.Background()

	n, err := alerter.CheckReading(ctx, "kitchen", "temperature", 22.0, settings.Range{Min: 10, Max: 35})
	if err != nil {
		t.Fatalf("CheckReading() error = %v", err)
	}
	if n != nil {
		t.Errorf("in-band reading should not alert, got %+v", n)
	}

	count, _ := repo.UnreadCount(ctx)
	if count != 0 {
		t.Errorf("no notification should be stored, got %d", count)
	}
}

func TestAlerter_CheckReading_Breach(t *testing.T) {
	repo := NewRepository(testDB(t))
	alerter := NewAlerter(repo, slog.Default())
	ctx := context.Background()

	n, err := alerter.CheckReading(ctx, "kitchen", "gas", 512.0, settings.Range{Min: 0, Max: 400})
	if err != nil {
		t.Fatalf("CheckReading() error = %v", err)
	}
	if n == nil {
		t.Fatal("out-of-band reading should alert")
	}
	if n.Severity != SeverityCritical {
		t.Errorf("gas breach severity = %q, want critical", n.Severity)
	}
	if n.Location != "kitchen" || n.Type != TypeSensorWarning {
		t.Errorf("unexpected notification: %+v", n)
	}

	stored, _ := repo.GetByID(ctx, n.ID)
	if stored.Metadata["metric"] != "gas" {
		t.Errorf("metadata should carry the metric, got %+v", stored.Metadata)
	}
}

func TestAlerter_CooldownSuppressesRepeats(t *testing.T) {
	repo := NewRepository(testDB(t))
	alerter := NewAlerter(repo, slog.Default())
	ctx := context.Background()
	band := settings.Range{Min: 10, Max: 35}

	first, _ := alerter.CheckReading(ctx, "bedroom", "temperature", 40.0, band)
	if first == nil {
		t.Fatal("first breach should alert")
	}

	second, err := alerter.CheckReading(ctx, "bedroom", "temperature", 41.0, band)
	if err != nil {
		t.Fatalf("CheckReading() error = %v", err)
	}
	if second != nil {
		t.Error("repeat breach within cooldown should be suppressed")
	}

	// A different room is its own cooldown bucket
	other, _ := alerter.CheckReading(ctx, "kitchen", "temperature", 40.0, band)
	if other == nil {
		t.Error("breach in a different room should still alert")
	}
}

func TestAlerter_RecoveryResetsCooldown(t *testing.T) {
	repo := NewRepository(testDB(t))
	alerter := NewAlerter(repo, slog.Default())
	alerter.cooldown = time.Hour
	ctx := context.Background()
	band := settings.Range{Min: 30, Max: 70}

	if n, _ := alerter.CheckReading(ctx, "bedroom", "humidity", 80.0, band); n == nil {
		t.Fatal("first breach should alert")
	}

	// Reading returns to band, then breaches again: alert immediately.
	if n, _ := alerter.CheckReading(ctx, "bedroom", "humidity", 50.0, band); n != nil {
		t.Fatal("in-band reading should not alert")
	}
	if n, _ := alerter.CheckReading(ctx, "bedroom", "humidity", 85.0, band); n == nil {
		t.Error("breach after recovery should alert despite cooldown window")
	}
}

func TestAlerter_DeviceOffline(t *testing.T) {
	repo := NewRepository(testDB(t))
	alerter := NewAlerter(repo, slog.Default())
	ctx := context.Background()

	n, err := alerter.DeviceOffline(ctx, "living-room", "dev-light-1", "Ceiling Light")
	if err != nil {
		t.Fatalf("DeviceOffline() error = %v", err)
	}
	if n == nil {
		t.Fatal("expected offline notification")
	}
	if n.Type != TypeDeviceOffline || n.DeviceID != "dev-light-1" {
		t.Errorf("unexpected notification: %+v", n)
	}

	// Same device within cooldown is suppressed
	again, _ := alerter.DeviceOffline(ctx, "living-room", "dev-light-1", "Ceiling Light")
	if again != nil {
		t.Error("repeat offline alert within cooldown should be suppressed")
	}
}
