package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smartnest/smartnest-core/internal/settings"
)

// defaultCooldown suppresses repeat alerts for the same room+metric while a
// breach persists, so a hovering reading does not flood the bell menu.
const defaultCooldown = 10 * time.Minute

// Alerter turns out-of-band sensor readings into stored notifications.
type Alerter struct {
	repo     Repository
	logger   *slog.Logger
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewAlerter creates an alerter over the notification repository.
func NewAlerter(repo Repository, logger *slog.Logger) *Alerter {
	return &Alerter{
		repo:     repo,
		logger:   logger,
		cooldown: defaultCooldown,
		lastSent: make(map[string]time.Time),
	}
}

// CheckReading compares one sensor reading against its threshold band and
// records a sensor warning when it falls outside. Returns the created
// notification, or nil when the reading is in band or the alert is still in
// cooldown.
func (a *Alerter) CheckReading(ctx context.Context, location, metric string, value float64, band settings.Range) (*Notification, error) {
	if band.Contains(value) {
		a.clear(location, metric)
		return nil, nil
	}

	if !a.shouldSend(location, metric) {
		return nil, nil
	}

	severity := SeverityMedium
	if metric == "gas" {
		severity = SeverityCritical
	}

	n := &Notification{
		Type:     TypeSensorWarning,
		Title:    fmt.Sprintf("%s out of range in %s", metric, location),
		Message:  fmt.Sprintf("%s reading %.1f is outside the configured band %.1f–%.1f", metric, value, band.Min, band.Max),
		Severity: severity,
		Location: location,
		Metadata: map[string]any{
			"metric": metric,
			"value":  value,
			"min":    band.Min,
			"max":    band.Max,
		},
	}
	if err := a.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("recording sensor warning: %w", err)
	}

	a.logger.Warn("sensor threshold breached",
		"location", location,
		"metric", metric,
		"value", value,
		"notification_id", n.ID,
	)
	return n, nil
}

// DeviceOffline records a device drop-off notification.
func (a *Alerter) DeviceOffline(ctx context.Context, location, deviceID, deviceName string) (*Notification, error) {
	if !a.shouldSend(location, "offline:"+deviceID) {
		return nil, nil
	}

	n := &Notification{
		Type:     TypeDeviceOffline,
		Title:    deviceName + " is offline",
		Message:  fmt.Sprintf("%s in %s stopped reporting", deviceName, location),
		Severity: SeverityHigh,
		Location: location,
		DeviceID: deviceID,
	}
	if err := a.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("recording device offline: %w", err)
	}
	return n, nil
}

func (a *Alerter) shouldSend(location, key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := location + "/" + key
	if last, ok := a.lastSent[k]; ok && time.Since(last) < a.cooldown {
		return false
	}
	a.lastSent[k] = time.Now()
	return true
}

// clear resets the cooldown once a reading returns to band, so the next
// breach alerts immediately.
func (a *Alerter) clear(location, key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.lastSent, location+"/"+key)
}
