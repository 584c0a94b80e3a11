// Package settings stores the alert threshold configuration: min/max bands
// for temperature, humidity, and gas. A single row holds the whole document;
// sensor readings outside a band raise threshold notifications.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Range is one min/max alert band.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether a reading sits inside the band (inclusive).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Thresholds is the full alert configuration document.
type Thresholds struct {
	Temperature Range     `json:"temperature"`
	Humidity    Range     `json:"humidity"`
	Gas         Range     `json:"gas"`
	UpdatedAt   time.Time `json:"updated_at"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
}

// DefaultThresholds are applied on first boot, before anyone has saved
// settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature: Range{Min: 10, Max: 35},
		Humidity:    Range{Min: 30, Max: 70},
		Gas:         Range{Min: 0, Max: 400},
	}
}

// Validate rejects inverted bands.
func (t Thresholds) Validate() error {
	for name, r := range map[string]Range{
		"temperature": t.Temperature,
		"humidity":    t.Humidity,
		"gas":         t.Gas,
	} {
		if r.Min > r.Max {
			return fmt.Errorf("%s: min %v exceeds max %v", name, r.Min, r.Max)
		}
	}
	return nil
}

// Repository defines the interface for threshold persistence.
type Repository interface {
	Get(ctx context.Context) (*Thresholds, error)
	Save(ctx context.Context, t *Thresholds) error
}

// SQLiteRepository implements Repository using SQLite. The table holds one
// row with a fixed key.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed settings repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const settingsKey = "alert-thresholds"

// Get returns the stored thresholds, or the defaults if nothing has been
// saved yet.
func (r *SQLiteRepository) Get(ctx context.Context) (*Thresholds, error) {
	var t Thresholds
	var updatedBy sql.NullString
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT temp_min, temp_max, humidity_min, humidity_max, gas_min, gas_max, updated_by, updated_at
		 FROM settings WHERE key = ?`, settingsKey,
	).Scan(&t.Temperature.Min, &t.Temperature.Max,
		&t.Humidity.Min, &t.Humidity.Max,
		&t.Gas.Min, &t.Gas.Max,
		&updatedBy, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := DefaultThresholds()
			return &defaults, nil
		}
		return nil, fmt.Errorf("getting settings: %w", err)
	}

	if updatedBy.Valid {
		t.UpdatedBy = updatedBy.String
	}
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// Save upserts the threshold document.
func (r *SQLiteRepository) Save(ctx context.Context, t *Thresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	var updatedBy any
	if t.UpdatedBy != "" {
		updatedBy = t.UpdatedBy
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, temp_min, temp_max, humidity_min, humidity_max, gas_min, gas_max, updated_by, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			temp_min = excluded.temp_min, temp_max = excluded.temp_max,
			humidity_min = excluded.humidity_min, humidity_max = excluded.humidity_max,
			gas_min = excluded.gas_min, gas_max = excluded.gas_max,
			updated_by = excluded.updated_by, updated_at = excluded.updated_at`,
		settingsKey,
		t.Temperature.Min, t.Temperature.Max,
		t.Humidity.Min, t.Humidity.Max,
		t.Gas.Min, t.Gas.Max,
		updatedBy, now,
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
