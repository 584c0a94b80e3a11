package home

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for room and device persistence.
type Repository interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, location string) (*Room, error)
	CreateDevice(ctx context.Context, d *Device) error
	GetDevice(ctx context.Context, id string) (*Device, error)
	ListDevices(ctx context.Context) ([]Device, error)
	ListDevicesByLocation(ctx context.Context, location string) ([]Device, error)
	UpdateDeviceState(ctx context.Context, id, lastState string) error
	UpdateDeviceStatus(ctx context.Context, id, status string) error
	SetStateForKind(ctx context.Context, location, deviceType, lastState string) (int64, error)
	SetStateForKindEverywhere(ctx context.Context, deviceType, lastState string) (int64, error)
	DeleteDevice(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed home repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListRooms returns all rooms in display order.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT location, name, created_at FROM rooms ORDER BY sort_order ASC")
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		var room Room
		var createdAt string
		if err := rows.Scan(&room.Location, &room.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		room.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom retrieves one room by its location slug.
func (r *SQLiteRepository) GetRoom(ctx context.Context, location string) (*Room, error) {
	var room Room
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT location, name, created_at FROM rooms WHERE location = ?", location,
	).Scan(&room.Location, &room.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("getting room: %w", err)
	}
	room.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &room, nil
}

// CreateDevice registers a device. The ID is generated if empty.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = "dev-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	d.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	d.UpdatedAt = d.CreatedAt
	if d.Status == "" {
		d.Status = StatusOffline
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, type, location, status, last_state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Type, d.Location, d.Status, d.LastState, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	return nil
}

// GetDevice retrieves a device by ID.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, type, location, status, last_state, created_at, updated_at FROM devices WHERE id = ?", id)
	return scanDevice(row)
}

// ListDevices returns every registered device.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	return r.list(ctx,
		"SELECT id, name, type, location, status, last_state, created_at, updated_at FROM devices ORDER BY location ASC, name ASC")
}

// ListDevicesByLocation returns the devices registered to one room.
func (r *SQLiteRepository) ListDevicesByLocation(ctx context.Context, location string) ([]Device, error) {
	return r.list(ctx,
		"SELECT id, name, type, location, status, last_state, created_at, updated_at FROM devices WHERE location = ? ORDER BY name ASC",
		location)
}

// UpdateDeviceState stores a device's last reported or commanded state.
func (r *SQLiteRepository) UpdateDeviceState(ctx context.Context, id, lastState string) error {
	return r.updateColumn(ctx, id, "last_state", lastState)
}

// UpdateDeviceStatus stores a device's online/offline status.
func (r *SQLiteRepository) UpdateDeviceStatus(ctx context.Context, id, status string) error {
	return r.updateColumn(ctx, id, "status", status)
}

func (r *SQLiteRepository) updateColumn(ctx context.Context, id, column, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	// column is a compile-time constant at every call site
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET "+column+" = ?, updated_at = ? WHERE id = ?", value, now, id)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", column, err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// SetStateForKind sets last_state for every online device of one type in one
// room. Used by the control-all endpoints. Returns the number of devices
// updated.
func (r *SQLiteRepository) SetStateForKind(ctx context.Context, location, deviceType, lastState string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET last_state = ?, updated_at = ? WHERE location = ? AND type = ? AND status = ?",
		lastState, now, location, deviceType, StatusOnline)
	if err != nil {
		return 0, fmt.Errorf("updating %s devices in %s: %w", deviceType, location, err)
	}
	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// SetStateForKindEverywhere sets last_state for every online device of one
// type across all rooms. Used by the overview lights/doors switches.
func (r *SQLiteRepository) SetStateForKindEverywhere(ctx context.Context, deviceType, lastState string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET last_state = ?, updated_at = ? WHERE type = ? AND status = ?",
		lastState, now, deviceType, StatusOnline)
	if err != nil {
		return 0, fmt.Errorf("updating all %s devices: %w", deviceType, err)
	}
	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// DeleteDevice removes a device registration.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var d Device
	var createdAt, updatedAt string

	err := s.Scan(&d.ID, &d.Name, &d.Type, &d.Location, &d.Status, &d.LastState, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &d, nil
}
