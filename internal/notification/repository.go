// Package notification stores alert and status notifications raised by the
// platform: threshold breaches, device drop-offs, security events. Records
// feed the console's bell menu and notification page.
package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TypeSecurityAlert = "security_alert"
	TypeSensorWarning = "sensor_warning"
	TypeDeviceOffline = "device_offline"
	TypeSystemInfo    = "system_info"
)

// Severity levels.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Notification is one stored notification record.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	Location  string         `json:"location,omitempty"`
	DeviceID  string         `json:"device_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Repository defines the interface for notification persistence.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, unreadOnly bool) ([]Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed notification repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a notification. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = "ntf-" + uuid.NewString()[:8]
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var metadataJSON any
	if n.Metadata != nil {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling notification metadata: %w", err)
		}
		metadataJSON = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, type, title, message, severity, location, device_id, metadata, is_read, read_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Type, n.Title, n.Message, n.Severity,
		nullable(n.Location), nullable(n.DeviceID), metadataJSON,
		boolToInt(n.IsRead), nil,
		n.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// GetByID retrieves a single notification.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, title, message, severity, location, device_id, metadata, is_read, read_at, created_at
		 FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

// List returns notifications newest first, optionally only unread ones.
func (r *SQLiteRepository) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	query := `SELECT id, type, title, message, severity, location, device_id, metadata, is_read, read_at, created_at
	 FROM notifications`
	if unreadOnly {
		query += " WHERE is_read = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	list := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return list, nil
}

// UnreadCount returns the number of unread notifications.
func (r *SQLiteRepository) UnreadCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE is_read = 0").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification as read and stamps read_at.
func (r *SQLiteRepository) MarkRead(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification as read. Returns the number of
// rows updated.
func (r *SQLiteRepository) MarkAllRead(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE is_read = 0", now)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}
	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// Delete removes a notification.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(s scanner) (*Notification, error) {
	var n Notification
	var location, deviceID, metadataJSON, readAt sql.NullString
	var isRead int
	var createdAt string

	err := s.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Severity,
		&location, &deviceID, &metadataJSON, &isRead, &readAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning notification: %w", err)
	}

	n.IsRead = isRead != 0
	if location.Valid {
		n.Location = location.String
	}
	if deviceID.Valid {
		n.DeviceID = deviceID.String
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var metadata map[string]any
		if json.Unmarshal([]byte(metadataJSON.String), &metadata) == nil {
			n.Metadata = metadata
		}
	}
	if readAt.Valid {
		t, err := time.Parse(time.RFC3339, readAt.String)
		if err == nil {
			n.ReadAt = &t
		}
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
