package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartnest/smartnest-core/internal/authz"
)

// PermissionRepository defines the interface for permission catalogue
// persistence. Records are seeded from the capability registry; the tuple
// itself never changes afterwards, only the display name.
type PermissionRepository interface {
	GetByID(ctx context.Context, id string) (*PermissionRecord, error)
	List(ctx context.Context) ([]PermissionRecord, error)
	ListByModule(ctx context.Context, module string) ([]PermissionRecord, error)
	Modules(ctx context.Context) ([]string, error)
	Rename(ctx context.Context, id, name string) error
	Seed(ctx context.Context, defs []authz.Definition) (int, error)
}

// SQLitePermissionRepository implements PermissionRepository using SQLite.
type SQLitePermissionRepository struct {
	db *sql.DB
}

// NewPermissionRepository creates a new SQLite-backed permission repository.
func NewPermissionRepository(db *sql.DB) *SQLitePermissionRepository {
	return &SQLitePermissionRepository{db: db}
}

// GetByID retrieves a permission record.
func (r *SQLitePermissionRepository) GetByID(ctx context.Context, id string) (*PermissionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, module, name, method, path, created_at, updated_at FROM permissions WHERE id = ?", id)
	return scanPermissionFrom(row)
}

// List returns the full permission catalogue, grouped by module ordering.
func (r *SQLitePermissionRepository) List(ctx context.Context) ([]PermissionRecord, error) {
	return r.list(ctx,
		"SELECT id, module, name, method, path, created_at, updated_at FROM permissions ORDER BY module ASC, path ASC, method ASC")
}

// ListByModule returns the permissions belonging to one module.
func (r *SQLitePermissionRepository) ListByModule(ctx context.Context, module string) ([]PermissionRecord, error) {
	return r.list(ctx,
		"SELECT id, module, name, method, path, created_at, updated_at FROM permissions WHERE module = ? ORDER BY path ASC, method ASC",
		module)
}

// Modules returns the distinct module names in the catalogue.
func (r *SQLitePermissionRepository) Modules(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT module FROM permissions ORDER BY module ASC")
	if err != nil {
		return nil, fmt.Errorf("listing modules: %w", err)
	}
	defer rows.Close()

	modules := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scanning module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating modules: %w", err)
	}
	return modules, nil
}

// Rename updates a permission's display name. Method and path are immutable:
// roles reference the tuple, and rewriting it would silently re-point every
// grant.
func (r *SQLitePermissionRepository) Rename(ctx context.Context, id, name string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE permissions SET name = ?, updated_at = ? WHERE id = ?", name, now, id)
	if err != nil {
		return fmt.Errorf("renaming permission: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

// Seed inserts any catalogue definitions not yet present, keyed by the
// (method, path) tuple. Existing records keep their ID and any renamed
// display name. Returns the number of newly inserted records. Idempotent, so
// it runs on every boot.
func (r *SQLitePermissionRepository) Seed(ctx context.Context, defs []authz.Definition) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning permission seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for _, def := range defs {
		var existing string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM permissions WHERE method = ? AND path = ?",
			def.Capability.Method, def.Capability.Path).Scan(&existing)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("checking permission %s %s: %w", def.Capability.Method, def.Capability.Path, err)
		}

		id := "prm-" + uuid.NewString()[:8]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO permissions (id, module, name, method, path, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, def.Module, def.Name, def.Capability.Method, def.Capability.Path, now, now,
		); err != nil {
			return 0, fmt.Errorf("seeding permission %s %s: %w", def.Capability.Method, def.Capability.Path, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing permission seed: %w", err)
	}
	return inserted, nil
}

func (r *SQLitePermissionRepository) list(ctx context.Context, query string, args ...any) ([]PermissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	perms := []PermissionRecord{}
	for rows.Next() {
		p, err := scanPermissionFrom(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permissions: %w", err)
	}
	return perms, nil
}

// scanPermissionFrom scans a permission from any scanner (Row or Rows).
func scanPermissionFrom(s scanner) (*PermissionRecord, error) {
	var p PermissionRecord
	var createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.Module, &p.Name, &p.Method, &p.Path, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("scanning permission: %w", err)
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &p, nil
}
