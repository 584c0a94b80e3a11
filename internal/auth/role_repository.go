package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoleRepository defines the interface for role persistence. Roles carry a
// replaceable set of permission grants; updates swap the whole set rather
// than diffing it.
type RoleRepository interface {
	Create(ctx context.Context, role *RoleRecord, permissionIDs []string) error
	GetByID(ctx context.Context, id string) (*RoleRecord, error)
	GetByName(ctx context.Context, name string) (*RoleRecord, error)
	List(ctx context.Context) ([]RoleRecord, error)
	Update(ctx context.Context, role *RoleRecord, permissionIDs []string) error
	Delete(ctx context.Context, id string) error
	SetUserRoles(ctx context.Context, userID string, roleIDs []string) error
	ListUserRoles(ctx context.Context, userID string) ([]RoleRecord, error)
}

// SQLiteRoleRepository implements RoleRepository using SQLite.
type SQLiteRoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new SQLite-backed role repository.
func NewRoleRepository(db *sql.DB) *SQLiteRoleRepository {
	return &SQLiteRoleRepository{db: db}
}

// Create inserts a new role and its permission grants in one transaction.
// The ID is generated if empty.
func (r *SQLiteRoleRepository) Create(ctx context.Context, role *RoleRecord, permissionIDs []string) error {
	if role.ID == "" {
		role.ID = "rol-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	role.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	role.UpdatedAt = role.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning role create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, is_active, is_system_role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, nullString(role.Description),
		boolToInt(role.IsActive), boolToInt(role.IsSystemRole), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoleNameExists
		}
		return fmt.Errorf("creating role: %w", err)
	}

	if err := replaceGrants(ctx, tx, role.ID, permissionIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing role create: %w", err)
	}
	return nil
}

// GetByID retrieves a role with its permission set.
func (r *SQLiteRoleRepository) GetByID(ctx context.Context, id string) (*RoleRecord, error) {
	return r.getRole(ctx, "WHERE id = ?", id)
}

// GetByName retrieves a role by its unique name.
func (r *SQLiteRoleRepository) GetByName(ctx context.Context, name string) (*RoleRecord, error) {
	return r.getRole(ctx, "WHERE name = ?", name)
}

func (r *SQLiteRoleRepository) getRole(ctx context.Context, where string, arg any) (*RoleRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, is_active, is_system_role, created_at, updated_at FROM roles "+where, arg)
	role, err := scanRoleFrom(row)
	if err != nil {
		return nil, err
	}

	perms, err := r.rolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return role, nil
}

// List returns all roles with their permission sets, ordered by name.
func (r *SQLiteRoleRepository) List(ctx context.Context) ([]RoleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, is_active, is_system_role, created_at, updated_at FROM roles ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	roles := []RoleRecord{}
	for rows.Next() {
		role, err := scanRoleFrom(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	for i := range roles {
		perms, err := r.rolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

// Update modifies a role's mutable fields and replaces its entire permission
// set. A nil permissionIDs leaves the grants untouched; an empty non-nil
// slice clears them.
func (r *SQLiteRoleRepository) Update(ctx context.Context, role *RoleRecord, permissionIDs []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	role.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning role update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := tx.ExecContext(ctx,
		`UPDATE roles SET name = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		role.Name, nullString(role.Description), boolToInt(role.IsActive), now, role.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoleNameExists
		}
		return fmt.Errorf("updating role: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRoleNotFound
	}

	if permissionIDs != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM role_permissions WHERE role_id = ?", role.ID); err != nil {
			return fmt.Errorf("clearing role grants: %w", err)
		}
		if err := replaceGrants(ctx, tx, role.ID, permissionIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing role update: %w", err)
	}
	return nil
}

// Delete removes a role. System roles are refused; grants and user
// assignments cascade.
func (r *SQLiteRoleRepository) Delete(ctx context.Context, id string) error {
	var isSystem int
	err := r.db.QueryRowContext(ctx,
		"SELECT is_system_role FROM roles WHERE id = ?", id).Scan(&isSystem)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("checking role: %w", err)
	}
	if isSystem != 0 {
		return ErrSystemRole
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM roles WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}
	return nil
}

// SetUserRoles replaces a user's role assignments with the given set.
func (r *SQLiteRoleRepository) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning assignment update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing assignments: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, ?)",
			userID, roleID, now); err != nil {
			return fmt.Errorf("assigning role %s: %w", roleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing assignments: %w", err)
	}
	return nil
}

// ListUserRoles returns the roles assigned to a user, permissions included.
// This is the read the identity snapshot is built from.
func (r *SQLiteRoleRepository) ListUserRoles(ctx context.Context, userID string) ([]RoleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.description, r.is_active, r.is_system_role, r.created_at, r.updated_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ?
		 ORDER BY r.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user roles: %w", err)
	}
	defer rows.Close()

	roles := []RoleRecord{}
	for rows.Next() {
		role, err := scanRoleFrom(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user roles: %w", err)
	}

	for i := range roles {
		perms, err := r.rolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

// rolePermissions loads the permission records granted to one role.
func (r *SQLiteRoleRepository) rolePermissions(ctx context.Context, roleID string) ([]PermissionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.module, p.name, p.method, p.path, p.created_at, p.updated_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = ?
		 ORDER BY p.module ASC, p.path ASC, p.method ASC`, roleID)
	if err != nil {
		return nil, fmt.Errorf("loading role grants: %w", err)
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
		return nil, fmt.Errorf("iterating role grants: %w", err)
	}
	return perms, nil
}

// replaceGrants inserts the grant rows for a role inside an open transaction.
func replaceGrants(ctx context.Context, tx *sql.Tx, roleID string, permissionIDs []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES (?, ?, ?)",
			roleID, permID, now); err != nil {
			return fmt.Errorf("granting permission %s: %w", permID, err)
		}
	}
	return nil
}

// scanRoleFrom scans a role from any scanner (Row or Rows).
func scanRoleFrom(s scanner) (*RoleRecord, error) {
	var role RoleRecord
	var description sql.NullString
	var isActive, isSystem int
	var createdAt, updatedAt string

	err := s.Scan(&role.ID, &role.Name, &description, &isActive, &isSystem,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("scanning role: %w", err)
	}

	role.IsActive = isActive != 0
	role.IsSystemRole = isSystem != 0
	if description.Valid {
		role.Description = description.String
	}
	role.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	role.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &role, nil
}
