package auth

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the identity schema
// applied. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			email TEXT,
			password_hash TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE SET NULL
		) STRICT;

		CREATE UNIQUE INDEX idx_users_username ON users(username);

		CREATE TABLE roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			is_system_role INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE permissions (
			id TEXT PRIMARY KEY,
			module TEXT NOT NULL,
			name TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			UNIQUE (method, path)
		) STRICT;

		CREATE INDEX idx_permissions_module ON permissions(module);

		CREATE TABLE role_permissions (
			role_id TEXT NOT NULL,
			permission_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (role_id, permission_id),
			FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE,
			FOREIGN KEY (permission_id) REFERENCES permissions(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE user_roles (
			user_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (user_id, role_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE refresh_tokens (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			family_id TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			device_info TEXT,
			expires_at TEXT NOT NULL,
			revoked INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE INDEX idx_refresh_tokens_user ON refresh_tokens(user_id);
		CREATE INDEX idx_refresh_tokens_family ON refresh_tokens(family_id);
		CREATE INDEX idx_refresh_tokens_expires ON refresh_tokens(expires_at);
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying identity migration: %v", err)
	}

	return db
}

// seedTestUser inserts an active test user and returns it.
func seedTestUser(t *testing.T, db *sql.DB, username string) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := NewUserRepository(db)
	user := &User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return user
}

// seedTestPermission inserts one permission record and returns it.
func seedTestPermission(t *testing.T, db *sql.DB, module, method, path string) *PermissionRecord {
	t.Helper()

	perms := NewPermissionRepository(db)
	if _, err := db.Exec(
		`INSERT INTO permissions (id, module, name, method, path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
		"prm-"+method+path, module, method+" "+path, method, path,
	); err != nil {
		t.Fatalf("seeding permission %s %s: %v", method, path, err)
	}
	rec, err := perms.GetByID(t.Context(), "prm-"+method+path)
	if err != nil {
		t.Fatalf("reading seeded permission: %v", err)
	}
	return rec
}

// seedTestRole inserts a role granting the given permission IDs.
func seedTestRole(t *testing.T, db *sql.DB, name string, system bool, permissionIDs ...string) *RoleRecord {
	t.Helper()

	repo := NewRoleRepository(db)
	role := &RoleRecord{Name: name, IsActive: true, IsSystemRole: system}
	if err := repo.Create(t.Context(), role, permissionIDs); err != nil {
		t.Fatalf("creating test role %s: %v", name, err)
	}
	return role
}
