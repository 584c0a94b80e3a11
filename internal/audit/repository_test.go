package audit

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "audit-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			user_id TEXT,
			source TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		) STRICT;
		CREATE INDEX idx_audit_logs_created ON audit_logs(created_at);
	`); err != nil {
		t.Fatalf("applying audit migration: %v", err)
	}
	return db
}

func TestRepository_CreateAndGetByID(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	entry := &AuditLog{
		Action:     "update",
		EntityType: "role",
		EntityID:   "rol-abc123",
		UserID:     "usr-admin1",
		Source:     "api",
		Details:    map[string]any{"name": "User Manager"},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	got, err := repo.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Action != "update" || got.EntityType != "role" {
		t.Errorf("got %s/%s, want update/role", got.Action, got.EntityType)
	}
	if got.Details["name"] != "User Manager" {
		t.Errorf("details lost in round trip: %+v", got.Details)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	_, err := repo.GetByID(context.Background(), "aud-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRepository_List_FiltersAndPaginates(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	for i := range 5 {
		action := "create"
		if i%2 == 1 {
			action = "delete"
		}
		entry := &AuditLog{
			Action:     action,
			EntityType: "user",
			UserID:     "usr-actor",
			Source:     "api",
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	result, err := repo.List(ctx, Filter{Action: "create"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}

	result, err = repo.List(ctx, Filter{UserID: "usr-actor", Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Logs) != 2 {
		t.Errorf("page size = %d, want 2", len(result.Logs))
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}

	result, err = repo.List(ctx, Filter{UserID: "usr-other"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 0 || len(result.Logs) != 0 {
		t.Errorf("unexpected rows for unknown actor: %+v", result)
	}
}

func TestRepository_List_ClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	result, err := repo.List(context.Background(), Filter{Limit: 10000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("Limit = %d, want clamped 200", result.Limit)
	}
}
