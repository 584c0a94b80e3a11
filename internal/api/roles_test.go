package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/smartnest/smartnest-core/internal/auth"
	"github.com/smartnest/smartnest-core/internal/authz"
)

func TestCreateRole(t *testing.T) {
	env := newTestEnv(t)
	permIDs := env.permissionIDs(t, authz.UsersList, authz.RolesList)

	w := env.do(t, http.MethodPost, "/api/v1/roles", env.ownerToken(t),
		`{"name": "helpdesk", "description": "Support staff", "permission_ids": ["`+
			permIDs[0]+`", "`+permIDs[1]+`"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created auth.RoleRecord
	decode(t, w, &created)

	if created.ID == "" {
		t.Error("expected generated role ID")
	}
	if created.IsSystemRole {
		t.Error("API-created roles must never be system roles")
	}
	if len(created.Permissions) != 2 {
		t.Errorf("permissions = %d, want 2", len(created.Permissions))
	}
}

func TestCreateRole_NameRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/roles", env.ownerToken(t), `{"name": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateRole_DuplicateName(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/roles", env.ownerToken(t), `{"name": "twice"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/v1/roles", env.ownerToken(t), `{"name": "twice"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestUpdateRole_NilPermissionsLeavesGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	role := &auth.RoleRecord{Name: "stable", IsActive: true}
	if err := env.roles.Create(ctx, role, env.permissionIDs(t, authz.UsersList)); err != nil {
		t.Fatalf("creating role: %v", err)
	}

	// Rename only — no permission_ids key in the body.
	w := env.do(t, http.MethodPatch, "/api/v1/roles/"+role.ID, env.ownerToken(t),
		`{"name": "stable-renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var updated auth.RoleRecord
	decode(t, w, &updated)
	if updated.Name != "stable-renamed" {
		t.Errorf("name = %q, want stable-renamed", updated.Name)
	}
	if len(updated.Permissions) != 1 {
		t.Errorf("permissions = %d, want 1 (grants untouched)", len(updated.Permissions))
	}
}

func TestUpdateRole_PermissionsReplaceSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	role := &auth.RoleRecord{Name: "shifting", IsActive: true}
	if err := env.roles.Create(ctx, role, env.permissionIDs(t, authz.UsersList, authz.RolesList)); err != nil {
		t.Fatalf("creating role: %v", err)
	}

	newPerm := env.permissionIDs(t, authz.SettingsView)[0]
	w := env.do(t, http.MethodPatch, "/api/v1/roles/"+role.ID, env.ownerToken(t),
		`{"permission_ids": ["`+newPerm+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var updated auth.RoleRecord
	decode(t, w, &updated)
	if len(updated.Permissions) != 1 || updated.Permissions[0].ID != newPerm {
		t.Errorf("permissions = %+v, want just %s", updated.Permissions, newPerm)
	}
}

func TestUpdateRole_TakesEffectWithoutRelogin(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "promoted", authz.NotificationsList)

	w := env.do(t, http.MethodGet, "/api/v1/users", token, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("pre-grant status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// Grant the capability to the user's role; the same token must now pass
	// because capabilities are resolved per request, not baked into the JWT.
	roles, err := env.roles.List(context.Background())
	if err != nil {
		t.Fatalf("listing roles: %v", err)
	}
	for _, role := range roles {
		if role.Name != "promoted-role" {
			continue
		}
		update := role
		if err := env.roles.Update(context.Background(), &update,
			env.permissionIDs(t, authz.NotificationsList, authz.UsersList)); err != nil {
			t.Fatalf("updating role: %v", err)
		}
	}

	w = env.do(t, http.MethodGet, "/api/v1/users", token, "")
	if w.Code != http.StatusOK {
		t.Errorf("post-grant status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestDeleteRole(t *testing.T) {
	env := newTestEnv(t)

	role := &auth.RoleRecord{Name: "ephemeral", IsActive: true}
	if err := env.roles.Create(context.Background(), role, nil); err != nil {
		t.Fatalf("creating role: %v", err)
	}

	w := env.do(t, http.MethodDelete, "/api/v1/roles/"+role.ID, env.ownerToken(t), "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d; body: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/roles/"+role.ID, env.ownerToken(t), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeleteRole_SystemRoleRefused(t *testing.T) {
	env := newTestEnv(t)

	system, err := env.roles.GetByName(context.Background(), "System Administrator")
	if err != nil {
		t.Fatalf("loading system role: %v", err)
	}

	w := env.do(t, http.MethodDelete, "/api/v1/roles/"+system.ID, env.ownerToken(t), "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusConflict, w.Body.String())
	}
}
