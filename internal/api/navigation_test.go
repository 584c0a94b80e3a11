package api

import (
	"net/http"
	"testing"

	"github.com/smartnest/smartnest-core/internal/authz"
)

type navResponse struct {
	Items        []authz.NavItem `json:"items"`
	Unrestricted bool            `json:"unrestricted"`
}

func TestNavigation_FilteredToGrants(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "nav-admin", authz.UsersList, authz.RolesList)

	w := env.do(t, http.MethodGet, "/api/v1/me/navigation", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp navResponse
	decode(t, w, &resp)

	if resp.Unrestricted {
		t.Error("plain user must not be unrestricted")
	}

	// Only Administration survives: Home and System have no granted children
	// and empty groups are dropped.
	if len(resp.Items) != 1 {
		t.Fatalf("groups = %d, want 1; items: %+v", len(resp.Items), resp.Items)
	}
	group := resp.Items[0]
	if group.Title != "Administration" {
		t.Errorf("group = %q, want Administration", group.Title)
	}
	if len(group.Items) != 2 {
		t.Fatalf("entries = %d, want 2", len(group.Items))
	}
	if group.Items[0].Title != "Users" || group.Items[1].Title != "Roles" {
		t.Errorf("entries = %q, %q; want Users, Roles (source order)",
			group.Items[0].Title, group.Items[1].Title)
	}
}

func TestNavigation_SystemRoleSeesEverything(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/me/navigation", env.ownerToken(t), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp navResponse
	decode(t, w, &resp)

	if !resp.Unrestricted {
		t.Error("owner should be unrestricted")
	}

	full := authz.DefaultNav()
	if len(resp.Items) != len(full) {
		t.Fatalf("groups = %d, want %d", len(resp.Items), len(full))
	}
	for i, group := range resp.Items {
		if group.Title != full[i].Title {
			t.Errorf("group %d = %q, want %q", i, group.Title, full[i].Title)
		}
		if len(group.Items) != len(full[i].Items) {
			t.Errorf("group %q entries = %d, want %d", group.Title, len(group.Items), len(full[i].Items))
		}
	}
}

func TestNavigation_RoomEntriesPerGrant(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "bedroom-only",
		authz.OverviewView, authz.RoomDetail("bedroom"))

	w := env.do(t, http.MethodGet, "/api/v1/me/navigation", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp navResponse
	decode(t, w, &resp)

	if len(resp.Items) != 1 || resp.Items[0].Title != "Home" {
		t.Fatalf("items = %+v, want just the Home group", resp.Items)
	}
	entries := resp.Items[0].Items
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (Overview + Bedroom)", len(entries))
	}
	if entries[0].Title != "Overview" || entries[1].Title != "Bedroom" {
		t.Errorf("entries = %q, %q; want Overview, Bedroom", entries[0].Title, entries[1].Title)
	}
}

func TestNavigation_NoGrants(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "nav-nobody")

	w := env.do(t, http.MethodGet, "/api/v1/me/navigation", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp navResponse
	decode(t, w, &resp)
	if len(resp.Items) != 0 {
		t.Errorf("items = %+v, want none", resp.Items)
	}
}
