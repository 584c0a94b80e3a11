package authz

import "testing"

func navFixture() []NavItem {
	return []NavItem{
		{
			Title: "Home",
			URL:   "#",
			Items: []NavItem{
				{Title: "Overview", URL: "/overview", Requirement: &OverviewView},
				{Title: "Kitchen", URL: "/rooms/kitchen", Requirement: ptr(RoomDetail("kitchen"))},
			},
		},
		{
			Title: "Administration",
			URL:   "#",
			Items: []NavItem{
				{Title: "Users", URL: "/users", Requirement: &UsersList},
				{Title: "Roles", URL: "/roles", Requirement: &RolesList},
			},
		},
		{Title: "Help", URL: "/help"},
	}
}

func TestFilterNav_DropsEmptyGroups(t *testing.T) {
	caps := Aggregate(snapWith(role(false, UsersList)))
	out := FilterNav(navFixture(), caps)

	if len(out) != 2 {
		t.Fatalf("expected 2 surviving items, got %d", len(out))
	}
	if out[0].Title != "Administration" {
		t.Errorf("group with zero surviving children should be dropped, first item is %q", out[0].Title)
	}
	if len(out[0].Items) != 1 || out[0].Items[0].Title != "Users" {
		t.Errorf("only the granted child should survive, got %+v", out[0].Items)
	}
}

func TestFilterNav_NoRequirementAlwaysPasses(t *testing.T) {
	out := FilterNav(navFixture(), Aggregate(snapWith()))
	if len(out) != 1 || out[0].Title != "Help" {
		t.Errorf("requirement-free leaf should survive an empty set, got %+v", out)
	}
}

func TestFilterNav_PreservesOrder(t *testing.T) {
	caps := Aggregate(snapWith(role(false, RolesList, UsersList, OverviewView)))
	out := FilterNav(navFixture(), caps)

	want := []string{"Home", "Administration", "Help"}
	if len(out) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(out))
	}
	for i, title := range want {
		if out[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, out[i].Title, title)
		}
	}
	admin := out[1].Items
	if admin[0].Title != "Users" || admin[1].Title != "Roles" {
		t.Errorf("child order should match the source tree, got %+v", admin)
	}
}

func TestFilterNav_SystemRoleSeesEverything(t *testing.T) {
	out := FilterNav(navFixture(), Aggregate(snapWith(role(true))))
	if len(out) != 3 {
		t.Errorf("unrestricted set should keep the full tree, got %d items", len(out))
	}
}

func TestFilterNav_DoesNotMutateInput(t *testing.T) {
	src := navFixture()
	FilterNav(src, Aggregate(snapWith(role(false, UsersList))))
	if len(src[0].Items) != 2 || len(src[1].Items) != 2 {
		t.Error("filtering must not modify the source tree")
	}
}

func TestDefaultNav_RegistryCoversRequirements(t *testing.T) {
	// Every requirement referenced by the default tree must be a seedable
	// tuple, or a granted role could never unlock the entry.
	seedable := map[Capability]struct{}{}
	for _, def := range Registry() {
		seedable[def.Capability] = struct{}{}
	}

	var walk func(items []NavItem)
	walk = func(items []NavItem) {
		for _, item := range items {
			if item.Requirement != nil {
				if _, ok := seedable[*item.Requirement]; !ok {
					t.Errorf("nav entry %q requires unseeded tuple %s %s",
						item.Title, item.Requirement.Method, item.Requirement.Path)
				}
			}
			walk(item.Items)
		}
	}
	walk(DefaultNav())
}

func TestRegistry_NoDuplicateTuples(t *testing.T) {
	seen := map[Capability]string{}
	for _, def := range Registry() {
		if prev, dup := seen[def.Capability]; dup {
			t.Errorf("tuple %s %s seeded twice (%q and %q)",
				def.Capability.Method, def.Capability.Path, prev, def.Name)
		}
		seen[def.Capability] = def.Name
	}
}
