package authz

// Requirement descriptors for every guarded operation. Paths are route
// templates and stay in template form (":id", ":deviceId") — permission
// records are seeded from this catalog with exactly these strings, so the
// evaluator's exact matching lines up by construction.

// Users module.
var (
	UsersList   = Capability{Method: "GET", Path: "/users"}
	UsersCreate = Capability{Method: "POST", Path: "/users"}
	UsersView   = Capability{Method: "GET", Path: "/users/:id"}
	UsersUpdate = Capability{Method: "PATCH", Path: "/users/:id"}
	UsersDelete = Capability{Method: "DELETE", Path: "/users/:id"}
	UsersRoles  = Capability{Method: "PUT", Path: "/users/:id/roles"}
)

// Roles module.
var (
	RolesList   = Capability{Method: "GET", Path: "/roles"}
	RolesCreate = Capability{Method: "POST", Path: "/roles"}
	RolesView   = Capability{Method: "GET", Path: "/roles/:id"}
	RolesUpdate = Capability{Method: "PATCH", Path: "/roles/:id"}
	RolesDelete = Capability{Method: "DELETE", Path: "/roles/:id"}
)

// Permissions module. Records themselves are seeded; only renames are
// allowed, so there is no create/delete capability.
var (
	PermissionsList    = Capability{Method: "GET", Path: "/permissions"}
	PermissionsModules = Capability{Method: "GET", Path: "/permissions/module/:module"}
	PermissionsUpdate  = Capability{Method: "PATCH", Path: "/permissions/:id"}
)

// Overview module.
var (
	OverviewView    = Capability{Method: "GET", Path: "/overview"}
	OverviewLights  = Capability{Method: "PATCH", Path: "/overview/lights"}
	OverviewDoors   = Capability{Method: "PATCH", Path: "/overview/doors"}
	OverviewWindows = Capability{Method: "PATCH", Path: "/overview/windows"}
)

// Audit log module.
var (
	AuditLogsList = Capability{Method: "GET", Path: "/audit-logs"}
	AuditLogsView = Capability{Method: "GET", Path: "/audit-logs/:id"}
)

// Settings module.
var (
	SettingsView   = Capability{Method: "GET", Path: "/settings"}
	SettingsUpdate = Capability{Method: "PATCH", Path: "/settings"}
)

// Notifications module.
var (
	NotificationsList        = Capability{Method: "GET", Path: "/notifications"}
	NotificationsUnreadCount = Capability{Method: "GET", Path: "/notifications/unread-count"}
	NotificationsView        = Capability{Method: "GET", Path: "/notifications/:id"}
	NotificationsMarkRead    = Capability{Method: "PATCH", Path: "/notifications/:id/read"}
	NotificationsMarkAllRead = Capability{Method: "PATCH", Path: "/notifications/mark-all-read"}
	NotificationsDelete      = Capability{Method: "DELETE", Path: "/notifications/:id"}
)

// Room capabilities are minted per location, one tuple per room per
// operation. Granting access to one room therefore never leaks into another:
// the paths differ as strings and nothing else is consulted.

// RoomDetail is the capability to open a room's detail view. Room listing
// filters on this same tuple (with the system-role bypass); the detail
// endpoint checks it exactly, bypass off.
func RoomDetail(location string) Capability {
	return Capability{Method: "GET", Path: "/" + location + "/details"}
}

// RoomDevice is the capability to control a single device of the given kind
// ("light", "door", "window") in a room. The ":deviceId" placeholder stays
// literal.
func RoomDevice(location, kind string) Capability {
	return Capability{Method: "PATCH", Path: "/" + location + "/" + kind + "/:deviceId"}
}

// RoomControlAll is the capability to switch every device of one kind in a
// room at once. Kind is plural here ("lights", "doors", "windows"), matching
// the control-all route shape.
func RoomControlAll(location, kind string) Capability {
	return Capability{Method: "PATCH", Path: "/" + location + "/" + kind + "/control-all"}
}

// RoomDoorPassword is the capability to change a door lock's entry code.
func RoomDoorPassword(location string) Capability {
	return Capability{Method: "PATCH", Path: "/" + location + "/door/:deviceId/change-password"}
}

// RoomAutoMode is the capability to toggle a room's automatic climate mode.
func RoomAutoMode(location string) Capability {
	return Capability{Method: "PATCH", Path: "/" + location + "/auto"}
}

// Definition ties a capability to the module and human-readable name it is
// seeded under.
type Definition struct {
	Module     string
	Name       string
	Capability Capability
}

// Registry returns every seedable permission definition. The permission
// migration seed and the /permissions listing both derive from this, so the
// set of grantable tuples has a single source of truth.
func Registry() []Definition {
	defs := []Definition{
		{"users", "List users", UsersList},
		{"users", "Create user", UsersCreate},
		{"users", "View user", UsersView},
		{"users", "Update user", UsersUpdate},
		{"users", "Delete user", UsersDelete},
		{"users", "Assign user roles", UsersRoles},

		{"roles", "List roles", RolesList},
		{"roles", "Create role", RolesCreate},
		{"roles", "View role", RolesView},
		{"roles", "Update role", RolesUpdate},
		{"roles", "Delete role", RolesDelete},

		{"permissions", "List permissions", PermissionsList},
		{"permissions", "Browse permission modules", PermissionsModules},
		{"permissions", "Rename permission", PermissionsUpdate},

		{"overview", "View overview", OverviewView},
		{"overview", "Control all lights", OverviewLights},
		{"overview", "Control all doors", OverviewDoors},
		{"overview", "Control all windows", OverviewWindows},

		{"audit-logs", "List audit logs", AuditLogsList},
		{"audit-logs", "View audit log", AuditLogsView},

		{"settings", "View settings", SettingsView},
		{"settings", "Update settings", SettingsUpdate},

		{"notifications", "List notifications", NotificationsList},
		{"notifications", "Unread count", NotificationsUnreadCount},
		{"notifications", "View notification", NotificationsView},
		{"notifications", "Mark notification read", NotificationsMarkRead},
		{"notifications", "Mark all notifications read", NotificationsMarkAllRead},
		{"notifications", "Delete notification", NotificationsDelete},
	}

	for _, room := range []struct {
		location string
		kinds    []string
	}{
		{"living-room", []string{"light", "door"}},
		{"bedroom", []string{"light", "door"}},
		{"kitchen", []string{"light", "window"}},
	} {
		defs = append(defs, Definition{room.location, "View " + room.location + " details", RoomDetail(room.location)})
		for _, kind := range room.kinds {
			defs = append(defs,
				Definition{room.location, "Control " + room.location + " " + kind, RoomDevice(room.location, kind)},
				Definition{room.location, "Control all " + room.location + " " + kind + "s", RoomControlAll(room.location, kind+"s")},
			)
			if kind == "door" {
				defs = append(defs, Definition{room.location, "Change " + room.location + " door code", RoomDoorPassword(room.location)})
			}
		}
		if room.location == "kitchen" {
			defs = append(defs, Definition{room.location, "Toggle kitchen auto mode", RoomAutoMode(room.location)})
		}
	}

	return defs
}

// DefaultNav is the navigation tree the console renders, pre-filtering.
// Group headings carry no requirement of their own; they live or die by
// their children.
func DefaultNav() []NavItem {
	return []NavItem{
		{
			Title: "Home",
			URL:   "#",
			Icon:  "house",
			Items: []NavItem{
				{Title: "Overview", URL: "/overview", Requirement: &OverviewView},
				{Title: "Living Room", URL: "/rooms/living-room", Requirement: ptr(RoomDetail("living-room"))},
				{Title: "Bedroom", URL: "/rooms/bedroom", Requirement: ptr(RoomDetail("bedroom"))},
				{Title: "Kitchen", URL: "/rooms/kitchen", Requirement: ptr(RoomDetail("kitchen"))},
			},
		},
		{
			Title: "Administration",
			URL:   "#",
			Icon:  "users",
			Items: []NavItem{
				{Title: "Users", URL: "/users", Requirement: &UsersList},
				{Title: "Create User", URL: "/users/new", Requirement: &UsersCreate},
				{Title: "Roles", URL: "/roles", Requirement: &RolesList},
				{Title: "Permissions", URL: "/permissions", Requirement: &PermissionsModules},
			},
		},
		{
			Title: "System",
			URL:   "#",
			Icon:  "settings",
			Items: []NavItem{
				{Title: "Notifications", URL: "/notifications", Requirement: &NotificationsList},
				{Title: "Audit Logs", URL: "/audit-logs", Requirement: &AuditLogsList},
				{Title: "Settings", URL: "/settings", Requirement: &SettingsView},
			},
		},
	}
}

func ptr(c Capability) *Capability { return &c }
