package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/authz"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Each protected route is wrapped with requireCapability carrying its own
// (method, path-template) descriptor — the same tuple the permission seed
// inserts, which is why exact string matching suffices. Room routes resolve
// their capability per location inside the handler instead.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Filtered navigation tree for the caller
			r.Get("/me/navigation", s.handleNavigation)

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.With(s.requireCapability(authz.UsersList)).Get("/", s.handleListUsers)
				r.With(s.requireCapability(authz.UsersCreate)).Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requireCapability(authz.UsersView)).Get("/", s.handleGetUser)
					r.With(s.requireCapability(authz.UsersUpdate)).Patch("/", s.handleUpdateUser)
					r.With(s.requireCapability(authz.UsersDelete)).Delete("/", s.handleDeleteUser)
					r.With(s.requireCapability(authz.UsersView)).Get("/roles", s.handleGetUserRoles)
					r.With(s.requireCapability(authz.UsersRoles)).Put("/roles", s.handleSetUserRoles)
				})
			})

			// Role administration
			r.Route("/roles", func(r chi.Router) {
				r.With(s.requireCapability(authz.RolesList)).Get("/", s.handleListRoles)
				r.With(s.requireCapability(authz.RolesCreate)).Post("/", s.handleCreateRole)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requireCapability(authz.RolesView)).Get("/", s.handleGetRole)
					r.With(s.requireCapability(authz.RolesUpdate)).Patch("/", s.handleUpdateRole)
					r.With(s.requireCapability(authz.RolesDelete)).Delete("/", s.handleDeleteRole)
				})
			})

			// Permission catalogue (seeded; rename only)
			r.Route("/permissions", func(r chi.Router) {
				r.With(s.requireCapability(authz.PermissionsList)).Get("/", s.handleListPermissions)
				r.With(s.requireCapability(authz.PermissionsModules)).Get("/module/{module}", s.handleListPermissionsByModule)
				r.With(s.requireCapability(authz.PermissionsUpdate)).Patch("/{id}", s.handleRenamePermission)
			})

			// Overview
			r.Route("/overview", func(r chi.Router) {
				r.With(s.requireCapability(authz.OverviewView)).Get("/", s.handleOverview)
				r.With(s.requireCapability(authz.OverviewLights)).Patch("/lights", s.handleOverviewControl("light"))
				r.With(s.requireCapability(authz.OverviewDoors)).Patch("/doors", s.handleOverviewControl("door"))
				r.With(s.requireCapability(authz.OverviewWindows)).Patch("/windows", s.handleOverviewControl("window"))
			})

			// Rooms (per-location capabilities, resolved in the handlers)
			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", s.handleListRooms)

				r.Route("/{location}", func(r chi.Router) {
					r.Get("/", s.handleRoomDetail)
					r.Patch("/devices", s.handleRoomControlAll)
					r.Patch("/devices/{deviceID}", s.handleRoomDevice)
					r.Patch("/door/{deviceID}/change-password", s.handleDoorPassword)
					r.Patch("/auto", s.handleRoomAutoMode)
				})
			})

			// Notifications
			r.Route("/notifications", func(r chi.Router) {
				r.With(s.requireCapability(authz.NotificationsList)).Get("/", s.handleListNotifications)
				r.With(s.requireCapability(authz.NotificationsUnreadCount)).Get("/unread-count", s.handleUnreadCount)
				r.With(s.requireCapability(authz.NotificationsMarkAllRead)).Patch("/mark-all-read", s.handleMarkAllRead)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requireCapability(authz.NotificationsView)).Get("/", s.handleGetNotification)
					r.With(s.requireCapability(authz.NotificationsMarkRead)).Patch("/read", s.handleMarkRead)
					r.With(s.requireCapability(authz.NotificationsDelete)).Delete("/", s.handleDeleteNotification)
				})
			})

			// Settings
			r.With(s.requireCapability(authz.SettingsView)).Get("/settings", s.handleGetSettings)
			r.With(s.requireCapability(authz.SettingsUpdate)).Patch("/settings", s.handleUpdateSettings)

			// Audit logs
			r.With(s.requireCapability(authz.AuditLogsList)).Get("/audit-logs", s.handleListAuditLogs)
			r.With(s.requireCapability(authz.AuditLogsView)).Get("/audit-logs/{id}", s.handleGetAuditLog)
		})

		// WebSocket: browsers cannot send an Authorization header on the
		// upgrade request, so auth is via single-use ticket (obtained from
		// POST /auth/ws-ticket, which does require a Bearer token).
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
