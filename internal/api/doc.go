// Package api provides the HTTP REST API and WebSocket server for SmartNest Core.
//
// It exposes authentication, user/role/permission administration, the
// capability-guarded home surfaces (overview, rooms, device control),
// notifications, settings, and audit history to the admin console, plus a
// ticket-authenticated WebSocket channel for realtime sensor and device
// events.
//
// Every protected route is guarded by a requirement descriptor equal to its
// own (method, path-template) pair; the guard resolves the caller's identity
// snapshot fresh from the role store on each request and runs the authz
// evaluator over it. Denied requests never reach the handler, so no protected
// data is fetched on the denied path.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
