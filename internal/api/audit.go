package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/audit"
)

// handleListAuditLogs returns a filtered, paginated slice of the audit trail.
//
// Query parameters: action, entity_type, entity_id, user_id, limit, offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit logs failed", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetAuditLog returns one audit entry.
func (s *Server) handleGetAuditLog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.audit.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			writeNotFound(w, "audit log not found")
			return
		}
		s.logger.Error("getting audit log failed", "error", err)
		writeInternalError(w, "failed to get audit log")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// recordAudit writes one audit trail entry for a mutating request.
// Best-effort: a failed write is logged, never surfaced to the caller.
// userID overrides the acting user (login runs before claims exist); empty
// means take it from the request context.
func (s *Server) recordAudit(r *http.Request, action, entityType, entityID, userID string, details map[string]any) {
	if userID == "" {
		if claims := claimsFromContext(r.Context()); claims != nil {
			userID = claims.Subject
		}
	}

	entry := &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Source:     "api",
		Details:    details,
	}
	if err := s.audit.Create(r.Context(), entry); err != nil {
		s.logger.Error("audit write failed",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}
