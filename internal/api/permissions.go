package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/auth"
)

// handleListPermissions returns the full seeded permission catalogue.
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.perms.List(r.Context())
	if err != nil {
		s.logger.Error("listing permissions failed", "error", err)
		writeInternalError(w, "failed to list permissions")
		return
	}

	modules, err := s.perms.Modules(r.Context())
	if err != nil {
		s.logger.Error("listing permission modules failed", "error", err)
		writeInternalError(w, "failed to list permissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": perms,
		"modules":     modules,
		"count":       len(perms),
	})
}

// handleListPermissionsByModule returns the permissions seeded under one module.
func (s *Server) handleListPermissionsByModule(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")

	perms, err := s.perms.ListByModule(r.Context(), module)
	if err != nil {
		s.logger.Error("listing permissions by module failed", "module", module, "error", err)
		writeInternalError(w, "failed to list permissions")
		return
	}
	if len(perms) == 0 {
		writeNotFound(w, "no permissions in module")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms, "module": module})
}

// renamePermissionRequest is the request body for PATCH /permissions/{id}.
// The (method, path) tuple is immutable after seeding; only the display name
// may change.
type renamePermissionRequest struct {
	Name string `json:"name"`
}

// handleRenamePermission renames a permission record.
func (s *Server) handleRenamePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req renamePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}

	if err := s.perms.Rename(r.Context(), id, req.Name); err != nil {
		if errors.Is(err, auth.ErrPermissionNotFound) {
			writeNotFound(w, "permission not found")
			return
		}
		s.logger.Error("renaming permission failed", "permission_id", id, "error", err)
		writeInternalError(w, "failed to rename permission")
		return
	}

	perm, err := s.perms.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("reading renamed permission failed", "permission_id", id, "error", err)
		writeInternalError(w, "permission renamed but read-back failed")
		return
	}

	s.recordAudit(r, "update", "permission", id, "", map[string]any{"name": req.Name})
	writeJSON(w, http.StatusOK, perm)
}
