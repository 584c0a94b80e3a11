package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/auth"
)

// handleListRoles returns all roles with their permission sets.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		s.logger.Error("listing roles failed", "error", err)
		writeInternalError(w, "failed to list roles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles, "count": len(roles)})
}

// createRoleRequest is the request body for POST /roles.
type createRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	IsActive      *bool    `json:"is_active"`
	PermissionIDs []string `json:"permission_ids"`
}

// handleCreateRole creates a role with an initial grant set. Roles are never
// created as system roles through the API — that flag belongs to the
// first-boot seed alone.
func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}

	role := &auth.RoleRecord{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}

	if err := s.roles.Create(r.Context(), role, req.PermissionIDs); err != nil {
		if errors.Is(err, auth.ErrRoleNameExists) {
			writeConflict(w, "role name already exists")
			return
		}
		s.logger.Error("creating role failed", "error", err)
		writeInternalError(w, "failed to create role")
		return
	}

	created, err := s.roles.GetByID(r.Context(), role.ID)
	if err != nil {
		s.logger.Error("reading created role failed", "role_id", role.ID, "error", err)
		writeInternalError(w, "role created but read-back failed")
		return
	}

	s.recordAudit(r, "create", "role", role.ID, "", map[string]any{"name": role.Name})
	writeJSON(w, http.StatusCreated, created)
}

// handleGetRole returns one role with its permissions.
func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.roles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auth.ErrRoleNotFound) {
			writeNotFound(w, "role not found")
			return
		}
		s.logger.Error("getting role failed", "error", err)
		writeInternalError(w, "failed to get role")
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// updateRoleRequest is the request body for PATCH /roles/{id}. A non-nil
// permission_ids replaces the entire grant set; nil leaves it untouched.
type updateRoleRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	IsActive      *bool    `json:"is_active"`
	PermissionIDs []string `json:"permission_ids"`
}

// handleUpdateRole modifies a role and, when permission_ids is supplied,
// replaces its full permission set.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	role, err := s.roles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrRoleNotFound) {
			writeNotFound(w, "role not found")
			return
		}
		s.logger.Error("getting role failed", "error", err)
		writeInternalError(w, "failed to update role")
		return
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}

	if err := s.roles.Update(r.Context(), role, req.PermissionIDs); err != nil {
		if errors.Is(err, auth.ErrRoleNameExists) {
			writeConflict(w, "role name already exists")
			return
		}
		s.logger.Error("updating role failed", "role_id", id, "error", err)
		writeInternalError(w, "failed to update role")
		return
	}

	updated, err := s.roles.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("reading updated role failed", "role_id", id, "error", err)
		writeInternalError(w, "role updated but read-back failed")
		return
	}

	s.recordAudit(r, "update", "role", id, "", nil)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteRole removes a role. System roles are refused with a conflict.
func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.roles.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, auth.ErrRoleNotFound):
			writeNotFound(w, "role not found")
		case errors.Is(err, auth.ErrSystemRole):
			writeConflict(w, "system roles cannot be deleted")
		default:
			s.logger.Error("deleting role failed", "role_id", id, "error", err)
			writeInternalError(w, "failed to delete role")
		}
		return
	}

	s.recordAudit(r, "delete", "role", id, "", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
