package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/auth"
)

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// createUserRequest is the request body for POST /users.
type createUserRequest struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	IsActive    *bool    `json:"is_active"`
	RoleIDs     []string `json:"role_ids"`
}

// handleCreateUser creates a user account, optionally with an initial role set.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !auth.IsValidUsername(req.Username) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "username must be 1-64 characters: letters, digits, dots, hyphens, underscores")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		user.CreatedBy = claims.Subject
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			writeConflict(w, "username already exists")
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	if len(req.RoleIDs) > 0 {
		if err := s.roles.SetUserRoles(r.Context(), user.ID, req.RoleIDs); err != nil {
			s.logger.Error("assigning initial roles failed", "user_id", user.ID, "error", err)
			writeInternalError(w, "user created but role assignment failed")
			return
		}
	}

	s.recordAudit(r, "create", "user", user.ID, "", map[string]any{"username": user.Username})
	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns one user account.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// updateUserRequest is the request body for PATCH /users/{id}. Only supplied
// fields change.
type updateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	IsActive    *bool   `json:"is_active"`
	Password    *string `json:"password"`
}

// handleUpdateUser modifies a user's mutable fields. Deactivating your own
// account is refused; a password change revokes every session for the user.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	claims := claimsFromContext(r.Context())
	if claims != nil && claims.Subject == id && req.IsActive != nil && !*req.IsActive {
		writeConflict(w, "cannot deactivate your own account")
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.logger.Error("updating user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error("hashing password failed", "error", err)
			writeInternalError(w, "failed to update password")
			return
		}
		if err := s.users.UpdatePassword(r.Context(), id, hash); err != nil {
			s.logger.Error("updating password failed", "user_id", id, "error", err)
			writeInternalError(w, "failed to update password")
			return
		}
		// Force re-login everywhere after a password change.
		if err := s.tokens.RevokeAllForUser(r.Context(), id); err != nil {
			s.logger.Error("revoking sessions failed", "user_id", id, "error", err)
		}
	}

	s.recordAudit(r, "update", "user", id, "", nil)
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account. Deleting your own account is
// refused.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if claims := claimsFromContext(r.Context()); claims != nil && claims.Subject == id {
		writeConflict(w, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("deleting user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.recordAudit(r, "delete", "user", id, "", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleGetUserRoles returns a user's assigned roles with permissions.
func (s *Server) handleGetUserRoles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.users.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "error", err)
		writeInternalError(w, "failed to get user roles")
		return
	}

	roles, err := s.roles.ListUserRoles(r.Context(), id)
	if err != nil {
		s.logger.Error("listing user roles failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to get user roles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// setUserRolesRequest is the request body for PUT /users/{id}/roles.
type setUserRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// handleSetUserRoles replaces a user's role assignments with the given set.
func (s *Server) handleSetUserRoles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setUserRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.users.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "error", err)
		writeInternalError(w, "failed to set user roles")
		return
	}

	for _, roleID := range req.RoleIDs {
		if _, err := s.roles.GetByID(r.Context(), roleID); err != nil {
			if errors.Is(err, auth.ErrRoleNotFound) {
				writeError(w, http.StatusBadRequest, ErrCodeValidation, "unknown role: "+roleID)
				return
			}
			s.logger.Error("checking role failed", "role_id", roleID, "error", err)
			writeInternalError(w, "failed to set user roles")
			return
		}
	}

	if err := s.roles.SetUserRoles(r.Context(), id, req.RoleIDs); err != nil {
		s.logger.Error("setting user roles failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to set user roles")
		return
	}

	roles, err := s.roles.ListUserRoles(r.Context(), id)
	if err != nil {
		s.logger.Error("listing user roles failed", "user_id", id, "error", err)
		writeInternalError(w, "roles updated but listing failed")
		return
	}

	s.recordAudit(r, "update", "user", id, "", map[string]any{"role_ids": req.RoleIDs})
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}
