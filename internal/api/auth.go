package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartnest/smartnest-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse is the response body for POST /auth/login and /auth/refresh.
type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	User         *auth.User `json:"user,omitempty"`
}

// handleLogin authenticates a user and returns an access/refresh token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		// Indistinguishable from a bad password — no account enumeration.
		writeUnauthorized(w, "invalid credentials")
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		writeUnauthorized(w, "invalid credentials")
		return
	}
	if !user.IsActive {
		writeUnauthorized(w, "account is inactive")
		return
	}

	resp, err := s.issueTokens(r.Context(), user, "", r.UserAgent())
	if err != nil {
		s.logger.Error("issuing tokens failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}
	resp.User = user

	s.recordAudit(r, "login", "user", user.ID, user.ID, nil)
	writeJSON(w, http.StatusOK, resp)
}

// refreshRequest is the request body for POST /auth/refresh and /auth/logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh rotates a refresh token and returns a fresh pair.
//
// A revoked token presented here is treated as theft: the whole family is
// revoked and the caller gets a 401.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	stored, err := s.tokens.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}
	if stored.Revoked {
		if err := s.tokens.RevokeFamily(r.Context(), stored.FamilyID); err != nil {
			s.logger.Error("revoking token family failed", "family_id", stored.FamilyID, "error", err)
		}
		s.logger.Warn("refresh token reuse detected", "user_id", stored.UserID, "family_id", stored.FamilyID)
		writeUnauthorized(w, "invalid refresh token")
		return
	}
	if time.Now().After(stored.ExpiresAt) {
		writeUnauthorized(w, "refresh token expired")
		return
	}

	user, err := s.users.GetByID(r.Context(), stored.UserID)
	if err != nil || !user.IsActive {
		writeUnauthorized(w, "account unavailable")
		return
	}

	resp, err := s.rotateTokens(r.Context(), user, stored, r.UserAgent())
	if err != nil {
		s.logger.Error("rotating tokens failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to rotate token")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout revokes the caller's refresh tokens. If a refresh token is
// supplied its family is revoked; otherwise every session for the user is.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req refreshRequest
	//nolint:errcheck // body is optional; absent token means revoke-all
	json.NewDecoder(r.Body).Decode(&req)

	if req.RefreshToken != "" {
		stored, err := s.tokens.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
		if err == nil && stored.UserID == claims.Subject {
			if err := s.tokens.RevokeFamily(r.Context(), stored.FamilyID); err != nil {
				s.logger.Error("revoking token family failed", "family_id", stored.FamilyID, "error", err)
			}
		}
	} else if err := s.tokens.RevokeAllForUser(r.Context(), claims.Subject); err != nil {
		s.logger.Error("revoking user tokens failed", "user_id", claims.Subject, "error", err)
	}

	s.recordAudit(r, "logout", "user", claims.Subject, claims.Subject, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// meResponse is the response body for GET /auth/me: the identity snapshot the
// console builds its guards from.
type meResponse struct {
	User  *auth.User        `json:"user"`
	Roles []auth.RoleRecord `json:"roles"`
}

// handleMe returns the caller's account and roles with permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		writeUnauthorized(w, "identity unavailable")
		return
	}
	roles, err := s.roles.ListUserRoles(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("resolving caller roles failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to resolve roles")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user, Roles: roles})
}

// issueTokens creates a new refresh-token family and access token for a user.
func (s *Server) issueTokens(ctx context.Context, user *auth.User, familyID, deviceInfo string) (*tokenResponse, error) {
	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	raw, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if familyID == "" {
		familyID = uuid.NewString()
	}
	token := &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   familyID,
		TokenHash:  auth.HashToken(raw),
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().Add(time.Duration(s.secCfg.JWT.RefreshTokenTTL) * time.Minute),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	return &tokenResponse{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    s.secCfg.JWT.AccessTokenTTL * 60, //nolint:mnd // minutes to seconds
	}, nil
}

// rotateTokens consumes a refresh token and mints its successor in the same
// family, plus a fresh access token.
func (s *Server) rotateTokens(ctx context.Context, user *auth.User, old *auth.RefreshToken, deviceInfo string) (*tokenResponse, error) {
	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	raw, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	next := &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   old.FamilyID,
		TokenHash:  auth.HashToken(raw),
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().Add(time.Duration(s.secCfg.JWT.RefreshTokenTTL) * time.Minute),
	}
	if err := s.tokens.RotateRefreshToken(ctx, old.ID, next); err != nil {
		return nil, err
	}

	return &tokenResponse{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    s.secCfg.JWT.AccessTokenTTL * 60, //nolint:mnd // minutes to seconds
	}, nil
}

// handleWSTicket generates a single-use WebSocket authentication ticket bound
// to the caller. The client uses this ticket to authenticate the WebSocket
// connection without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	ticket := s.tickets.issue(claims.Subject)
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	userID    string
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// issue creates a ticket bound to a user.
func (t *ticketStore) issue(userID string) string {
	ticket := generateTicket()
	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{
		userID:    userID,
		expiresAt: time.Now().Add(ticketTTL),
	}
	t.mu.Unlock()
	return ticket
}

// validate checks if a ticket is valid and consumes it (single-use).
func (t *ticketStore) validate(ticket string) (ticketEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(t.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// clean removes expired tickets from the store.
func (t *ticketStore) clean() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for ticket, entry := range t.tickets {
		if now.After(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// cleanLoop runs clean periodically until the context is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.clean()
		}
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
