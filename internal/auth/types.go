package auth

import (
	"errors"
	"regexp"
	"time"

	"github.com/smartnest/smartnest-core/internal/authz"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// User represents an authenticated human account. Access is granted entirely
// through role assignments — there is no role column on the user itself.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialised
	IsActive     bool      `json:"is_active"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleRecord is a stored role: a named bundle of permission grants.
// System roles are seeded at first boot, bypass capability checks on
// visibility surfaces, and cannot be deleted.
type RoleRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsSystemRole bool      `json:"is_system_role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Permissions is populated on reads that join the grant table.
	Permissions []PermissionRecord `json:"permissions,omitempty"`
}

// PermissionRecord is a stored capability tuple plus its catalogue metadata.
// The tuple (Method, Path) is immutable after seeding; only Name may change.
type PermissionRecord struct {
	ID        string    `json:"id"`
	Module    string    `json:"module"`
	Name      string    `json:"name"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capability returns the evaluator tuple for this record.
func (p PermissionRecord) Capability() authz.Capability {
	return authz.Capability{Method: p.Method, Path: p.Path}
}

// RefreshToken represents a stored refresh token for session management.
type RefreshToken struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FamilyID   string    `json:"family_id"`
	TokenHash  string    `json:"-"` // never serialised
	DeviceInfo string    `json:"device_info,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `json:"revoked"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUsernameExists     = errors.New("username already exists")
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleNameExists     = errors.New("role name already exists")
	ErrSystemRole         = errors.New("system roles cannot be deleted")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenReuse         = errors.New("refresh token reuse detected")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrSelfModification   = errors.New("cannot modify own account in this way")
)
