package auth

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/smartnest/smartnest-core/internal/authz"
)

// SnapshotSource resolves a user's current identity snapshot for the
// authorisation evaluator. Every call reads the role store, so a role edit
// is visible on the very next request — there is no cache to invalidate.
type SnapshotSource struct {
	users   UserRepository
	roles   RoleRepository
	version atomic.Int64
}

// NewSnapshotSource creates a snapshot source over the identity stores.
func NewSnapshotSource(users UserRepository, roles RoleRepository) *SnapshotSource {
	return &SnapshotSource{users: users, roles: roles}
}

// Snapshot builds the evaluator snapshot for a user. An unknown or inactive
// user yields (nil, error); callers translate that to the loading/denied
// path rather than a capability grant.
func (s *SnapshotSource) Snapshot(ctx context.Context, userID string) (*authz.Snapshot, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	records, err := s.roles.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving roles for %s: %w", userID, err)
	}

	snap := &authz.Snapshot{
		UserID:  userID,
		Version: s.version.Add(1),
		Roles:   make([]authz.Role, 0, len(records)),
	}
	for _, rec := range records {
		role := authz.Role{
			ID:           rec.ID,
			Name:         rec.Name,
			IsActive:     rec.IsActive,
			IsSystemRole: rec.IsSystemRole,
			Permissions:  make([]authz.Capability, 0, len(rec.Permissions)),
		}
		for _, perm := range rec.Permissions {
			role.Permissions = append(role.Permissions, perm.Capability())
		}
		snap.Roles = append(snap.Roles, role)
	}
	return snap, nil
}
