package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smartnest/smartnest-core/internal/authz"
)

// seedPasswordBytes is the number of random bytes for the seed owner password.
const seedPasswordBytes = 16

// systemRoleName is the name of the bootstrap system role. Members bypass
// capability checks on visibility surfaces; the role itself holds no grants.
const systemRoleName = "System Administrator"

// Seed bootstraps the identity tables on startup.
//
// It always syncs the permission catalogue (idempotent), ensures the system
// role exists, and — only when the user table is empty — creates the initial
// owner account holding that role. The generated password is logged once and
// must be changed immediately. Returns the generated password (empty string
// if owner seeding was skipped).
func Seed(ctx context.Context, users UserRepository, roles RoleRepository, perms PermissionRepository, logger *slog.Logger) (string, error) {
	inserted, err := perms.Seed(ctx, authz.Registry())
	if err != nil {
		return "", fmt.Errorf("seeding permission catalogue: %w", err)
	}
	if inserted > 0 {
		logger.Info("permission catalogue updated", "inserted", inserted)
	}

	system, err := roles.GetByName(ctx, systemRoleName)
	if errors.Is(err, ErrRoleNotFound) {
		system = &RoleRecord{
			Name:         systemRoleName,
			Description:  "Unrestricted access to every console surface",
			IsActive:     true,
			IsSystemRole: true,
		}
		if err := roles.Create(ctx, system, nil); err != nil {
			return "", fmt.Errorf("creating system role: %w", err)
		}
		logger.Info("system role created", "role_id", system.ID)
	} else if err != nil {
		return "", fmt.Errorf("checking system role: %w", err)
	}

	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	owner := &User{
		Username:     "owner",
		DisplayName:  "System Owner",
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := users.Create(ctx, owner); err != nil {
		return "", fmt.Errorf("creating seed owner: %w", err)
	}
	if err := roles.SetUserRoles(ctx, owner.ID, []string{system.ID}); err != nil {
		return "", fmt.Errorf("assigning system role: %w", err)
	}

	logger.Warn("seed owner account created",
		"username", "owner",
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
