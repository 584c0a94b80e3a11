// Package auth provides identity persistence and session machinery for
// SmartNest Core.
//
// It implements a role-and-permission account model with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token rotation with family-based theft detection
//   - SQLite repositories for users, roles, the permission catalogue, and
//     user-role assignment
//   - A snapshot source translating stored assignments into the evaluator's
//     identity snapshot
//
// Access uses a "zero access by default, grant explicitly" model: a user
// with no role assignments can sign in but can do nothing. Capability
// decisions themselves live in the authz package; this package only stores
// and resolves the material they are computed from.
package auth
