// Package authz implements the capability-based authorisation evaluator.
//
// A capability is a (method, path) tuple naming one controllable backend
// operation. Users acquire capabilities through their assigned roles; routes,
// navigation entries, and interactive controls declare a required capability.
// The evaluator aggregates a user's roles into a flat capability set and
// answers allow/deny questions against it.
//
// Everything in this package is pure computation over an already-resolved
// identity snapshot: no I/O, no caching, no mutation. Callers re-evaluate on
// every request against the current snapshot, so a role edit takes effect as
// soon as the snapshot is refetched.
//
// Matching is deliberately exact-string on both method and path. Route
// templates such as "/users/:id" are compared literally, never expanded
// against concrete URLs. Permission records are seeded with exactly the
// template strings the requirement descriptors carry, which makes exact
// matching sufficient and keeps the evaluator trivially auditable.
package authz
