package authz

// Capability identifies one controllable backend operation as an immutable
// (method, path) tuple. Path is a route template and may contain named
// placeholders (e.g. "/rooms/kitchen/devices/:deviceId"); placeholders are
// compared literally, not pattern-matched.
type Capability struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// IsZero reports whether the capability is malformed (missing method or
// path). Malformed entries never match anything; they are skipped rather
// than rejected so a partial identity payload degrades to deny instead of
// crashing.
func (c Capability) IsZero() bool {
	return c.Method == "" || c.Path == ""
}

// Role is one role as it appears in an identity snapshot.
type Role struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	IsActive     bool         `json:"is_active"`
	IsSystemRole bool         `json:"is_system_role"`
	Permissions  []Capability `json:"permissions"`
}

// Snapshot is a point-in-time view of the caller's identity, supplied by the
// session collaborator. A nil *Snapshot means identity has not resolved yet
// (the guard renders LOADING); a non-nil snapshot with zero roles means
// resolved-with-no-access.
//
// Version changes every time the identity is refetched. Guards key any
// render-level memoisation on it so a stale in-flight fetch can never
// resurrect a pre-logout grant.
type Snapshot struct {
	UserID  string `json:"user_id"`
	Version int64  `json:"version"`
	Roles   []Role `json:"roles"`
}

// CapabilitySet is the aggregation of all permissions across a snapshot's
// roles: a flat deduplicated capability list plus the system-role bypass
// flag. The bypass is carried alongside rather than folded into the list so
// call sites choose explicitly whether to honour it.
type CapabilitySet struct {
	Capabilities []Capability `json:"capabilities"`
	Unrestricted bool         `json:"unrestricted"`
}
