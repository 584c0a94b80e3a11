package authz

// Decision is the outcome of a guard evaluation.
type Decision int

const (
	// DecisionLoading means the identity snapshot has not resolved yet.
	// Guards render a blocking placeholder and make no allow/deny call.
	DecisionLoading Decision = iota

	// DecisionGranted means the caller may access the guarded resource.
	DecisionGranted

	// DecisionDenied means the requirement is present and unmet. Guards
	// render a fixed denial and must not trigger the guarded resource's
	// side effects (no data fetch for a denied view).
	DecisionDenied
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionGranted:
		return "granted"
	case DecisionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Aggregate flattens a snapshot's roles into a CapabilitySet.
//
// Duplicate tuples across roles are deduplicated. Unrestricted is true iff
// at least one role is flagged as a system role, regardless of that role's
// own permission list. A nil snapshot (identity absent or still loading)
// aggregates to the empty set with Unrestricted false — fail closed, never
// an error.
func Aggregate(snap *Snapshot) CapabilitySet {
	set := CapabilitySet{Capabilities: []Capability{}}
	if snap == nil {
		return set
	}

	seen := make(map[Capability]struct{})
	for _, role := range snap.Roles {
		if role.IsSystemRole {
			set.Unrestricted = true
		}
		for _, perm := range role.Permissions {
			if perm.IsZero() {
				continue
			}
			if _, dup := seen[perm]; dup {
				continue
			}
			seen[perm] = struct{}{}
			set.Capabilities = append(set.Capabilities, perm)
		}
	}

	return set
}

// HasCapability reports whether caps contains an entry whose method and path
// both equal the requirement's, by ordinary case-sensitive string equality.
// No normalisation is applied: "/users" and "/users/" are distinct, as are
// "GET" and "get". An empty or nil caps always yields false.
//
// The system-role bypass is intentionally NOT consulted here; it belongs one
// layer up (Allows/Decide) so call sites that must ignore it — per-room
// access filtering — can require an exact match even for system-role users.
func HasCapability(caps []Capability, req Capability) bool {
	if len(caps) == 0 || req.IsZero() {
		return false
	}
	for _, c := range caps {
		if c.Method == req.Method && c.Path == req.Path {
			return true
		}
	}
	return false
}

// Allows is the single evaluation entry point over an aggregated set.
//
// respectBypass selects whether the system-role bypass applies: page and
// navigation guards pass true; checks that must always verify the concrete
// capability (room detail access) pass false. Modelling the bypass as a
// parameter keeps both behaviours reachable from one implementation.
func (s CapabilitySet) Allows(req Capability, respectBypass bool) bool {
	if respectBypass && s.Unrestricted {
		return true
	}
	return HasCapability(s.Capabilities, req)
}

// Decide runs the guard state machine for one requirement against one
// snapshot.
//
//	snapshot nil                      -> LOADING
//	requirement nil                   -> GRANTED (no restriction declared)
//	requirement met (or bypass)       -> GRANTED
//	otherwise                         -> DENIED
//
// A nil requirement and a failed match are two distinct defaults: absence of
// a requirement means "always visible", absence of a matching capability
// means deny. Decide holds no state; callers re-invoke it whenever the
// snapshot changes and terminal decisions are recomputed from scratch.
func Decide(snap *Snapshot, requirement *Capability, respectBypass bool) Decision {
	if snap == nil {
		return DecisionLoading
	}
	if requirement == nil {
		return DecisionGranted
	}
	if Aggregate(snap).Allows(*requirement, respectBypass) {
		return DecisionGranted
	}
	return DecisionDenied
}
