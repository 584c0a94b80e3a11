package authz

// NavItem is one entry in the navigation tree. A top-level item with children
// is a group; leaves carry the destination URL. Requirement is optional —
// entries without one are visible to every authenticated user.
type NavItem struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Icon        string      `json:"icon,omitempty"`
	Requirement *Capability `json:"required_permission,omitempty"`
	Items       []NavItem   `json:"items,omitempty"`
}

// FilterNav returns the navigation tree reduced to what caps can see.
//
// Children are filtered first; a group survives only if at least one child
// survives, so an empty group never renders as a dead heading. A leaf (or a
// group's own requirement, when it has no children) survives if it carries no
// requirement or its requirement is allowed. Relative order is preserved and
// the input is never mutated.
//
// Navigation is a visibility surface, so the system-role bypass applies.
func FilterNav(items []NavItem, caps CapabilitySet) []NavItem {
	out := make([]NavItem, 0, len(items))
	for _, item := range items {
		if len(item.Items) > 0 {
			kept := FilterNav(item.Items, caps)
			if len(kept) == 0 {
				continue
			}
			item.Items = kept
			out = append(out, item)
			continue
		}
		if item.Requirement != nil && !caps.Allows(*item.Requirement, true) {
			continue
		}
		out = append(out, item)
	}
	return out
}
