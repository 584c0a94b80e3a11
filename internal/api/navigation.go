package api

import (
	"net/http"

	"github.com/smartnest/smartnest-core/internal/authz"
)

// handleNavigation returns the navigation tree filtered to what the caller
// can see. Navigation is a visibility surface, so system-role members get the
// whole tree; groups whose children all filtered out are dropped.
func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	caps := authz.Aggregate(snap)
	items := authz.FilterNav(authz.DefaultNav(), caps)

	writeJSON(w, http.StatusOK, map[string]any{
		"items":        items,
		"unrestricted": caps.Unrestricted,
	})
}
