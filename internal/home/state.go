package home

import (
	"maps"
	"sync"
	"time"
)

// MergePatch shallow-merges a partial event payload into a room's cached
// state: every key present in patch overwrites the cached value, keys absent
// from patch are left alone. This one function serves every realtime event
// family (sensor readings, device state, device status) — the merge rule is
// identical for all of them, so it is written once instead of per event
// type. Neither input is mutated.
func MergePatch(state, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(state)+len(patch))
	maps.Copy(merged, state)
	maps.Copy(merged, patch)
	return merged
}

// StateRegistry caches the latest merged state per room. It is the in-memory
// companion to the device repository: the repository stores durable device
// rows, the registry holds the fast-changing sensor readings that only need
// to survive until the next report.
//
// All methods are safe for concurrent use.
type StateRegistry struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]any
	stamps map[string]time.Time
}

// NewStateRegistry creates an empty state registry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{
		rooms:  make(map[string]map[string]any),
		stamps: make(map[string]time.Time),
	}
}

// Apply merges an event payload into the room's cached state and returns a
// copy of the merged result.
func (r *StateRegistry) Apply(location string, patch map[string]any) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := MergePatch(r.rooms[location], patch)
	r.rooms[location] = merged
	r.stamps[location] = time.Now()

	out := make(map[string]any, len(merged))
	maps.Copy(out, merged)
	return out
}

// Get returns a copy of the room's cached state and the time of its last
// update. The ok result is false when no event has arrived for the room yet.
func (r *StateRegistry) Get(location string) (state map[string]any, updatedAt time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.rooms[location]
	if !ok {
		return nil, time.Time{}, false
	}
	out := make(map[string]any, len(cached))
	maps.Copy(out, cached)
	return out, r.stamps[location], true
}

// Reading extracts a numeric field from the room's cached state. JSON
// payloads decode numbers as float64; integers that arrive through typed
// producers are widened.
func (r *StateRegistry) Reading(location, field string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.rooms[location]
	if !ok {
		return 0, false
	}
	switch v := cached[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
