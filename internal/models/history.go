package models

import "sync"

// LocationHistory is an append-only, chronologically ordered list of visited
// locations. It is safe for concurrent use.
type LocationHistory struct {
	mu        sync.RWMutex
	locations []VisitedLocation
}

// Append records a new location at the end of the history.
func (h *LocationHistory) Append(loc VisitedLocation) {
	h.mu.Lock()
	h.locations = append(h.locations, loc)
	h.mu.Unlock()
}

// Last returns the most recent location, or false if nothing was recorded yet.
func (h *LocationHistory) Last() (VisitedLocation, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.locations) == 0 {
		return VisitedLocation{}, false
	}
	return h.locations[len(h.locations)-1], true
}

// Snapshot returns a copy of the history in insertion order.
func (h *LocationHistory) Snapshot() []VisitedLocation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]VisitedLocation, len(h.locations))
	copy(out, h.locations)
	return out
}

func (h *LocationHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.locations)
}

// Clear drops every recorded location.
func (h *LocationHistory) Clear() {
	h.mu.Lock()
	h.locations = nil
	h.mu.Unlock()
}
