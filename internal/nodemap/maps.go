package nodemap

import (
	"errors"
	"fmt"
	"sync"

	"dualout/internal/display"
)

// ErrInvalidEntry indicates an entry that would break the map invariants.
var ErrInvalidEntry = errors.New("invalid node map entry")

// Maps owns the node maps for one scene collection.
type Maps struct {
	mu      sync.RWMutex
	state   State
	reverse map[string]map[string]string
}

// New returns empty maps.
func New() *Maps {
	return &Maps{state: State{}, reverse: map[string]map[string]string{}}
}

// FromSnapshot returns maps seeded from a persisted snapshot. Invalid entries
// are dropped; the count is returned so callers can log it.
func FromSnapshot(snapshot Snapshot) (*Maps, int) {
	m := New()
	dropped := m.Load(snapshot)
	return m, dropped
}

func (m *Maps) dispatch(e Event) {
	next := Reduce(m.state, e)
	switch e.Kind {
	case EventSetEntry, EventRemoveEntry, EventRemoveScene:
		m.reverse[e.SceneID] = invert(next[e.SceneID])
	default:
		m.reverse = make(map[string]map[string]string, len(next))
		for sceneID, entries := range next {
			m.reverse[sceneID] = invert(entries)
		}
	}
	m.state = next
}

// State returns the current immutable state.
func (m *Maps) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Get returns a copy of a scene's map, empty for vanilla scenes.
func (m *Maps) Get(sceneID string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneScene(m.state[sceneID])
}

// HasMap reports whether the scene has at least one entry.
func (m *Maps) HasMap(sceneID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state[sceneID]) > 0
}

// Len returns the number of entries for a scene.
func (m *Maps) Len(sceneID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state[sceneID])
}

// SceneIDs returns the scenes that have a map.
func (m *Maps) SceneIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.state))
	for id := range m.state {
		out = append(out, id)
	}
	return out
}

// SetEntry pairs horizontalID with verticalID. Setting an existing pair again
// is a no-op.
func (m *Maps) SetEntry(sceneID, horizontalID, verticalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sceneID == "" || !entryAllowed(m.state[sceneID], horizontalID, verticalID) {
		return fmt.Errorf("%w: scene %s %s -> %s", ErrInvalidEntry, sceneID, horizontalID, verticalID)
	}
	m.dispatch(SetEntry(sceneID, horizontalID, verticalID))
	return nil
}

// RemoveEntry drops the entry keyed by horizontalID. It reports whether an
// entry was removed; ids that are not keys are ignored.
func (m *Maps) RemoveEntry(sceneID, horizontalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state[sceneID][horizontalID]; !ok {
		return false
	}
	m.dispatch(RemoveEntry(sceneID, horizontalID))
	return true
}

// RemoveScene drops a scene's map.
func (m *Maps) RemoveScene(sceneID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch(RemoveScene(sceneID))
}

// Load replaces all maps with snapshot and returns how many entries were
// dropped as invalid.
func (m *Maps) Load(snapshot Snapshot) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, dropped := sanitize(snapshot)
	m.dispatch(Load(snapshot))
	return dropped
}

// Reset clears every map.
func (m *Maps) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch(Reset())
}

// VerticalOf returns the vertical partner of a horizontal node.
func (m *Maps) VerticalOf(sceneID, horizontalID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[sceneID][horizontalID]
	return v, ok
}

// HorizontalOf returns the horizontal partner of a vertical node.
func (m *Maps) HorizontalOf(sceneID, verticalID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.reverse[sceneID][verticalID]
	return h, ok
}

// PartnerOf looks nodeID up as a key first and then as a value.
func (m *Maps) PartnerOf(nodeID, sceneID string) (string, bool) {
	if v, ok := m.VerticalOf(sceneID, nodeID); ok {
		return v, true
	}
	return m.HorizontalOf(sceneID, nodeID)
}

// DisplayOf returns the display implied by the map. Nodes the map does not
// mention are horizontal, which keeps vanilla scenes unchanged.
func (m *Maps) DisplayOf(nodeID, sceneID string) display.Display {
	if _, ok := m.HorizontalOf(sceneID, nodeID); ok {
		return display.Vertical
	}
	return display.Horizontal
}

// Snapshot returns a deep copy suitable for persistence.
func (m *Maps) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(Snapshot, len(m.state))
	for sceneID, entries := range m.state {
		out[sceneID] = cloneScene(entries)
	}
	return out
}

// Validate checks a scene's map for bijection and disjointness. Maps built
// through this package always pass; it exists for reports and tests.
func (m *Maps) Validate(sceneID string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ValidateScene(m.state[sceneID])
}

// ValidateScene checks one scene map.
func ValidateScene(entries map[string]string) error {
	seen := make(map[string]string, len(entries))
	var errs []error
	for h, v := range entries {
		if h == v {
			errs = append(errs, fmt.Errorf("%w: %s maps to itself", ErrInvalidEntry, h))
			continue
		}
		if _, isKey := entries[v]; isKey {
			errs = append(errs, fmt.Errorf("%w: %s is both a key and a value", ErrInvalidEntry, v))
		}
		if other, dup := seen[v]; dup {
			errs = append(errs, fmt.Errorf("%w: %s is the partner of %s and %s", ErrInvalidEntry, v, other, h))
		}
		seen[v] = h
	}
	return errors.Join(errs...)
}

func invert(entries map[string]string) map[string]string {
	out := make(map[string]string, len(entries))
	for h, v := range entries {
		out[v] = h
	}
	return out
}
