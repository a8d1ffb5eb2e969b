package nodemap

import "sort"

// Snapshot is the serialized form: sceneID -> horizontalID -> verticalID.
type Snapshot map[string]map[string]string

// State is an immutable set of scene maps. Reduce never mutates its input.
type State map[string]map[string]string

// EventKind enumerates the map transitions.
type EventKind int

const (
	EventSetEntry EventKind = iota + 1
	EventRemoveEntry
	EventRemoveScene
	EventLoad
	EventReset
)

// Event is one map transition.
type Event struct {
	Kind         EventKind
	SceneID      string
	HorizontalID string
	VerticalID   string
	Snapshot     Snapshot
}

// SetEntry pairs horizontalID with verticalID in a scene.
func SetEntry(sceneID, horizontalID, verticalID string) Event {
	return Event{Kind: EventSetEntry, SceneID: sceneID, HorizontalID: horizontalID, VerticalID: verticalID}
}

// RemoveEntry drops the entry keyed by horizontalID.
func RemoveEntry(sceneID, horizontalID string) Event {
	return Event{Kind: EventRemoveEntry, SceneID: sceneID, HorizontalID: horizontalID}
}

// RemoveScene drops a scene's whole map.
func RemoveScene(sceneID string) Event {
	return Event{Kind: EventRemoveScene, SceneID: sceneID}
}

// Load replaces all maps with a sanitized copy of snapshot.
func Load(snapshot Snapshot) Event {
	return Event{Kind: EventLoad, Snapshot: snapshot}
}

// Reset clears every map.
func Reset() Event {
	return Event{Kind: EventReset}
}

// Reduce applies e to s and returns the resulting state. Scenes untouched by
// the event are shared between s and the result.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case EventSetEntry:
		if !entryAllowed(s[e.SceneID], e.HorizontalID, e.VerticalID) {
			return s
		}
		next := cloneShallow(s)
		scene := cloneScene(s[e.SceneID])
		scene[e.HorizontalID] = e.VerticalID
		next[e.SceneID] = scene
		return next
	case EventRemoveEntry:
		if _, ok := s[e.SceneID][e.HorizontalID]; !ok {
			return s
		}
		next := cloneShallow(s)
		scene := cloneScene(s[e.SceneID])
		delete(scene, e.HorizontalID)
		if len(scene) == 0 {
			delete(next, e.SceneID)
		} else {
			next[e.SceneID] = scene
		}
		return next
	case EventRemoveScene:
		if _, ok := s[e.SceneID]; !ok {
			return s
		}
		next := cloneShallow(s)
		delete(next, e.SceneID)
		return next
	case EventLoad:
		next, _ := sanitize(e.Snapshot)
		return next
	case EventReset:
		return State{}
	default:
		return s
	}
}

// entryAllowed reports whether h -> v keeps the scene a bijection with
// disjoint key and value sets. Re-setting an existing pair is allowed.
func entryAllowed(scene map[string]string, h, v string) bool {
	if h == "" || v == "" || h == v {
		return false
	}
	if _, isKey := scene[v]; isKey {
		return false
	}
	for key, value := range scene {
		if key == h {
			continue
		}
		if value == v || value == h {
			return false
		}
	}
	return true
}

// sanitize copies a snapshot, dropping entries that would break the map
// invariants. Keys are visited in sorted order so the survivor of a duplicate
// value is deterministic. It returns the number of dropped entries.
func sanitize(snapshot Snapshot) (State, int) {
	out := State{}
	dropped := 0
	for sceneID, entries := range snapshot {
		if sceneID == "" {
			dropped += len(entries)
			continue
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		scene := make(map[string]string, len(entries))
		for _, h := range keys {
			v := entries[h]
			if !entryAllowed(scene, h, v) {
				dropped++
				continue
			}
			if _, isValue := entries[v]; isValue {
				// v is itself a key in the input; keeping both would make the
				// key and value sets overlap.
				dropped++
				continue
			}
			scene[h] = v
		}
		if len(scene) > 0 {
			out[sceneID] = scene
		}
	}
	return out, dropped
}

func cloneShallow(s State) State {
	out := make(State, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

func cloneScene(scene map[string]string) map[string]string {
	out := make(map[string]string, len(scene)+1)
	for k, v := range scene {
		out[k] = v
	}
	return out
}
