package dualoutput_test

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"
	"testing"

	"dualout/internal/display"
	"dualout/internal/dualoutput"
	"dualout/internal/logging"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
	"dualout/internal/testsupport"
	"dualout/internal/videoctx"
)

// countingStore counts mutating calls and can reject item copies by source.
type countingStore struct {
	*scenes.MemoryStore
	writes     atomic.Int64
	rejectCopy map[string]bool
}

func (s *countingStore) count() { s.writes.Add(1) }

func (s *countingStore) CreateItem(sceneID, sourceID string, opts scenes.ItemOptions) (scenes.Node, error) {
	s.count()
	if s.rejectCopy[sourceID] && opts.ID == "" {
		return scenes.Node{}, fmt.Errorf("source %s was deleted", sourceID)
	}
	return s.MemoryStore.CreateItem(sceneID, sourceID, opts)
}

func (s *countingStore) CreateFolder(sceneID, name string, opts scenes.FolderOptions) (scenes.Node, error) {
	s.count()
	return s.MemoryStore.CreateFolder(sceneID, name, opts)
}

func (s *countingStore) RemoveNode(id string) error {
	s.count()
	return s.MemoryStore.RemoveNode(id)
}

func (s *countingStore) SetNodesOrder(sceneID string, ids []string) error {
	s.count()
	return s.MemoryStore.SetNodesOrder(sceneID, ids)
}

func (s *countingStore) SetDisplay(id string, d display.Display) error {
	s.count()
	return s.MemoryStore.SetDisplay(id, d)
}

func (s *countingStore) SetOutput(id string, h display.Handle) error {
	s.count()
	return s.MemoryStore.SetOutput(id, h)
}

func (s *countingStore) PlaceAfter(id, refID string) error {
	s.count()
	return s.MemoryStore.PlaceAfter(id, refID)
}

func (s *countingStore) PlaceBefore(id, refID string) error {
	s.count()
	return s.MemoryStore.PlaceBefore(id, refID)
}

func (s *countingStore) SetParent(id, parentID string) error {
	s.count()
	return s.MemoryStore.SetParent(id, parentID)
}

// fataler is the part of testing.TB that rapid.T also provides.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

type fixture struct {
	store    *countingStore
	contexts *videoctx.Memory
	coord    *dualoutput.Coordinator
}

func newFixture(opts ...dualoutput.Option) *fixture {
	store := &countingStore{MemoryStore: scenes.NewMemoryStore(), rejectCopy: map[string]bool{}}
	contexts := videoctx.NewMemory(map[display.Display]videoctx.Resolution{
		display.Horizontal: {Width: 1920, Height: 1080},
		display.Vertical:   {Width: 720, Height: 1280},
	})
	opts = append([]dualoutput.Option{dualoutput.WithLoggedIn(true)}, opts...)
	coord := dualoutput.New(store, contexts, nodemap.New(), logging.NewNop(), opts...)
	return &fixture{store: store, contexts: contexts, coord: coord}
}

func (f *fixture) build(t testing.TB, sceneID, sketch string) {
	t.Helper()
	testsupport.BuildScene(t, f.store.MemoryStore, sceneID, sketch)
}

// enable makes sceneID active and turns dual output on.
func (f *fixture) enable(t fataler, sceneID string) dualoutput.Result {
	t.Helper()
	ctx := context.Background()
	if _, err := f.coord.SwitchScene(ctx, sceneID); err != nil {
		t.Fatalf("SwitchScene: %v", err)
	}
	res, err := f.coord.ToggleDualOutputMode(ctx, true)
	if err != nil {
		t.Fatalf("ToggleDualOutputMode: %v", err)
	}
	if res.Err() != nil {
		t.Fatalf("toggle reported failures: %v", res.Err())
	}
	return res
}

func (f *fixture) nodes(t fataler, sceneID string) []scenes.Node {
	t.Helper()
	nodes, err := f.store.Nodes(sceneID)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	return nodes
}

func (f *fixture) node(t fataler, id string) scenes.Node {
	t.Helper()
	n, err := f.store.Node(id)
	if err != nil {
		t.Fatalf("Node %s: %v", id, err)
	}
	return n
}

func (f *fixture) partner(t fataler, sceneID, horizontalID string) scenes.Node {
	t.Helper()
	v, ok := f.coord.Maps().VerticalOf(sceneID, horizontalID)
	if !ok {
		t.Fatalf("%s has no vertical partner", horizontalID)
	}
	return f.node(t, v)
}

func ids(nodes []scenes.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// checkScene asserts the steady-state invariants of a mapped scene: a valid
// bijection over existing nodes of the right display, mirrored parents and
// bound contexts.
func checkScene(t fataler, f *fixture, sceneID string) {
	t.Helper()
	entries := f.coord.Maps().Get(sceneID)
	if err := nodemap.ValidateScene(entries); err != nil {
		t.Fatalf("bijection broken: %v", err)
	}
	nodes := f.nodes(t, sceneID)
	byID := make(map[string]scenes.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	paired := map[string]bool{}
	for h, v := range entries {
		hn, okH := byID[h]
		vn, okV := byID[v]
		if !okH || !okV {
			t.Fatalf("entry %s -> %s references a missing node", h, v)
		}
		if hn.Display != display.Horizontal || vn.Display != display.Vertical {
			t.Fatalf("entry %s -> %s has displays %q/%q", h, v, hn.Display, vn.Display)
		}
		want := ""
		if hn.ParentID != "" {
			want = entries[hn.ParentID]
		}
		if vn.ParentID != want {
			t.Fatalf("vertical %s parent = %q, want %q", v, vn.ParentID, want)
		}
		paired[h], paired[v] = true, true
	}
	for _, n := range nodes {
		if !paired[n.ID] {
			t.Fatalf("node %s (%s) is unpaired", n.ID, n.Display)
		}
		if !n.IsItem() {
			continue
		}
		h, ok := f.contexts.Context(n.Display)
		if !ok || n.Output != h {
			t.Fatalf("node %s not bound to the %s context", n.ID, n.Display)
		}
	}
}

// checkHorizontalFirst asserts every horizontal node precedes every vertical
// node and the vertical nodes follow their originals' order.
func checkHorizontalFirst(t fataler, f *fixture, sceneID string, originals []string) {
	t.Helper()
	nodes := f.nodes(t, sceneID)
	if len(nodes) != 2*len(originals) {
		t.Fatalf("expected %d nodes, got %d", 2*len(originals), len(nodes))
	}
	for i, id := range originals {
		if nodes[i].ID != id {
			t.Fatalf("position %d = %s, want horizontal %s", i, nodes[i].ID, id)
		}
		v, _ := f.coord.Maps().VerticalOf(sceneID, id)
		if got := nodes[len(originals)+i].ID; got != v {
			t.Fatalf("position %d = %s, want vertical partner %s of %s", len(originals)+i, got, v, id)
		}
	}
}

func equalSnapshots(a, b nodemap.Snapshot) bool {
	return maps.EqualFunc(a, b, func(x, y map[string]string) bool { return maps.Equal(x, y) })
}
