package dualoutput_test

import (
	"context"
	"errors"
	"testing"

	"dualout/internal/display"
	"dualout/internal/dualoutput"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
)

func TestToggleRequiresLoginAndNoStudioMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.build(t, "main", fiveItems)
	if _, err := f.coord.SwitchScene(ctx, "main"); err != nil {
		t.Fatalf("SwitchScene: %v", err)
	}

	f.coord.SetLoggedIn(ctx, false)
	if _, err := f.coord.ToggleDualOutputMode(ctx, true); !errors.Is(err, dualoutput.ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
	f.coord.SetLoggedIn(ctx, true)
	if err := f.coord.SetStudioMode(true); err != nil {
		t.Fatalf("SetStudioMode: %v", err)
	}
	if _, err := f.coord.ToggleDualOutputMode(ctx, true); !errors.Is(err, dualoutput.ErrStudioMode) {
		t.Fatalf("expected ErrStudioMode, got %v", err)
	}
	if f.coord.DualOutputMode() || f.coord.Maps().HasMap("main") {
		t.Fatal("rejected toggles must not change anything")
	}

	if err := f.coord.SetStudioMode(false); err != nil {
		t.Fatalf("SetStudioMode: %v", err)
	}
	f.enable(t, "main")
	if err := f.coord.SetStudioMode(true); !errors.Is(err, dualoutput.ErrStudioMode) {
		t.Fatalf("studio mode must be refused in dual output, got %v", err)
	}

	f.coord.SetLoggedIn(ctx, false)
	if f.coord.DualOutputMode() {
		t.Fatal("signing out should turn dual output off")
	}
	if !f.coord.Maps().HasMap("main") {
		t.Fatal("signing out must keep the map")
	}
}

func TestToggleFailsWithoutContexts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.build(t, "main", fiveItems)
	if _, err := f.coord.SwitchScene(ctx, "main"); err != nil {
		t.Fatalf("SwitchScene: %v", err)
	}
	f.contexts.SetAvailable(display.Vertical, false)

	if _, err := f.coord.ToggleDualOutputMode(ctx, true); !errors.Is(err, dualoutput.ErrContextUnavailable) {
		t.Fatalf("expected ErrContextUnavailable, got %v", err)
	}
	if f.coord.DualOutputMode() || f.store.writes.Load() != 0 {
		t.Fatal("toggle must leave the scene unchanged when a context is missing")
	}
}

func TestContextlessNodesAreBoundLater(t *testing.T) {
	f := newFixture()
	f.build(t, "main", fiveItems)
	f.enable(t, "main")

	f.contexts.SetAvailable(display.Vertical, false)
	if _, err := f.store.MemoryStore.CreateItem("main", "src-new", scenes.ItemOptions{ID: "New", Name: "New", Visible: true}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	vID, err := f.coord.NodeAdded("main", "New")
	if !errors.Is(err, dualoutput.ErrContextUnavailable) {
		t.Fatalf("expected ErrContextUnavailable, got %v", err)
	}
	if vID == "" {
		t.Fatal("the vertical node should exist even without a context")
	}
	if f.node(t, vID).Output.Valid() {
		t.Fatal("vertical node should stay unbound")
	}

	f.contexts.SetAvailable(display.Vertical, true)
	res, err := f.coord.ConfirmOrAssignSceneNodes("main")
	if err != nil {
		t.Fatalf("ConfirmOrAssignSceneNodes: %v", err)
	}
	if res.Assigned == 0 || res.Created != 0 {
		t.Fatalf("expected context assignments only, got %+v", res)
	}
	checkScene(t, f, "main")
}

func TestNodeAdded(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.build(t, "main", "Item1:\nItem2:")
	f.enable(t, "main")

	if _, err := f.store.MemoryStore.CreateItem("main", "src-item3", scenes.ItemOptions{ID: "Item3", Name: "Item3", Visible: true}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	vID, err := f.coord.NodeAdded("main", "Item3")
	if err != nil {
		t.Fatalf("NodeAdded: %v", err)
	}
	nodes := f.nodes(t, "main")
	if nodes[len(nodes)-2].ID != "Item3" || nodes[len(nodes)-1].ID != vID {
		t.Fatalf("partner should sit right after the new node, got %v", ids(nodes))
	}
	checkScene(t, f, "main")

	if _, err := f.coord.ToggleDualOutputMode(ctx, false); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if _, err := f.store.MemoryStore.CreateItem("main", "src-item4", scenes.ItemOptions{ID: "Item4", Name: "Item4", Visible: true}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	partner, err := f.coord.NodeAdded("main", "Item4")
	if err != nil || partner != "" {
		t.Fatalf("with dual output off no partner is created, got %q, %v", partner, err)
	}
	if f.node(t, "Item4").Display != display.Horizontal {
		t.Fatal("node in a mapped scene should be tagged horizontal")
	}

	res, err := f.coord.ToggleDualOutputMode(ctx, true)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("repair should pair the late node, got %+v", res)
	}
	checkScene(t, f, "main")
}

func TestNodeAddedInVanillaScene(t *testing.T) {
	f := newFixture()
	f.build(t, "main", "Item1:")
	partner, err := f.coord.NodeAdded("main", "Item1")
	if err != nil || partner != "" {
		t.Fatalf("vanilla scenes are left alone, got %q, %v", partner, err)
	}
	if f.store.writes.Load() != 0 {
		t.Fatal("vanilla node add should not write")
	}
}

func TestLoadCollectionSanitizesAndRepairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.build(t, "main", "Item1:\nItem1v:\nItem2:")
	if err := f.store.MemoryStore.SetDisplay("Item1v", display.Vertical); err != nil {
		t.Fatalf("SetDisplay: %v", err)
	}

	snapshot := nodemap.Snapshot{"main": {"Item1": "Item1v", "Item2": "Item2", "ghost": "Item1v"}}
	res, err := f.coord.LoadCollection(ctx, snapshot, "main", true)
	if err != nil {
		t.Fatalf("LoadCollection: %v", err)
	}
	if !f.coord.DualOutputMode() || f.coord.ActiveSceneID() != "main" {
		t.Fatal("collection should open in dual output on the active scene")
	}
	if res.Created != 1 {
		t.Fatalf("Item2 should gain a partner, got %+v", res)
	}
	if v, _ := f.coord.Maps().VerticalOf("main", "Item1"); v != "Item1v" {
		t.Fatalf("valid entry should survive load, got %q", v)
	}
	if _, ok := f.contexts.Context(display.Vertical); !ok {
		t.Fatal("loading a mapped collection should establish the vertical context")
	}
	checkScene(t, f, "main")
}

func TestLoadCollectionSignedOutStaysSingleOutput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(dualoutput.WithLoggedIn(false))
	f.build(t, "main", "Item1:\nItem1v:")

	if _, err := f.coord.LoadCollection(ctx, nodemap.Snapshot{"main": {"Item1": "Item1v"}}, "main", true); err != nil {
		t.Fatalf("LoadCollection: %v", err)
	}
	if f.coord.DualOutputMode() {
		t.Fatal("dual output needs a signed-in user")
	}
	if !f.coord.Maps().HasMap("main") {
		t.Fatal("maps should still be loaded")
	}
	if _, ok := f.contexts.Context(display.Vertical); !ok {
		t.Fatal("vertical context should be established for a mapped collection")
	}
}

func TestConvertToVanilla(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.build(t, "main", `
Item1:
Folder1
  Item2:
Item3:
`)
	f.enable(t, "main")

	res, err := f.coord.ConvertToVanilla(ctx)
	if err != nil {
		t.Fatalf("ConvertToVanilla: %v", err)
	}
	if res.Removed != 4 || res.Pruned != 4 {
		t.Fatalf("expected 4 vertical nodes removed and 4 entries dropped, got %+v", res)
	}
	if got := ids(f.nodes(t, "main")); len(got) != 4 {
		t.Fatalf("only the horizontal nodes should remain, got %v", got)
	}
	if f.coord.Maps().HasMap("main") || f.coord.DualOutputMode() {
		t.Fatal("converted collection should be vanilla and single output")
	}
	report, err := f.coord.Inspect("main")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.State != dualoutput.StateVanilla {
		t.Fatalf("expected vanilla, got %s", report.State)
	}
}

func TestNestedSceneSourcesAreMapped(t *testing.T) {
	f := newFixture()
	f.build(t, "overlay", "Logo:\nTicker:")
	if _, err := f.store.CreateScene("main", "Main"); err != nil {
		t.Fatalf("CreateScene: %v", err)
	}
	if _, err := f.store.MemoryStore.CreateItem("main", "overlay", scenes.ItemOptions{ID: "OverlayRef", Name: "Overlay", Visible: true}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	f.enable(t, "main")
	if got := f.coord.Maps().Len("overlay"); got != 2 {
		t.Fatalf("nested scene should be mapped, got %d entries", got)
	}
	checkScene(t, f, "overlay")
}

func TestInspectClassifiesScenes(t *testing.T) {
	f := newFixture()
	f.build(t, "main", fiveItems)
	f.build(t, "other", "Camera:")

	report, err := f.coord.Inspect("main")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.State != dualoutput.StateVanilla || report.Horizontal != 5 {
		t.Fatalf("unexpected vanilla report %+v", report)
	}

	f.enable(t, "main")
	if report, _ = f.coord.Inspect("main"); report.State != dualoutput.StateMapped || report.Entries != 5 || report.Vertical != 5 {
		t.Fatalf("unexpected mapped report %+v", report)
	}
	if report, _ = f.coord.Inspect("other"); report.State != dualoutput.StateUnmapped {
		t.Fatalf("unvisited scene should be unmapped, got %s", report.State)
	}

	v := f.partner(t, "main", "Item1")
	if err := f.store.MemoryStore.RemoveNode(v.ID); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	report, _ = f.coord.Inspect("main")
	if report.State != dualoutput.StateCorrupted {
		t.Fatalf("expected corrupted, got %s", report.State)
	}
	found := false
	for _, issue := range report.Issues {
		if issue.Kind == dualoutput.IssueDanglingEntry && issue.NodeID == "Item1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a dangling entry for Item1, got %v", report.Issues)
	}
	if _, err := f.coord.Inspect("missing"); !errors.Is(err, dualoutput.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestDisplayVisibility(t *testing.T) {
	f := newFixture()
	f.build(t, "main", "Item1:")
	if f.coord.DisplayVisible(display.Vertical) {
		t.Fatal("vertical display is hidden in single output")
	}
	f.enable(t, "main")
	if !f.coord.DisplayVisible(display.Horizontal) || !f.coord.DisplayVisible(display.Vertical) {
		t.Fatal("both displays should show in dual output")
	}

	f.coord.SetDisplayVisible(display.Horizontal, false)
	if f.coord.DisplayVisible(display.Horizontal) || !f.coord.DisplayVisible(display.Vertical) {
		t.Fatal("display toggles should be independent")
	}
	f.coord.SetDisplayVisible(display.Horizontal, true)

	f.coord.SetSelectiveRecording(true)
	if !f.coord.DisplayVisible(display.Horizontal) || f.coord.DisplayVisible(display.Vertical) {
		t.Fatal("selective recording shows the horizontal display only")
	}
	f.coord.SetSelectiveRecording(false)
	if !f.coord.DisplayVisible(display.Vertical) {
		t.Fatal("vertical display should come back after selective recording")
	}
}

func TestSceneRemovedAndPersistence(t *testing.T) {
	var saved []nodemap.Snapshot
	f := newFixture(dualoutput.WithPersister(dualoutput.PersisterFunc(func(_ context.Context, s nodemap.Snapshot) error {
		saved = append(saved, s)
		return nil
	})))
	f.build(t, "main", fiveItems)
	f.enable(t, "main")

	if len(saved) != 1 || len(saved[0]["main"]) != 5 {
		t.Fatalf("toggle should save the maps once, got %v", saved)
	}

	f.coord.SceneRemoved("main")
	if f.coord.Maps().HasMap("main") || f.coord.ActiveSceneID() != "" {
		t.Fatal("scene removal should drop its map and deactivate it")
	}
	if _, err := f.coord.SwitchScene(context.Background(), "missing"); !errors.Is(err, dualoutput.ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}
}
