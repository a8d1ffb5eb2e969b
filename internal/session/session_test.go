package session_test

import (
	"context"
	"errors"
	"testing"

	"dualout/internal/collection"
	"dualout/internal/dualoutput"
	"dualout/internal/logging"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
	"dualout/internal/session"
	"dualout/internal/testsupport"
)

func openSession(t *testing.T, opts ...testsupport.ConfigOption) *session.Session {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	s, err := session.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sketchDocument captures a one-scene collection built from sketch.
func sketchDocument(t *testing.T, dualOutput bool, sketch string) *collection.Document {
	t.Helper()
	store := scenes.NewMemoryStore()
	testsupport.BuildScene(t, store, "main", sketch)
	doc, err := collection.Capture(collection.Header{
		Name:           "Demo",
		DualOutputMode: dualOutput,
		ActiveSceneID:  "main",
	}, store, nodemap.New())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	return doc
}

const demoSketch = `
Item1:
Folder1
  Item2:
`

func TestOpenHoldsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := session.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	if _, err := session.Open(cfg, logging.NewNop()); !errors.Is(err, session.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := session.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = second.Close()
}

func TestImportMapsActiveScene(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	saved, loaded, err := s.Import(ctx, sketchDocument(t, true, demoSketch))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if loaded.Created != 3 {
		t.Fatalf("expected 3 vertical nodes created on import, got %+v", loaded)
	}
	if !saved.DualOutputMode || saved.NodeCount() != 6 || len(saved.Snapshot()["main"]) != 3 {
		t.Fatalf("unexpected saved document %+v", saved)
	}

	stored, err := s.Store().Load(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored.Snapshot()["main"]) != 3 || stored.NodeCount() != 6 {
		t.Fatalf("import was not persisted: %+v", stored)
	}

	editor, _, err := s.View(ctx, saved.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	report, err := editor.Coordinator.Inspect("main")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.State != dualoutput.StateMapped || report.Entries != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestEditTogglesAndConverts(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	saved, _, err := s.Import(ctx, sketchDocument(t, true, demoSketch))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	off, err := s.Edit(ctx, saved.ID, func(ctx context.Context, e *session.Editor) error {
		if e.Loaded.Created != 0 || e.Loaded.Confirmed != 3 {
			t.Errorf("reload should only confirm, got %+v", e.Loaded)
		}
		_, err := e.Coordinator.ToggleDualOutputMode(ctx, false)
		return err
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if off.DualOutputMode || len(off.Snapshot()["main"]) != 3 {
		t.Fatalf("toggling off should keep the maps: %+v", off)
	}

	vanilla, err := s.Edit(ctx, saved.ID, func(ctx context.Context, e *session.Editor) error {
		_, err := e.Coordinator.ConvertToVanilla(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if vanilla.NodeMap != nil || vanilla.NodeCount() != 3 {
		t.Fatalf("expected a vanilla collection, got %+v", vanilla)
	}
	stored, err := s.Store().Load(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.NodeMap != nil || stored.NodeCount() != 3 {
		t.Fatalf("vanilla collection not persisted: %+v", stored)
	}
}

func TestEditSavesEvenWhenOperationFails(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	saved, _, err := s.Import(ctx, sketchDocument(t, false, demoSketch))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	sentinel := errors.New("boom")
	doc, err := s.Edit(ctx, saved.ID, func(ctx context.Context, e *session.Editor) error {
		if _, err := e.Coordinator.ToggleDualOutputMode(ctx, true); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the operation error, got %v", err)
	}
	if doc == nil || !doc.DualOutputMode || len(doc.Snapshot()["main"]) != 3 {
		t.Fatalf("expected the toggle to be saved, got %+v", doc)
	}
}

func TestSignedOutImportStaysSingleOutput(t *testing.T) {
	s := openSession(t, testsupport.WithUser(""))
	saved, loaded, err := s.Import(context.Background(), sketchDocument(t, true, demoSketch))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if saved.DualOutputMode || saved.NodeMap != nil || loaded.Changed() {
		t.Fatalf("signed out import should stay single output: %+v %+v", saved, loaded)
	}
}

func TestEditUnknownCollection(t *testing.T) {
	s := openSession(t)
	if _, err := s.Edit(context.Background(), "missing", nil); !errors.Is(err, collection.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
