package testsupport

import (
	"strings"
	"testing"

	"dualout/internal/display"
	"dualout/internal/scenes"
)

// BuildScene creates a scene from an indented sketch. Each line is one node;
// two spaces of indentation nest it in the folder above. A trailing colon marks
// an item, a bare name a folder. Node ids equal their names and items use
// "src-<name>" as their source.
//
//	Item1:
//	Folder1
//	  Item2:
func BuildScene(t testing.TB, store *scenes.MemoryStore, sceneID, sketch string) {
	t.Helper()

	if _, err := store.Scene(sceneID); err != nil {
		if _, err := store.CreateScene(sceneID, sceneID); err != nil {
			t.Fatalf("create scene %s: %v", sceneID, err)
		}
	}

	var parents []string
	indentUnit := -1
	for _, raw := range strings.Split(sketch, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		trimmed := strings.TrimLeft(raw, " \t")
		indent := len(raw) - len(trimmed)
		if indentUnit < 0 {
			indentUnit = indent
		}
		depth := (indent - indentUnit) / 2
		if depth < 0 || depth > len(parents) {
			t.Fatalf("sketch line %q is not nested under a folder", raw)
		}
		parents = parents[:depth]
		parentID := ""
		if depth > 0 {
			parentID = parents[depth-1]
		}

		name := strings.TrimSpace(trimmed)
		if item, ok := strings.CutSuffix(name, ":"); ok {
			if _, err := store.CreateItem(sceneID, "src-"+item, scenes.ItemOptions{
				ID:        item,
				Name:      item,
				ParentID:  parentID,
				Transform: scenes.DefaultTransform(),
				Visible:   true,
			}); err != nil {
				t.Fatalf("create item %s: %v", item, err)
			}
			parents = append(parents, item)
			continue
		}
		if _, err := store.CreateFolder(sceneID, name, scenes.FolderOptions{ID: name, ParentID: parentID}); err != nil {
			t.Fatalf("create folder %s: %v", name, err)
		}
		parents = append(parents, name)
	}
}

// Sketch renders a scene back into sketch form. Vertical nodes carry a " [v]"
// suffix so both displays can be compared by name.
func Sketch(t testing.TB, store scenes.Store, sceneID string) string {
	t.Helper()

	nodes, err := store.Nodes(sceneID)
	if err != nil {
		t.Fatalf("nodes of %s: %v", sceneID, err)
	}
	depth := make(map[string]int, len(nodes))
	var b strings.Builder
	for _, n := range nodes {
		d := 0
		if n.ParentID != "" {
			d = depth[n.ParentID] + 1
		}
		depth[n.ID] = d
		b.WriteString(strings.Repeat("  ", d))
		b.WriteString(n.Name)
		if n.IsItem() {
			b.WriteByte(':')
		}
		if n.Display == display.Vertical {
			b.WriteString(" [v]")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
