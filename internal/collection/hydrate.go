package collection

import (
	"errors"
	"fmt"
	"strings"

	"dualout/internal/display"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
)

// Hydrated is a document loaded into memory.
type Hydrated struct {
	Store    *scenes.MemoryStore
	NodeMaps nodemap.Snapshot
	// Dropped lists node and scene ids skipped because they repeat.
	Dropped []string
	// Orphaned lists nodes whose parent was missing or not a folder; they are
	// placed at the top level of their scene.
	Orphaned []string
}

// Hydrate builds a MemoryStore from doc. Nodes are created in document order,
// so a document written by Capture reproduces the same flat order.
func Hydrate(doc *Document) (*Hydrated, error) {
	if doc == nil {
		return nil, errors.New("hydrate: document is nil")
	}
	out := &Hydrated{Store: scenes.NewMemoryStore(), NodeMaps: doc.Snapshot()}
	seen := map[string]bool{}

	for _, sd := range doc.Scenes {
		sceneID := strings.TrimSpace(sd.ID)
		if sceneID == "" {
			return nil, fmt.Errorf("hydrate: scene %q has no id", sd.Name)
		}
		if _, err := out.Store.CreateScene(sceneID, sd.Name); err != nil {
			if errors.Is(err, scenes.ErrDuplicateID) {
				out.Dropped = append(out.Dropped, sceneID)
				continue
			}
			return nil, fmt.Errorf("hydrate scene %s: %w", sceneID, err)
		}
		for _, nd := range sd.Nodes {
			if seen[nd.ID] {
				out.Dropped = append(out.Dropped, nd.ID)
				continue
			}
			orphan, err := hydrateNode(out.Store, sceneID, nd)
			if err != nil {
				return nil, err
			}
			seen[nd.ID] = true
			if orphan {
				out.Orphaned = append(out.Orphaned, nd.ID)
			}
		}
	}
	return out, nil
}

func hydrateNode(store *scenes.MemoryStore, sceneID string, nd NodeDoc) (bool, error) {
	if strings.TrimSpace(nd.ID) == "" {
		return false, fmt.Errorf("hydrate scene %s: node %q has no id", sceneID, nd.Name)
	}
	d, err := display.Parse(nd.Display)
	if err != nil {
		return false, fmt.Errorf("hydrate node %s: %w", nd.ID, err)
	}

	parentID := nd.ParentID
	orphan := false
	if parentID != "" {
		parent, err := store.Node(parentID)
		if err != nil || !parent.IsFolder() || parent.SceneID != sceneID {
			parentID, orphan = "", true
		}
	}

	switch nd.Type {
	case scenes.TypeFolder:
		_, err = store.CreateFolder(sceneID, nd.Name, scenes.FolderOptions{ID: nd.ID, Display: d, ParentID: parentID})
	case scenes.TypeItem:
		_, err = store.CreateItem(sceneID, nd.SourceID, scenes.ItemOptions{
			ID:        nd.ID,
			Name:      nd.Name,
			Display:   d,
			ParentID:  parentID,
			Transform: nd.Transform,
			Visible:   nd.Visible,
			Locked:    nd.Locked,
		})
	default:
		return false, fmt.Errorf("hydrate node %s: unknown node type %q", nd.ID, nd.Type)
	}
	if err != nil {
		return false, fmt.Errorf("hydrate node %s: %w", nd.ID, err)
	}
	return orphan, nil
}

// Header carries the collection fields that live outside the scene store.
type Header struct {
	ID             string
	Name           string
	DualOutputMode bool
	ActiveSceneID  string
}

// Capture renders the store and maps as a Document. Nodes without a display
// tag are written with the display the map implies, horizontal by default.
// The node map section is omitted when no scene has entries.
func Capture(header Header, store scenes.Store, maps *nodemap.Maps) (*Document, error) {
	doc := &Document{
		ID:             header.ID,
		Name:           header.Name,
		DualOutputMode: header.DualOutputMode,
		ActiveSceneID:  header.ActiveSceneID,
	}
	for _, scene := range store.Scenes() {
		nodes, err := store.Nodes(scene.ID)
		if err != nil {
			return nil, fmt.Errorf("capture scene %s: %w", scene.ID, err)
		}
		sd := SceneDoc{ID: scene.ID, Name: scene.Name, Nodes: make([]NodeDoc, 0, len(nodes))}
		for _, n := range nodes {
			d := n.Display
			if d == "" && maps != nil {
				d = maps.DisplayOf(n.ID, scene.ID)
			}
			sd.Nodes = append(sd.Nodes, NodeDoc{
				ID:        n.ID,
				Type:      n.Type,
				Name:      n.Name,
				ParentID:  n.ParentID,
				SourceID:  n.SourceID,
				Transform: n.Transform,
				Visible:   n.Visible,
				Locked:    n.Locked,
				Display:   string(d),
			})
		}
		doc.Scenes = append(doc.Scenes, sd)
	}
	if maps != nil {
		if snapshot := maps.Snapshot(); len(snapshot) > 0 {
			doc.NodeMap = &NodeMapDoc{SceneNodeMaps: snapshot}
		}
	}
	return doc, nil
}
