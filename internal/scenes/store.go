package scenes

import (
	"errors"

	"dualout/internal/display"
)

var (
	// ErrNotFound indicates a scene or node id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOrder indicates a proposed node order is not a valid pre-order
	// permutation of the scene's nodes.
	ErrInvalidOrder = errors.New("invalid node order")
	// ErrInvalidParent indicates a parent that is missing, not a folder, in a
	// different scene, or inside the node's own subtree.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrDuplicateID indicates a caller-supplied id is already in use.
	ErrDuplicateID = errors.New("duplicate id")
)

// Store is the node store contract the coordinator depends on.
type Store interface {
	Scene(id string) (Scene, error)
	Scenes() []Scene
	Node(id string) (Node, error)
	Nodes(sceneID string) ([]Node, error)

	CreateItem(sceneID, sourceID string, opts ItemOptions) (Node, error)
	CreateFolder(sceneID, name string, opts FolderOptions) (Node, error)
	RemoveNode(id string) error

	SetNodesOrder(sceneID string, ids []string) error
	SetDisplay(id string, d display.Display) error
	SetOutput(id string, h display.Handle) error
	PlaceAfter(id, refID string) error
	PlaceBefore(id, refID string) error
	SetParent(id, parentID string) error
}
