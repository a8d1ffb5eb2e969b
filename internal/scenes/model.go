package scenes

import "dualout/internal/display"

// NodeType distinguishes leaf items from folders.
type NodeType string

const (
	TypeItem   NodeType = "item"
	TypeFolder NodeType = "folder"
)

// Transform positions an item on its display canvas.
type Transform struct {
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	ScaleX   float64 `json:"scaleX" yaml:"scale_x"`
	ScaleY   float64 `json:"scaleY" yaml:"scale_y"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
}

// DefaultTransform places an item at the origin with unit scale.
func DefaultTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// Scene is a named container of nodes.
type Scene struct {
	ID   string
	Name string
}

// Node is an item or folder within a scene. Folders only carry a display tag;
// Output is meaningful for items alone.
type Node struct {
	ID        string
	SceneID   string
	Type      NodeType
	Name      string
	ParentID  string
	SourceID  string
	Transform Transform
	Visible   bool
	Locked    bool
	Display   display.Display
	Output    display.Handle
}

// IsFolder reports whether the node is a folder.
func (n Node) IsFolder() bool { return n.Type == TypeFolder }

// IsItem reports whether the node is an item.
func (n Node) IsItem() bool { return n.Type == TypeItem }

// ItemOptions configures CreateItem. An empty ID is generated.
type ItemOptions struct {
	ID        string
	Name      string
	Display   display.Display
	ParentID  string
	Transform Transform
	Visible   bool
	Locked    bool
}

// FolderOptions configures CreateFolder. An empty ID is generated.
type FolderOptions struct {
	ID       string
	Display  display.Display
	ParentID string
}
