package dualoutput

import (
	"errors"

	"dualout/internal/display"
	"dualout/internal/scenes"
)

// CreateVerticalNode creates the vertical twin of a horizontal node and records
// the pair. It returns the vertical node id. A node that already has a vertical
// partner returns that partner.
//
// A nested node requires its parent folder's vertical partner to exist. When
// only the context assignment fails the node is still created: the returned id
// is valid and the error wraps ErrContextUnavailable.
func (c *Coordinator) CreateVerticalNode(sceneID, horizontalID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, err := c.sceneNode(sceneID, horizontalID)
	if err != nil {
		return "", err
	}
	if v, ok := c.livePartner(sceneID, horizontalID, display.Vertical); ok {
		return v, nil
	}
	if _, isValue := c.maps.HorizontalOf(sceneID, h.ID); isValue || h.Display == display.Vertical {
		return "", wrap(ErrMapInconsistency, "create vertical node", "node "+h.ID+" is vertical", nil)
	}
	if h.Display != display.Horizontal {
		if err := c.store.SetDisplay(h.ID, display.Horizontal); err != nil {
			return "", wrap(ErrLookup, "create vertical node", "tag node "+h.ID, err)
		}
	}
	v, err := c.createVerticalNode(h)
	return v.ID, err
}

// CreateHorizontalNode creates the missing horizontal side of a vertical node.
// It mirrors CreateVerticalNode, copying visibility and lock state as-is.
func (c *Coordinator) CreateHorizontalNode(sceneID, verticalID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.sceneNode(sceneID, verticalID)
	if err != nil {
		return "", err
	}
	if h, ok := c.livePartner(sceneID, verticalID, display.Horizontal); ok {
		return h, nil
	}
	if _, isKey := c.maps.VerticalOf(sceneID, v.ID); isKey || v.Display == display.Horizontal {
		return "", wrap(ErrMapInconsistency, "create horizontal node", "node "+v.ID+" is horizontal", nil)
	}
	if v.Display != display.Vertical {
		if err := c.store.SetDisplay(v.ID, display.Vertical); err != nil {
			return "", wrap(ErrLookup, "create horizontal node", "tag node "+v.ID, err)
		}
	}
	h, err := c.createHorizontalNode(v)
	return h.ID, err
}

func (c *Coordinator) sceneNode(sceneID, nodeID string) (scenes.Node, error) {
	n, err := c.store.Node(nodeID)
	if err != nil {
		return scenes.Node{}, wrap(ErrLookup, "find node", nodeID, err)
	}
	if n.SceneID != sceneID {
		return scenes.Node{}, wrap(ErrLookup, "find node", nodeID+" is not in scene "+sceneID, nil)
	}
	return n, nil
}

// livePartner returns the mapped partner on display want when it still exists.
func (c *Coordinator) livePartner(sceneID, nodeID string, want display.Display) (string, bool) {
	var (
		partner string
		ok      bool
	)
	if want == display.Vertical {
		partner, ok = c.maps.VerticalOf(sceneID, nodeID)
	} else {
		partner, ok = c.maps.HorizontalOf(sceneID, nodeID)
	}
	if !ok {
		return "", false
	}
	if _, err := c.sceneNode(sceneID, partner); err != nil {
		return "", false
	}
	return partner, true
}

func (c *Coordinator) createVerticalNode(h scenes.Node) (scenes.Node, error) {
	parentID := ""
	if h.ParentID != "" {
		p, ok := c.maps.VerticalOf(h.SceneID, h.ParentID)
		if !ok {
			return scenes.Node{}, wrap(ErrLookup, "create vertical node",
				"folder "+h.ParentID+" of node "+h.ID+" has no vertical partner", nil)
		}
		parentID = p
	}

	var (
		v   scenes.Node
		err error
	)
	if h.IsFolder() {
		v, err = c.store.CreateFolder(h.SceneID, h.Name, scenes.FolderOptions{
			Display:  display.Vertical,
			ParentID: parentID,
		})
	} else {
		v, err = c.store.CreateItem(h.SceneID, h.SourceID, scenes.ItemOptions{
			Name:      h.Name,
			Display:   display.Vertical,
			ParentID:  parentID,
			Transform: scenes.DefaultTransform(),
			Visible:   true,
			Locked:    h.Locked,
		})
	}
	if err != nil {
		return scenes.Node{}, wrap(ErrLookup, "create vertical node", "copy of "+h.ID, err)
	}
	if parentID == "" {
		if err := c.store.PlaceAfter(v.ID, h.ID); err != nil {
			return scenes.Node{}, c.discard(v.ID, wrap(ErrLookup, "create vertical node", "place after "+h.ID, err))
		}
	}
	return c.pair(h.ID, v.ID, v, "create vertical node")
}

func (c *Coordinator) createHorizontalNode(v scenes.Node) (scenes.Node, error) {
	parentID := ""
	if v.ParentID != "" {
		p, ok := c.maps.HorizontalOf(v.SceneID, v.ParentID)
		if !ok {
			return scenes.Node{}, wrap(ErrLookup, "create horizontal node",
				"folder "+v.ParentID+" of node "+v.ID+" has no horizontal partner", nil)
		}
		parentID = p
	}

	var (
		h   scenes.Node
		err error
	)
	if v.IsFolder() {
		h, err = c.store.CreateFolder(v.SceneID, v.Name, scenes.FolderOptions{
			Display:  display.Horizontal,
			ParentID: parentID,
		})
	} else {
		h, err = c.store.CreateItem(v.SceneID, v.SourceID, scenes.ItemOptions{
			Name:      v.Name,
			Display:   display.Horizontal,
			ParentID:  parentID,
			Transform: scenes.DefaultTransform(),
			Visible:   v.Visible,
			Locked:    v.Locked,
		})
	}
	if err != nil {
		return scenes.Node{}, wrap(ErrLookup, "create horizontal node", "copy of "+v.ID, err)
	}
	if parentID == "" {
		if err := c.store.PlaceBefore(h.ID, v.ID); err != nil {
			return scenes.Node{}, c.discard(h.ID, wrap(ErrLookup, "create horizontal node", "place before "+v.ID, err))
		}
	}
	return c.pair(h.ID, v.ID, h, "create horizontal node")
}

// pair records horizontalID -> verticalID and binds the newly created side to
// its display's context. A rejected entry discards created.
func (c *Coordinator) pair(horizontalID, verticalID string, created scenes.Node, op string) (scenes.Node, error) {
	if err := c.maps.SetEntry(created.SceneID, horizontalID, verticalID); err != nil {
		return scenes.Node{}, c.discard(created.ID, wrap(ErrMapInconsistency, op, horizontalID+" -> "+verticalID, err))
	}
	if _, err := c.assignContext(created); err != nil {
		return created, err
	}
	return created, nil
}

// discard removes a node created by a half-finished pairing.
func (c *Coordinator) discard(nodeID string, cause error) error {
	if err := c.store.RemoveNode(nodeID); err != nil && !errors.Is(err, scenes.ErrNotFound) {
		return errors.Join(cause, wrap(ErrMapInconsistency, "discard node", nodeID, err))
	}
	return cause
}
