package dualoutput

import (
	"errors"

	"dualout/internal/display"
	"dualout/internal/logging"
	"dualout/internal/scenes"
)

// CreateSceneNodes gives every horizontal node of a scene a vertical twin and
// every unpaired vertical node a horizontal one, then reorders the scene so all
// horizontal nodes come first in their original order, followed by the
// vertical nodes in matching order. Untagged nodes are tagged horizontal. Nodes
// that already have a live partner keep it.
func (c *Coordinator) CreateSceneNodes(sceneID string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createSceneNodes(sceneID)
}

func (c *Coordinator) createSceneNodes(sceneID string) (Result, error) {
	var res Result
	initialOrder, err := c.nodes(sceneID)
	if err != nil {
		return res, err
	}

	failed := make(map[string]struct{})
	for i, n := range initialOrder {
		c.tick(Progress{SceneID: sceneID, NodeID: n.ID, Index: i + 1, Total: len(initialOrder)})
		want := c.displayFor(n)
		if n.Display != want {
			if err := c.store.SetDisplay(n.ID, want); err != nil {
				res.fail(wrap(ErrLookup, "tag node", n.ID, err))
				continue
			}
			n.Display = want
			res.Tagged++
		}
		if assigned, err := c.assignContext(n); err != nil {
			res.fail(err)
		} else if assigned {
			res.Assigned++
		}

		op := "create vertical node"
		if want == display.Vertical {
			op = "create horizontal node"
			if _, ok := c.livePartner(sceneID, n.ID, display.Horizontal); ok {
				continue
			}
			if h, ok := c.maps.HorizontalOf(sceneID, n.ID); ok {
				c.prune(sceneID, h, n.ID, "horizontal partner is missing", &res)
			}
		} else {
			if _, ok := c.livePartner(sceneID, n.ID, display.Vertical); ok {
				continue
			}
			if v, ok := c.maps.VerticalOf(sceneID, n.ID); ok {
				c.prune(sceneID, n.ID, v, "vertical partner is missing", &res)
			}
		}
		if n.ParentID != "" {
			if _, parentFailed := failed[n.ParentID]; parentFailed {
				failed[n.ID] = struct{}{}
				res.fail(wrap(ErrLookup, op, "folder "+n.ParentID+" of node "+n.ID+" was not copied", nil))
				continue
			}
		}

		var created scenes.Node
		if want == display.Vertical {
			created, err = c.createHorizontalNode(n)
		} else {
			created, err = c.createVerticalNode(n)
		}
		if created.ID == "" {
			failed[n.ID] = struct{}{}
			c.warnNode("partner node not created", "partner_node_failed", sceneID, n.ID, err)
			res.fail(err)
			continue
		}
		res.Created++
		if err != nil {
			res.fail(err)
		}
	}

	if err := c.orderHorizontalFirst(sceneID); err != nil {
		logging.WarnWithContext(c.logger, "scene left in creation order", "scene_reorder_failed",
			logging.Scene(sceneID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "vertical nodes sit next to their originals"),
		)
		res.fail(err)
	}
	c.logResult("scene nodes created", sceneID, res)
	return res, nil
}

// orderHorizontalFirst applies the layout produced by bulk creation: the
// horizontal nodes in their current relative order, then their vertical
// partners in the same order, then any node not covered by either group.
// Creation only inserts nodes, so the original nodes keep their initial
// relative order.
func (c *Coordinator) orderHorizontalFirst(sceneID string) error {
	current, err := c.nodes(sceneID)
	if err != nil {
		return err
	}
	exists := make(map[string]bool, len(current))
	for _, n := range current {
		exists[n.ID] = true
	}

	order := make([]string, 0, len(current))
	placed := make(map[string]bool, len(current))
	push := func(id string) {
		if exists[id] && !placed[id] {
			placed[id] = true
			order = append(order, id)
		}
	}
	var partners []string
	for _, n := range current {
		if c.displayFor(n) != display.Horizontal {
			continue
		}
		push(n.ID)
		if v, ok := c.maps.VerticalOf(sceneID, n.ID); ok {
			partners = append(partners, v)
		}
	}
	for _, v := range partners {
		push(v)
	}
	for _, n := range current {
		push(n.ID)
	}

	if equalOrder(order, current) {
		return nil
	}
	if err := c.store.SetNodesOrder(sceneID, order); err != nil {
		if errors.Is(err, scenes.ErrInvalidOrder) {
			return wrap(ErrMapInconsistency, "reorder scene", sceneID, err)
		}
		return wrap(ErrLookup, "reorder scene", sceneID, err)
	}
	return nil
}

func equalOrder(ids []string, nodes []scenes.Node) bool {
	if len(ids) != len(nodes) {
		return false
	}
	for i := range ids {
		if ids[i] != nodes[i].ID {
			return false
		}
	}
	return true
}

// displayFor resolves a node's display: the map wins over the node's tag, and
// untagged nodes default to horizontal.
func (c *Coordinator) displayFor(n scenes.Node) display.Display {
	if _, ok := c.maps.VerticalOf(n.SceneID, n.ID); ok {
		return display.Horizontal
	}
	if _, ok := c.maps.HorizontalOf(n.SceneID, n.ID); ok {
		return display.Vertical
	}
	if n.Display.Valid() {
		return n.Display
	}
	return display.Horizontal
}

// ConfirmOrAssignSceneNodes binds every tagged item to the current context of
// its display. It never creates or removes nodes.
func (c *Coordinator) ConfirmOrAssignSceneNodes(sceneID string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmOrAssignSceneNodes(sceneID)
}

func (c *Coordinator) confirmOrAssignSceneNodes(sceneID string) (Result, error) {
	var res Result
	nodes, err := c.nodes(sceneID)
	if err != nil {
		return res, err
	}
	for i, n := range nodes {
		c.tick(Progress{SceneID: sceneID, NodeID: n.ID, Index: i + 1, Total: len(nodes)})
		if !n.Display.Valid() {
			continue
		}
		assigned, err := c.assignContext(n)
		if err != nil {
			res.fail(err)
			continue
		}
		if assigned {
			res.Assigned++
		}
	}
	c.logResult("scene contexts confirmed", sceneID, res)
	return res, nil
}
