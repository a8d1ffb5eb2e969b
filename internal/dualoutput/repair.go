package dualoutput

import (
	"dualout/internal/display"
	"dualout/internal/logging"
	"dualout/internal/scenes"
)

// ConfirmSceneNodeMaps is the repair pass for a scene that already has a node
// map. It walks the scene once:
//
//   - a horizontal (or untagged) node with a live partner is confirmed, and its
//     partner is moved under the partner of its parent when nesting drifted;
//   - a horizontal node without one gets a new vertical node;
//   - a vertical node without a live partner gets a new horizontal node;
//   - display tags and contexts are corrected along the way.
//
// Map entries whose nodes are both gone are pruned afterwards. A second run on
// a repaired scene writes nothing.
func (c *Coordinator) ConfirmSceneNodeMaps(sceneID string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmSceneNodeMaps(sceneID)
}

func (c *Coordinator) confirmSceneNodeMaps(sceneID string) (Result, error) {
	var res Result
	nodes, err := c.nodes(sceneID)
	if err != nil {
		return res, err
	}

	entries := c.maps.Get(sceneID)
	pending := make(map[string]struct{}, len(entries))
	for h := range entries {
		pending[h] = struct{}{}
	}
	byID := make(map[string]scenes.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	// A pair is live when both nodes exist with the same type.
	live := func(h, v string) bool {
		hn, okH := byID[h]
		vn, okV := byID[v]
		return okH && okV && hn.Type == vn.Type
	}
	horizontalOf := make(map[string]string, len(entries))
	for h, v := range entries {
		horizontalOf[v] = h
	}

	for i, n := range nodes {
		c.tick(Progress{SceneID: sceneID, NodeID: n.ID, Index: i + 1, Total: len(nodes)})

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

		if want == display.Horizontal {
			v, mapped := entries[n.ID]
			if mapped {
				delete(pending, n.ID)
				if live(n.ID, v) {
					res.Confirmed++
					c.mirrorParent(n, byID[v], &res)
					continue
				}
				c.prune(sceneID, n.ID, v, "vertical partner is missing", &res)
			}
			if _, err := c.createVerticalNode(n); err != nil {
				c.warnNode("vertical node not repaired", "vertical_node_failed", sceneID, n.ID, err)
				res.fail(err)
			}
			if _, ok := c.maps.VerticalOf(sceneID, n.ID); ok {
				res.Created++
			}
			continue
		}

		h, mapped := horizontalOf[n.ID]
		if mapped && live(h, n.ID) {
			continue
		}
		if mapped {
			delete(pending, h)
			c.prune(sceneID, h, n.ID, "horizontal partner is missing", &res)
		}
		if _, err := c.createHorizontalNode(n); err != nil {
			c.warnNode("horizontal node not repaired", "horizontal_node_failed", sceneID, n.ID, err)
			res.fail(err)
		}
		if _, ok := c.maps.HorizontalOf(sceneID, n.ID); ok {
			res.Created++
		}
	}

	for h := range pending {
		c.prune(sceneID, h, entries[h], "both nodes are missing", &res)
	}
	c.logResult("scene node maps confirmed", sceneID, res)
	return res, nil
}

// mirrorParent nests v under the vertical partner of h's parent.
func (c *Coordinator) mirrorParent(h, v scenes.Node, res *Result) {
	want := ""
	if h.ParentID != "" {
		p, ok := c.maps.VerticalOf(h.SceneID, h.ParentID)
		if !ok {
			res.fail(wrap(ErrLookup, "mirror parent", "folder "+h.ParentID+" has no vertical partner", nil))
			return
		}
		want = p
	}
	if v.ParentID == want {
		return
	}
	if err := c.store.SetParent(v.ID, want); err != nil {
		res.fail(wrap(ErrMapInconsistency, "mirror parent", "node "+v.ID, err))
		return
	}
	res.Reparented++
}

// prune drops horizontalID -> verticalID unless the key was already re-paired
// during this pass.
func (c *Coordinator) prune(sceneID, horizontalID, verticalID, reason string, res *Result) {
	if current, ok := c.maps.VerticalOf(sceneID, horizontalID); !ok || current != verticalID {
		return
	}
	if !c.maps.RemoveEntry(sceneID, horizontalID) {
		return
	}
	res.Pruned++
	logging.WarnWithContext(c.logger, "stale node map entry pruned", "node_map_pruned",
		logging.Scene(sceneID),
		logging.Node(horizontalID),
		logging.String(logging.FieldPartnerID, verticalID),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "pair is recreated from the surviving node"),
	)
}
