package dualoutput

import (
	"errors"
	"slices"

	"dualout/internal/logging"
	"dualout/internal/scenes"
)

// Removal records what RemoveNodes took out of a scene so it can be put back.
type Removal struct {
	SceneID string
	// Nodes are the removed nodes in flat order, parents before children.
	Nodes []scenes.Node
	// Order is the scene's flat order before removal.
	Order []string
	// Entries are the removed map entries, horizontal -> vertical.
	Entries map[string]string

	coordinator *Coordinator
	rolledBack  bool
}

// RemoveNodes removes the given nodes together with their partners and all
// descendants, and drops the map entries of every removed pair. Either every
// node is removed and the entries are gone, or nothing changes.
func (c *Coordinator) RemoveNodes(sceneID string, ids ...string) (*Removal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes, err := c.nodes(sceneID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]scenes.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	targets := make(map[string]bool, len(ids)*2)
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, wrap(ErrLookup, "remove nodes", "node "+id+" is not in scene "+sceneID, nil)
		}
		targets[id] = true
	}
	c.expandRemoval(sceneID, nodes, byID, targets)

	removal := &Removal{
		SceneID:     sceneID,
		Entries:     make(map[string]string),
		coordinator: c,
	}
	for _, n := range nodes {
		removal.Order = append(removal.Order, n.ID)
		if targets[n.ID] {
			removal.Nodes = append(removal.Nodes, n)
		}
	}
	for h, v := range c.maps.Get(sceneID) {
		if targets[h] || targets[v] {
			removal.Entries[h] = v
		}
	}

	for h := range removal.Entries {
		c.maps.RemoveEntry(sceneID, h)
	}
	for i := len(removal.Nodes) - 1; i >= 0; i-- {
		id := removal.Nodes[i].ID
		if err := c.store.RemoveNode(id); err != nil && !errors.Is(err, scenes.ErrNotFound) {
			cause := wrap(ErrLookup, "remove nodes", "node "+id, err)
			if rbErr := removal.rollback(); rbErr != nil {
				return nil, errors.Join(cause, rbErr)
			}
			return nil, cause
		}
	}
	c.selection = slices.DeleteFunc(c.selection, func(id string) bool { return targets[id] })
	c.logger.Info("nodes removed",
		logging.Scene(sceneID),
		logging.Int("nodes", len(removal.Nodes)),
		logging.Int("entries", len(removal.Entries)),
	)
	return removal, nil
}

// expandRemoval grows targets until it is closed under partners and
// descendants.
func (c *Coordinator) expandRemoval(sceneID string, nodes []scenes.Node, byID map[string]scenes.Node, targets map[string]bool) {
	for changed := true; changed; {
		changed = false
		for id := range targets {
			if p, ok := c.maps.PartnerOf(id, sceneID); ok && !targets[p] {
				if _, exists := byID[p]; exists {
					targets[p] = true
					changed = true
				}
			}
		}
		for _, n := range nodes {
			if !targets[n.ID] && n.ParentID != "" && targets[n.ParentID] {
				targets[n.ID] = true
				changed = true
			}
		}
	}
}

// Rollback restores the removed nodes with their original ids, the previous
// flat order and the removed map entries. It is a no-op after the first call.
func (r *Removal) Rollback() error {
	if r == nil || r.coordinator == nil {
		return nil
	}
	c := r.coordinator
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.rollback()
}

func (r *Removal) rollback() error {
	if r.rolledBack {
		return nil
	}
	r.rolledBack = true
	c := r.coordinator

	var errs []error
	for _, n := range r.Nodes {
		if _, err := c.store.Node(n.ID); err == nil {
			continue
		}
		if err := c.restoreNode(n); err != nil {
			errs = append(errs, err)
		}
	}

	current, err := c.nodes(r.SceneID)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	present := make(map[string]bool, len(current))
	for _, n := range current {
		present[n.ID] = true
	}
	order := make([]string, 0, len(current))
	for _, id := range r.Order {
		if present[id] {
			order = append(order, id)
			delete(present, id)
		}
	}
	for _, n := range current {
		if present[n.ID] {
			order = append(order, n.ID)
		}
	}
	if !equalOrder(order, current) {
		if err := c.store.SetNodesOrder(r.SceneID, order); err != nil {
			errs = append(errs, wrap(ErrLookup, "rollback", "restore order", err))
		}
	}

	for h, v := range r.Entries {
		if err := c.maps.SetEntry(r.SceneID, h, v); err != nil {
			errs = append(errs, wrap(ErrMapInconsistency, "rollback", "restore "+h+" -> "+v, err))
		}
	}
	if len(errs) > 0 {
		logging.ErrorWithContext(c.logger, "removal rollback incomplete", "removal_rollback_failed",
			logging.Scene(r.SceneID),
			logging.Error(errors.Join(errs...)),
		)
	}
	return errors.Join(errs...)
}

func (c *Coordinator) restoreNode(n scenes.Node) error {
	var err error
	if n.IsFolder() {
		_, err = c.store.CreateFolder(n.SceneID, n.Name, scenes.FolderOptions{
			ID:       n.ID,
			Display:  n.Display,
			ParentID: n.ParentID,
		})
	} else {
		_, err = c.store.CreateItem(n.SceneID, n.SourceID, scenes.ItemOptions{
			ID:        n.ID,
			Name:      n.Name,
			Display:   n.Display,
			ParentID:  n.ParentID,
			Transform: n.Transform,
			Visible:   n.Visible,
			Locked:    n.Locked,
		})
		if err == nil && n.Output.Valid() {
			err = c.store.SetOutput(n.ID, n.Output)
		}
	}
	if err != nil {
		return wrap(ErrLookup, "rollback", "restore node "+n.ID, err)
	}
	return nil
}
