package dualoutput

import (
	"context"
	"errors"
	"slices"

	"dualout/internal/display"
	"dualout/internal/logging"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
)

// ToggleDualOutputMode turns dual output on or off.
//
// Turning it on requires a signed-in user outside studio mode and both display
// contexts. The active scene is then mapped (or repaired when it already has a
// map), as is every scene nested in it as a source. If the active scene cannot
// be read the mode stays off.
//
// Turning it off clears the selection and leaves maps and nodes in place.
func (c *Coordinator) ToggleDualOutputMode(ctx context.Context, on bool) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logger := logging.WithContext(ctx, c.logger)

	if !on {
		if c.dualOutput {
			c.dualOutput = false
			c.selection = nil
			logger.Info("dual output disabled")
		}
		return Result{}, nil
	}
	if !c.loggedIn {
		return Result{}, ErrLoginRequired
	}
	if c.studioMode {
		return Result{}, ErrStudioMode
	}
	for _, d := range display.All {
		if _, err := c.contextFor(d); err != nil {
			return Result{}, err
		}
	}

	var res Result
	if c.activeSceneID != "" {
		r, err := c.prepareScene(c.activeSceneID)
		res.Add(r)
		if err != nil {
			logging.ErrorWithContext(logger, "dual output not enabled", "dual_output_toggle_failed",
				logging.Scene(c.activeSceneID),
				logging.Error(err),
			)
			return res, err
		}
	}
	c.dualOutput = true
	logger.Info("dual output enabled",
		logging.Scene(c.activeSceneID),
		logging.Int("created", res.Created),
		logging.Int("failures", len(res.Failures)),
	)
	c.persist(ctx)
	return res, nil
}

// prepareScene maps or repairs sceneID, then gives every scene nested in it as
// a source the same treatment with the lighter context check for scenes that
// are already mapped.
func (c *Coordinator) prepareScene(sceneID string) (Result, error) {
	var res Result
	visited := map[string]bool{}
	var walk func(id string, root bool) error
	walk = func(id string, root bool) error {
		if visited[id] {
			return nil
		}
		visited[id] = true

		var (
			r   Result
			err error
		)
		switch {
		case !c.maps.HasMap(id):
			r, err = c.createSceneNodes(id)
		case root:
			r, err = c.confirmSceneNodeMaps(id)
		default:
			r, err = c.confirmOrAssignSceneNodes(id)
		}
		res.Add(r)
		if err != nil {
			if root {
				return err
			}
			res.fail(err)
			return nil
		}
		for _, nested := range c.nestedScenes(id) {
			if err := walk(nested, false); err != nil {
				return err
			}
		}
		return nil
	}
	err := walk(sceneID, true)
	return res, err
}

// nestedScenes lists scenes used as item sources inside sceneID.
func (c *Coordinator) nestedScenes(sceneID string) []string {
	nodes, err := c.store.Nodes(sceneID)
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range nodes {
		if !n.IsItem() || n.SourceID == sceneID || slices.Contains(out, n.SourceID) {
			continue
		}
		if _, err := c.store.Scene(n.SourceID); err == nil {
			out = append(out, n.SourceID)
		}
	}
	return out
}

// SwitchScene makes sceneID active. While dual output is on the scene is
// mapped, or repaired when it already has a map.
func (c *Coordinator) SwitchScene(ctx context.Context, sceneID string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.Scene(sceneID); err != nil {
		return Result{}, wrap(ErrLookup, "switch scene", sceneID, err)
	}
	c.activeSceneID = sceneID
	c.selection = nil
	if !c.dualOutput {
		return Result{}, nil
	}
	res, err := c.prepareScene(sceneID)
	if err != nil {
		return res, err
	}
	c.persist(ctx)
	return res, nil
}

// NodeAdded tags a node added outside the coordinator and, while dual output is
// on, creates its partner. It returns the partner id, or "" when none was
// created. With dual output off a node in a mapped scene is only tagged; its
// partner is created by the next repair pass.
func (c *Coordinator) NodeAdded(sceneID, nodeID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.sceneNode(sceneID, nodeID)
	if err != nil {
		return "", err
	}
	if !c.dualOutput && !c.maps.HasMap(sceneID) {
		return "", nil
	}
	want := c.displayFor(n)
	if n.Display != want {
		if err := c.store.SetDisplay(n.ID, want); err != nil {
			return "", wrap(ErrLookup, "node added", "tag node "+n.ID, err)
		}
		n.Display = want
	}
	if !c.dualOutput {
		return "", nil
	}
	if _, err := c.assignContext(n); err != nil {
		return "", err
	}

	if want == display.Vertical {
		if h, ok := c.livePartner(sceneID, n.ID, display.Horizontal); ok {
			return h, nil
		}
		h, err := c.createHorizontalNode(n)
		return h.ID, err
	}
	if v, ok := c.livePartner(sceneID, n.ID, display.Vertical); ok {
		return v, nil
	}
	v, err := c.createVerticalNode(n)
	return v.ID, err
}

// LoadCollection replaces the node maps with snapshot and restores the mode of
// a freshly opened collection. A non-empty snapshot establishes the vertical
// context; invalid entries are dropped. With dual output on the active scene is
// repaired.
func (c *Coordinator) LoadCollection(ctx context.Context, snapshot nodemap.Snapshot, activeSceneID string, dualOutputMode bool) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logger := logging.WithContext(ctx, c.logger)

	dropped := c.maps.Load(snapshot)
	if dropped > 0 {
		logging.WarnWithContext(logger, "invalid node map entries dropped on load", "node_map_sanitized",
			logging.Int("dropped", dropped),
			logging.String(logging.FieldImpact, "affected nodes are re-paired by the repair pass"),
		)
	}
	c.selection = nil
	c.activeSceneID = activeSceneID
	c.dualOutput = false

	needed := []display.Display{display.Horizontal}
	if len(c.maps.SceneIDs()) > 0 {
		needed = append(needed, display.Vertical)
	}
	for _, d := range needed {
		if _, err := c.contextFor(d); err != nil {
			logging.WarnWithContext(logger, "context unavailable on load", "context_unavailable",
				logging.String(logging.FieldDisplay, string(d)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "nodes stay unbound until the context is available"),
			)
		}
	}

	if !dualOutputMode {
		return Result{}, nil
	}
	switch {
	case !c.loggedIn:
		logging.WarnWithContext(logger, "collection opened in single output", "dual_output_login_required",
			logging.String(logging.FieldErrorHint, "sign in and enable dual output again"),
			logging.String(logging.FieldImpact, "vertical display hidden"),
		)
		return Result{}, nil
	case c.studioMode:
		logging.WarnWithContext(logger, "collection opened in single output", "dual_output_studio_mode",
			logging.String(logging.FieldErrorHint, "leave studio mode and enable dual output again"),
			logging.String(logging.FieldImpact, "vertical display hidden"),
		)
		return Result{}, nil
	}

	var res Result
	if activeSceneID != "" {
		r, err := c.prepareScene(activeSceneID)
		res.Add(r)
		if err != nil {
			return res, err
		}
	}
	c.dualOutput = true
	return res, nil
}

// ConvertToVanilla removes the vertical side of the given scenes (every mapped
// scene when none are given) and drops their maps. Dual output is turned off
// once no scene has a map.
func (c *Coordinator) ConvertToVanilla(ctx context.Context, sceneIDs ...string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(sceneIDs) == 0 {
		sceneIDs = c.maps.SceneIDs()
	}
	var res Result
	var errs []error
	for _, sceneID := range sceneIDs {
		r, err := c.convertScene(sceneID)
		res.Add(r)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(c.maps.SceneIDs()) == 0 {
		c.dualOutput = false
		c.selection = nil
	}
	logging.WithContext(ctx, c.logger).Info("converted to single output",
		logging.Int("scenes", len(sceneIDs)),
		logging.Int("removed", res.Removed),
	)
	c.persist(ctx)
	return res, errors.Join(errs...)
}

func (c *Coordinator) convertScene(sceneID string) (Result, error) {
	var res Result
	nodes, err := c.nodes(sceneID)
	if err != nil {
		if errors.Is(err, scenes.ErrNotFound) {
			c.maps.RemoveScene(sceneID)
		}
		return res, err
	}
	var vertical []scenes.Node
	for _, n := range nodes {
		if c.displayFor(n) == display.Vertical {
			vertical = append(vertical, n)
		}
	}
	for i := len(vertical) - 1; i >= 0; i-- {
		err := c.store.RemoveNode(vertical[i].ID)
		switch {
		case err == nil:
			res.Removed++
		case errors.Is(err, scenes.ErrNotFound):
		default:
			res.fail(wrap(ErrLookup, "convert to vanilla", "remove node "+vertical[i].ID, err))
		}
	}
	res.Pruned += c.maps.Len(sceneID)
	c.maps.RemoveScene(sceneID)
	return res, nil
}

// SceneRemoved drops the node map of a deleted scene.
func (c *Coordinator) SceneRemoved(sceneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maps.RemoveScene(sceneID)
	if c.activeSceneID == sceneID {
		c.activeSceneID = ""
		c.selection = nil
	}
}
