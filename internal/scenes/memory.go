package scenes

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dualout/internal/display"
)

type sceneState struct {
	scene Scene
	order []string
}

// MemoryStore is an in-process Store. It is safe for concurrent readers but
// the coordinator drives it from a single goroutine.
type MemoryStore struct {
	mu         sync.RWMutex
	scenes     map[string]*sceneState
	sceneOrder []string
	nodes      map[string]*Node
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenes: make(map[string]*sceneState),
		nodes:  make(map[string]*Node),
	}
}

// CreateScene adds a scene. An empty id is generated.
func (m *MemoryStore) CreateScene(id, name string) (Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := m.scenes[id]; ok {
		return Scene{}, fmt.Errorf("%w: scene %s", ErrDuplicateID, id)
	}
	scene := Scene{ID: id, Name: name}
	m.scenes[id] = &sceneState{scene: scene}
	m.sceneOrder = append(m.sceneOrder, id)
	return scene, nil
}

// RemoveScene deletes a scene and all of its nodes.
func (m *MemoryStore) RemoveScene(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.scenes[id]
	if !ok {
		return fmt.Errorf("%w: scene %s", ErrNotFound, id)
	}
	for _, nodeID := range state.order {
		delete(m.nodes, nodeID)
	}
	delete(m.scenes, id)
	m.sceneOrder = slices.DeleteFunc(m.sceneOrder, func(s string) bool { return s == id })
	return nil
}

// Scene returns the scene with the given id.
func (m *MemoryStore) Scene(id string) (Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.scenes[id]
	if !ok {
		return Scene{}, fmt.Errorf("%w: scene %s", ErrNotFound, id)
	}
	return state.scene, nil
}

// Scenes returns all scenes in creation order.
func (m *MemoryStore) Scenes() []Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Scene, 0, len(m.sceneOrder))
	for _, id := range m.sceneOrder {
		out = append(out, m.scenes[id].scene)
	}
	return out
}

// Node returns a copy of the node with the given id.
func (m *MemoryStore) Node(id string) (Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	return *n, nil
}

// Nodes returns copies of a scene's nodes in flat order.
func (m *MemoryStore) Nodes(sceneID string) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("%w: scene %s", ErrNotFound, sceneID)
	}
	out := make([]Node, 0, len(state.order))
	for _, id := range state.order {
		out = append(out, *m.nodes[id])
	}
	return out, nil
}

// CreateItem adds an item referencing sourceID. Top-level items are appended to
// the scene; nested items are appended to the end of their parent's subtree.
func (m *MemoryStore) CreateItem(sceneID, sourceID string, opts ItemOptions) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(sourceID) == "" {
		return Node{}, fmt.Errorf("create item: source id is required")
	}
	node := &Node{
		ID:        opts.ID,
		SceneID:   sceneID,
		Type:      TypeItem,
		Name:      opts.Name,
		ParentID:  opts.ParentID,
		SourceID:  sourceID,
		Transform: opts.Transform,
		Visible:   opts.Visible,
		Locked:    opts.Locked,
		Display:   opts.Display,
	}
	if err := m.insert(node); err != nil {
		return Node{}, fmt.Errorf("create item: %w", err)
	}
	return *node, nil
}

// CreateFolder adds a folder using the same placement rules as CreateItem.
func (m *MemoryStore) CreateFolder(sceneID, name string, opts FolderOptions) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node := &Node{
		ID:       opts.ID,
		SceneID:  sceneID,
		Type:     TypeFolder,
		Name:     name,
		ParentID: opts.ParentID,
		Display:  opts.Display,
	}
	if err := m.insert(node); err != nil {
		return Node{}, fmt.Errorf("create folder: %w", err)
	}
	return *node, nil
}

func (m *MemoryStore) insert(node *Node) error {
	state, ok := m.scenes[node.SceneID]
	if !ok {
		return fmt.Errorf("%w: scene %s", ErrNotFound, node.SceneID)
	}
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if _, exists := m.nodes[node.ID]; exists {
		return fmt.Errorf("%w: node %s", ErrDuplicateID, node.ID)
	}
	pos := len(state.order)
	if node.ParentID != "" {
		if err := m.checkParent(node.SceneID, node.ID, node.ParentID); err != nil {
			return err
		}
		pos = m.subtreeEnd(state, node.ParentID)
	}
	m.nodes[node.ID] = node
	state.order = slices.Insert(state.order, pos, node.ID)
	return nil
}

// RemoveNode deletes a node and its descendants.
func (m *MemoryStore) RemoveNode(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	state := m.scenes[node.SceneID]
	block := m.subtree(state, id)
	for _, nodeID := range block {
		delete(m.nodes, nodeID)
	}
	state.order = removeIDs(state.order, block)
	return nil
}

// SetNodesOrder replaces the scene order. ids must be a permutation of the
// scene's nodes in which every node directly follows its parent's subtree
// prefix (a pre-order walk).
func (m *MemoryStore) SetNodesOrder(sceneID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.scenes[sceneID]
	if !ok {
		return fmt.Errorf("%w: scene %s", ErrNotFound, sceneID)
	}
	if len(ids) != len(state.order) {
		return fmt.Errorf("%w: got %d ids for %d nodes", ErrInvalidOrder, len(ids), len(state.order))
	}
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		node, ok := m.nodes[id]
		if !ok || node.SceneID != sceneID {
			return fmt.Errorf("%w: node %s is not in scene %s", ErrInvalidOrder, id, sceneID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: node %s listed twice", ErrInvalidOrder, id)
		}
		seen[id] = struct{}{}
		if node.ParentID == "" {
			continue
		}
		if i == 0 || !m.isAncestorOrSelf(node.ParentID, ids[i-1]) {
			return fmt.Errorf("%w: node %s is separated from its folder %s", ErrInvalidOrder, id, node.ParentID)
		}
	}
	state.order = slices.Clone(ids)
	return nil
}

// SetDisplay tags a node with a display.
func (m *MemoryStore) SetDisplay(id string, d display.Display) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	node.Display = d
	return nil
}

// SetOutput binds an item to a rendering context. Folders do not render and
// reject the call.
func (m *MemoryStore) SetOutput(id string, h display.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	if node.IsFolder() {
		return fmt.Errorf("set output: node %s is a folder", id)
	}
	node.Output = h
	return nil
}

// PlaceAfter moves id's subtree directly after refID's subtree and adopts
// refID's parent.
func (m *MemoryStore) PlaceAfter(id, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.place(id, refID, true)
}

// PlaceBefore moves id's subtree directly before refID and adopts refID's
// parent.
func (m *MemoryStore) PlaceBefore(id, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.place(id, refID, false)
}

func (m *MemoryStore) place(id, refID string, after bool) error {
	node, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	ref, ok := m.nodes[refID]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, refID)
	}
	if node.SceneID != ref.SceneID {
		return fmt.Errorf("place %s: reference %s is in another scene", id, refID)
	}
	if m.isAncestorOrSelf(id, refID) {
		return fmt.Errorf("place %s: reference %s is inside the moved subtree", id, refID)
	}
	state := m.scenes[node.SceneID]
	block := m.subtree(state, id)
	order := removeIDs(state.order, block)
	var pos int
	if after {
		pos = indexAfterSubtree(order, refID, func(candidate string) bool {
			return m.isAncestorOrSelf(refID, candidate)
		})
	} else {
		pos = slices.Index(order, refID)
	}
	state.order = slices.Insert(order, pos, block...)
	node.ParentID = ref.ParentID
	return nil
}

// SetParent nests id under parentID, moving its subtree to the end of the
// parent's subtree. An empty parentID lifts the node to the top level, placing
// it after its former top-level ancestor.
func (m *MemoryStore) SetParent(id, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	if node.ParentID == parentID {
		return nil
	}
	state := m.scenes[node.SceneID]
	if parentID == "" {
		root := id
		for m.nodes[root].ParentID != "" {
			root = m.nodes[root].ParentID
		}
		block := m.subtree(state, id)
		order := removeIDs(state.order, block)
		pos := indexAfterSubtree(order, root, func(candidate string) bool {
			return m.isAncestorOrSelf(root, candidate)
		})
		state.order = slices.Insert(order, pos, block...)
		node.ParentID = ""
		return nil
	}
	if err := m.checkParent(node.SceneID, id, parentID); err != nil {
		return err
	}
	block := m.subtree(state, id)
	state.order = removeIDs(state.order, block)
	pos := m.subtreeEnd(state, parentID)
	state.order = slices.Insert(state.order, pos, block...)
	node.ParentID = parentID
	return nil
}

func (m *MemoryStore) checkParent(sceneID, id, parentID string) error {
	parent, ok := m.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: parent %s does not exist", ErrInvalidParent, parentID)
	}
	if !parent.IsFolder() {
		return fmt.Errorf("%w: parent %s is not a folder", ErrInvalidParent, parentID)
	}
	if parent.SceneID != sceneID {
		return fmt.Errorf("%w: parent %s is in another scene", ErrInvalidParent, parentID)
	}
	if _, exists := m.nodes[id]; exists && m.isAncestorOrSelf(id, parentID) {
		return fmt.Errorf("%w: parent %s is inside node %s", ErrInvalidParent, parentID, id)
	}
	return nil
}

// isAncestorOrSelf reports whether ancestor is id or one of its ancestors.
func (m *MemoryStore) isAncestorOrSelf(ancestor, id string) bool {
	for cur := id; cur != ""; {
		if cur == ancestor {
			return true
		}
		node, ok := m.nodes[cur]
		if !ok {
			return false
		}
		cur = node.ParentID
	}
	return false
}

// subtree returns root and its descendants in flat order.
func (m *MemoryStore) subtree(state *sceneState, root string) []string {
	var out []string
	for _, id := range state.order {
		if m.isAncestorOrSelf(root, id) {
			out = append(out, id)
		}
	}
	return out
}

// subtreeEnd returns the index just past root's subtree.
func (m *MemoryStore) subtreeEnd(state *sceneState, root string) int {
	return indexAfterSubtree(state.order, root, func(candidate string) bool {
		return m.isAncestorOrSelf(root, candidate)
	})
}

func indexAfterSubtree(order []string, root string, inSubtree func(string) bool) int {
	start := slices.Index(order, root)
	if start < 0 {
		return len(order)
	}
	i := start + 1
	for i < len(order) && inSubtree(order[i]) {
		i++
	}
	return i
}

func removeIDs(order []string, ids []string) []string {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(order))
	for _, id := range order {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
