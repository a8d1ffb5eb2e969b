package dualoutput

import (
	"cmp"
	"fmt"
	"slices"

	"dualout/internal/display"
	"dualout/internal/scenes"
)

// SceneState classifies a scene's dual output consistency.
type SceneState string

const (
	StateVanilla   SceneState = "vanilla"
	StateUnmapped  SceneState = "unmapped-dual"
	StateMapped    SceneState = "mapped-dual"
	StateCorrupted SceneState = "corrupted-dual"
)

// IssueKind names one inconsistency found by Inspect.
type IssueKind string

const (
	IssueDanglingEntry  IssueKind = "dangling-entry"
	IssueTypeMismatch   IssueKind = "type-mismatch"
	IssueUnpaired       IssueKind = "unpaired-node"
	IssueDisplayTag     IssueKind = "display-tag"
	IssueParentMismatch IssueKind = "parent-mismatch"
	IssueMissingContext IssueKind = "missing-context"
)

// Issue is one inconsistency in a scene.
type Issue struct {
	Kind   IssueKind
	NodeID string
	Detail string
}

// Report describes a scene without changing it.
type Report struct {
	SceneID    string
	State      SceneState
	Nodes      int
	Horizontal int
	Vertical   int
	Entries    int
	Issues     []Issue
}

// Inspect classifies a scene as vanilla, unmapped, mapped or corrupted and
// lists what the repair pass would fix. Missing contexts only count while dual
// output is on.
func (c *Coordinator) Inspect(sceneID string) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes, err := c.nodes(sceneID)
	if err != nil {
		return Report{}, err
	}
	entries := c.maps.Get(sceneID)
	report := Report{SceneID: sceneID, Nodes: len(nodes), Entries: len(entries)}

	byID := make(map[string]scenes.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		if c.displayFor(n) == display.Vertical {
			report.Vertical++
		} else {
			report.Horizontal++
		}
	}

	if len(entries) == 0 {
		report.State = StateVanilla
		if c.dualOutput && len(nodes) > 0 {
			report.State = StateUnmapped
		}
		return report, nil
	}

	paired := make(map[string]bool, len(entries)*2)
	for h, v := range entries {
		hn, okH := byID[h]
		vn, okV := byID[v]
		switch {
		case !okH || !okV:
			report.issue(IssueDanglingEntry, h, fmt.Sprintf("%s -> %s references a missing node", h, v))
			continue
		case hn.Type != vn.Type:
			report.issue(IssueTypeMismatch, h, fmt.Sprintf("%s is a %s but %s is a %s", h, hn.Type, v, vn.Type))
			continue
		}
		paired[h], paired[v] = true, true
		want := ""
		if hn.ParentID != "" {
			want = entries[hn.ParentID]
		}
		if vn.ParentID != want {
			report.issue(IssueParentMismatch, v, fmt.Sprintf("parent is %q, want %q", vn.ParentID, want))
		}
	}

	for _, n := range nodes {
		want := c.displayFor(n)
		if n.Display != want {
			report.issue(IssueDisplayTag, n.ID, fmt.Sprintf("tagged %q, want %q", n.Display, want))
		}
		if !paired[n.ID] {
			report.issue(IssueUnpaired, n.ID, fmt.Sprintf("%s node has no partner", want))
		}
		if c.dualOutput && n.IsItem() {
			if h, ok := c.contexts.Context(want); !ok || n.Output != h {
				report.issue(IssueMissingContext, n.ID, fmt.Sprintf("not bound to the %s context", want))
			}
		}
	}

	slices.SortFunc(report.Issues, func(a, b Issue) int {
		if c := cmp.Compare(a.NodeID, b.NodeID); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	report.State = StateMapped
	if len(report.Issues) > 0 {
		report.State = StateCorrupted
	}
	return report, nil
}

func (r *Report) issue(kind IssueKind, nodeID, detail string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, NodeID: nodeID, Detail: detail})
}
