package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dualout/internal/dualoutput"
	"dualout/internal/scenes"
	"dualout/internal/session"
)

func newSceneCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Inspect scenes of a collection",
	}
	cmd.AddCommand(newSceneShowCommand(ctx))
	cmd.AddCommand(newSceneCheckCommand(ctx))
	return cmd
}

type nodeView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId,omitempty"`
	Display  string `json:"display"`
	Partner  string `json:"partner,omitempty"`
	Depth    int    `json:"depth"`
}

type sceneView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Nodes []nodeView `json:"nodes"`
}

// targetScenes resolves --scene, falling back to every scene.
func targetScenes(editor *session.Editor, sceneFlag string) ([]scenes.Scene, error) {
	if id := strings.TrimSpace(sceneFlag); id != "" {
		scene, err := editor.Scenes.Scene(id)
		if err != nil {
			return nil, err
		}
		return []scenes.Scene{scene}, nil
	}
	return editor.Scenes.Scenes(), nil
}

func buildSceneView(editor *session.Editor, scene scenes.Scene) (sceneView, error) {
	nodes, err := editor.Scenes.Nodes(scene.ID)
	if err != nil {
		return sceneView{}, err
	}
	maps := editor.Coordinator.Maps()
	depth := make(map[string]int, len(nodes))
	view := sceneView{ID: scene.ID, Name: scene.Name, Nodes: make([]nodeView, 0, len(nodes))}
	for _, n := range nodes {
		if n.ParentID != "" {
			depth[n.ID] = depth[n.ParentID] + 1
		}
		d := n.Display
		if d == "" {
			d = maps.DisplayOf(n.ID, scene.ID)
		}
		partner, _ := maps.PartnerOf(n.ID, scene.ID)
		view.Nodes = append(view.Nodes, nodeView{
			ID:       n.ID,
			Name:     n.Name,
			Type:     string(n.Type),
			ParentID: n.ParentID,
			Display:  string(d),
			Partner:  partner,
			Depth:    depth[n.ID],
		})
	}
	return view, nil
}

func newSceneShowCommand(ctx *commandContext) *cobra.Command {
	var sceneFlag string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <collection-id>",
		Short: "Show the node tree and pairings of each scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				editor, _, err := s.View(c, args[0])
				if err != nil {
					return err
				}
				targets, err := targetScenes(editor, sceneFlag)
				if err != nil {
					return err
				}
				views := make([]sceneView, 0, len(targets))
				for _, scene := range targets {
					view, err := buildSceneView(editor, scene)
					if err != nil {
						return err
					}
					views = append(views, view)
				}
				if jsonOut {
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for i, view := range views {
					if i > 0 {
						fmt.Fprintln(out)
					}
					for _, line := range renderSectionHeader(fmt.Sprintf("%s (%s)", view.Name, view.ID), colorize) {
						fmt.Fprintln(out, line)
					}
					if len(view.Nodes) == 0 {
						fmt.Fprintln(out, "No nodes")
						continue
					}
					rows := make([][]string, 0, len(view.Nodes))
					for _, n := range view.Nodes {
						partner := n.Partner
						if partner == "" {
							partner = "-"
						}
						rows = append(rows, []string{
							strings.Repeat("  ", n.Depth) + n.Name,
							n.ID,
							n.Type,
							displayLabel(displayOf(n.Display)),
							partner,
						})
					}
					fmt.Fprintln(out, renderTable([]string{"Name", "ID", "Type", "Display", "Partner"}, rows, nil))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sceneFlag, "scene", "", "Only show this scene")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSceneCheckCommand(ctx *commandContext) *cobra.Command {
	var sceneFlag string
	cmd := &cobra.Command{
		Use:   "check <collection-id>",
		Short: "Report node map consistency without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				editor, _, err := s.View(c, args[0])
				if err != nil {
					return err
				}
				targets, err := targetScenes(editor, sceneFlag)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				var reports []dualoutput.Report
				rows := make([][]string, 0, len(targets))
				for _, scene := range targets {
					report, err := editor.Coordinator.Inspect(scene.ID)
					if err != nil {
						return err
					}
					reports = append(reports, report)
					rows = append(rows, []string{
						scene.ID,
						stateLabel(report.State, colorize),
						strconv.Itoa(report.Nodes),
						strconv.Itoa(report.Horizontal),
						strconv.Itoa(report.Vertical),
						strconv.Itoa(report.Entries),
						strconv.Itoa(len(report.Issues)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Scene", "State", "Nodes", "Horizontal", "Vertical", "Entries", "Issues"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))

				corrupted := 0
				for _, report := range reports {
					if report.State != dualoutput.StateCorrupted {
						continue
					}
					corrupted++
					for _, issue := range report.Issues {
						fmt.Fprintf(out, "%s: %s %s: %s\n", report.SceneID, issue.Kind, issue.NodeID, issue.Detail)
					}
				}
				if corrupted > 0 {
					return fmt.Errorf("%d scene(s) need repair; run `dualout repair %s`", corrupted, args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sceneFlag, "scene", "", "Only check this scene")
	return cmd
}
