package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dualout/internal/dualoutput"
	"dualout/internal/session"
)

type repairOutcome struct {
	ID     string
	Name   string
	Scenes int
	Result dualoutput.Result
	Err    error
}

func newRepairCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "repair [collection-id]",
		Short: "Confirm and repair the node maps of a collection",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass a collection id or --all, not both")
			}
			if !all && len(args) != 1 {
				return errors.New("a collection id is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				var ids []string
				if all {
					list, err := s.Store().List(c)
					if err != nil {
						return err
					}
					for _, sum := range list {
						ids = append(ids, sum.ID)
					}
				} else {
					ids = args
				}

				outcomes, err := repairCollections(c, s, ids, cfg.Repair.MaxParallel)
				if err != nil {
					return err
				}
				return printRepairOutcomes(cmd, outcomes)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Repair every stored collection")
	return cmd
}

// repairCollections repairs ids concurrently. Per-collection failures are
// recorded in the outcomes; only cancellation aborts the run.
func repairCollections(ctx context.Context, s *session.Session, ids []string, limit int) ([]repairOutcome, error) {
	outcomes := make([]repairOutcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := repairOutcome{ID: id}
			doc, err := s.Edit(gctx, id, func(c context.Context, e *session.Editor) error {
				outcome.Result = e.Loaded
				var errs []error
				for _, sceneID := range e.Coordinator.Maps().SceneIDs() {
					res, err := e.Coordinator.ConfirmSceneNodeMaps(sceneID)
					outcome.Result.Add(res)
					if err != nil {
						errs = append(errs, err)
					}
					outcome.Scenes++
				}
				return errors.Join(errs...)
			})
			if doc != nil {
				outcome.Name = doc.Name
			}
			outcome.Err = err
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func printRepairOutcomes(cmd *cobra.Command, outcomes []repairOutcome) error {
	out := cmd.OutOrStdout()
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "No collections")
		return nil
	}
	rows := make([][]string, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil || len(o.Result.Failures) > 0 {
			status = "failed"
			failed++
		}
		rows = append(rows, []string{
			o.ID,
			o.Name,
			strconv.Itoa(o.Scenes),
			strconv.Itoa(o.Result.Created),
			strconv.Itoa(o.Result.Reparented),
			strconv.Itoa(o.Result.Pruned),
			strconv.Itoa(len(o.Result.Failures)),
			status,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Collection", "Name", "Scenes", "Created", "Reparented", "Pruned", "Failures", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", o.ID, o.Err)
		}
		for _, f := range o.Result.Failures {
			fmt.Fprintf(out, "%s: %v\n", o.ID, f)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d collection(s) could not be fully repaired", failed)
	}
	return nil
}
