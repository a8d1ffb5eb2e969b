package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dualout/internal/dualoutput"
	"dualout/internal/session"
)

func newModeCommand(ctx *commandContext) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:       "mode <on|off> <collection-id>",
		Short:     "Turn dual output on or off for a collection",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch strings.ToLower(args[0]) {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("unknown mode %q (expected on or off)", args[0])
			}
			if strings.TrimSpace(user) != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				cfg.Account.Username = strings.TrimSpace(user)
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				var res dualoutput.Result
				_, err := s.Edit(c, args[1], func(c context.Context, e *session.Editor) error {
					r, err := e.Coordinator.ToggleDualOutputMode(c, on)
					res = r
					return err
				})
				if err != nil {
					return modeError(err)
				}
				out := cmd.OutOrStdout()
				if on {
					fmt.Fprintf(out, "Dual output enabled for %s\n", args[1])
					printResult(out, "Scene nodes", res)
				} else {
					fmt.Fprintf(out, "Dual output disabled for %s (node maps kept)\n", args[1])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Sign in as this user for the command")
	return cmd
}

func modeError(err error) error {
	switch {
	case errors.Is(err, dualoutput.ErrLoginRequired):
		return fmt.Errorf("%w (set account.username, DUALOUT_USER, or pass --user)", err)
	case errors.Is(err, dualoutput.ErrContextUnavailable):
		return fmt.Errorf("%w (check the [video] resolutions)", err)
	default:
		return err
	}
}

func newSwitchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <collection-id> <scene-id>",
		Short: "Make a scene active, mapping it when dual output is on",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				var res dualoutput.Result
				_, err := s.Edit(c, args[0], func(c context.Context, e *session.Editor) error {
					r, err := e.Coordinator.SwitchScene(c, args[1])
					res = r
					return err
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Active scene is now %s\n", args[1])
				if res.Changed() || len(res.Failures) > 0 {
					printResult(out, "Scene nodes", res)
				}
				return nil
			})
		},
	}
}

func newConvertVanillaCommand(ctx *commandContext) *cobra.Command {
	var sceneIDs []string
	cmd := &cobra.Command{
		Use:   "convert-vanilla <collection-id>",
		Short: "Remove vertical nodes and node maps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				var res dualoutput.Result
				_, err := s.Edit(c, args[0], func(c context.Context, e *session.Editor) error {
					r, err := e.Coordinator.ConvertToVanilla(c, sceneIDs...)
					res = r
					return err
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d vertical nodes and %d map entries from %s\n", res.Removed, res.Pruned, args[0])
				return res.Err()
			})
		},
	}
	cmd.Flags().StringSliceVar(&sceneIDs, "scene", nil, "Only convert these scenes (repeatable)")
	return cmd
}
