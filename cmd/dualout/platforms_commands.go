package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dualout/internal/display"
	"dualout/internal/platforms"
)

func newPlatformsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "Destination display settings",
	}
	cmd.AddCommand(newPlatformsListCommand(ctx))
	cmd.AddCommand(newPlatformsCheckCommand(ctx))
	return cmd
}

func loadPlatformSettings(ctx *commandContext) (*platforms.Settings, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return platforms.FromConfig(cfg)
}

func newPlatformsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List destinations and the display each one receives",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadPlatformSettings(ctx)
			if err != nil {
				return err
			}
			list := settings.List()
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{s.Destination, displayLabel(s.Display)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Destination", "Display"}, rows, nil))
			return nil
		},
	}
}

func newPlatformsCheckCommand(ctx *commandContext) *cobra.Command {
	var singleOutput bool
	cmd := &cobra.Command{
		Use:   "check <destination>...",
		Short: "Check whether a broadcast to the destinations can go live",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadPlatformSettings(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = settings.ValidateGoLive(!singleOutput, args)
			if errors.Is(err, platforms.ErrDisplayCoverage) {
				return errors.New(platforms.CoverageMessage)
			}
			if err != nil {
				return err
			}
			coverage, _ := settings.Coverage(args)
			for _, d := range display.All {
				if names := coverage[d]; len(names) > 0 {
					fmt.Fprintf(out, "%s: %s\n", displayLabel(d), strings.Join(names, ", "))
				}
			}
			fmt.Fprintln(out, "Ready to go live")
			return nil
		},
	}
	cmd.Flags().BoolVar(&singleOutput, "single-output", false, "Check for a single output broadcast")
	return cmd
}
