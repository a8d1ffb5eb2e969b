package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dualout/internal/collection"
	"dualout/internal/fileutil"
	"dualout/internal/session"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Import, export and list scene collections",
	}
	cmd.AddCommand(newCollectionImportCommand(ctx))
	cmd.AddCommand(newCollectionExportCommand(ctx))
	cmd.AddCommand(newCollectionListCommand(ctx))
	cmd.AddCommand(newCollectionDeleteCommand(ctx))
	return cmd
}

func readDocument(path, format string) (*collection.Document, error) {
	f := collection.FormatFromPath(path)
	if strings.TrimSpace(format) != "" {
		parsed, err := collection.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		f = parsed
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer file.Close()
	return collection.Decode(file, f)
}

func newCollectionImportCommand(ctx *commandContext) *cobra.Command {
	var format, name, id string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a collection document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], format)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) != "" {
				doc.Name = strings.TrimSpace(name)
			}
			if strings.TrimSpace(id) != "" {
				doc.ID = strings.TrimSpace(id)
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				saved, loaded, err := s.Import(c, doc)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %s (%s): %d scenes, %d nodes\n", saved.Name, saved.ID, len(saved.Scenes), saved.NodeCount())
				if loaded.Changed() || len(loaded.Failures) > 0 {
					printResult(out, "Repaired on import", loaded)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Document format (json or yaml); defaults to the file extension")
	cmd.Flags().StringVar(&name, "name", "", "Override the collection name")
	cmd.Flags().StringVar(&id, "id", "", "Import under this collection id, replacing any existing one")
	return cmd
}

func newCollectionExportCommand(ctx *commandContext) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <collection-id>",
		Short: "Write a collection document to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := collection.ParseFormat(format)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				doc, err := s.Store().Load(c, args[0])
				if err != nil {
					return err
				}
				if strings.TrimSpace(output) == "" {
					return collection.Encode(cmd.OutOrStdout(), doc, f)
				}
				data, err := collection.Marshal(doc, f)
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(output, data, 0o644); err != nil {
					return fmt.Errorf("write document: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", doc.ID, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Document format (json or yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newCollectionListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				list, err := s.Store().List(c)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No collections")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, sum := range list {
					rows = append(rows, []string{
						sum.ID,
						sum.Name,
						yesNo(sum.DualOutputMode),
						strconv.Itoa(sum.Scenes),
						strconv.Itoa(sum.Nodes),
						strconv.Itoa(sum.MappedScenes),
						sum.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Dual Output", "Scenes", "Nodes", "Mapped", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCollectionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a stored collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
				if err := s.Store().Delete(c, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
