package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"dualout/internal/session"
)

const defaultWatchDebounce = 300 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var format, id string
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-import and repair a collection document whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve document path: %w", err)
			}
			collectionID := strings.TrimSpace(id)
			out := cmd.OutOrStdout()

			reimport := func() error {
				doc, err := readDocument(path, format)
				if err != nil {
					return err
				}
				if collectionID != "" {
					doc.ID = collectionID
				}
				return ctx.withSession(cmd, func(c context.Context, s *session.Session) error {
					saved, loaded, err := s.Import(c, doc)
					if err != nil {
						return err
					}
					collectionID = saved.ID
					fmt.Fprintf(out, "%s imported %s (%s): %d nodes\n",
						time.Now().Format(time.TimeOnly), saved.Name, saved.ID, saved.NodeCount())
					if loaded.Changed() || len(loaded.Failures) > 0 {
						printResult(out, "Repaired", loaded)
					}
					return nil
				})
			}

			if err := reimport(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %s\n", path)
			return watchDocument(commandCtx(cmd), path, debounce, reimport, func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Document format (json or yaml); defaults to the file extension")
	cmd.Flags().StringVar(&id, "id", "", "Collection id to import into")
	cmd.Flags().DurationVar(&debounce, "debounce", defaultWatchDebounce, "Quiet period before re-importing")
	return cmd
}

// watchDocument calls onChange after path settles following a write, create or
// rename. The parent directory is watched so editors that replace the file are
// followed. It returns when ctx is done.
func watchDocument(ctx context.Context, path string, debounce time.Duration, onChange func() error, onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		case <-timer.C:
			if err := onChange(); err != nil {
				onError(err)
			}
		}
	}
}
