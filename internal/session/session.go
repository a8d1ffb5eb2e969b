package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dualout/internal/collection"
	"dualout/internal/config"
	"dualout/internal/display"
	"dualout/internal/dualoutput"
	"dualout/internal/logging"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
	"dualout/internal/videoctx"
)

// ErrLocked indicates another process holds the data directory lock.
var ErrLocked = errors.New("another dualout session holds the data directory lock")

// Session owns the collection database for the lifetime of one command.
type Session struct {
	cfg    *config.Config
	store  *collection.Store
	lock   *flock.Flock
	logger *slog.Logger
}

// Open acquires the data directory lock and opens the collection database.
func Open(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session: config is nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, cfg.LockPath())
	}

	store, err := collection.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Session{
		cfg:    cfg,
		store:  store,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "session"),
	}, nil
}

// Close closes the database and releases the lock.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	return errors.Join(errs...)
}

// Store exposes the collection database.
func (s *Session) Store() *collection.Store {
	return s.store
}

// Editor is a collection loaded into memory.
type Editor struct {
	ID          string
	Name        string
	Scenes      *scenes.MemoryStore
	Coordinator *dualoutput.Coordinator
	// Loaded is the repair work done while restoring the collection.
	Loaded dualoutput.Result
}

// Header returns the collection fields that Capture needs.
func (e *Editor) Header() collection.Header {
	return collection.Header{
		ID:             e.ID,
		Name:           e.Name,
		DualOutputMode: e.Coordinator.DualOutputMode(),
		ActiveSceneID:  e.Coordinator.ActiveSceneID(),
	}
}

// Capture renders the editor's current state as a document.
func (e *Editor) Capture() (*collection.Document, error) {
	return collection.Capture(e.Header(), e.Scenes, e.Coordinator.Maps())
}

// Edit loads a stored collection, runs fn, and saves the result. The
// collection is saved even when fn fails so repairs made on load persist;
// fn's error is returned alongside any save error.
func (s *Session) Edit(ctx context.Context, id string, fn func(context.Context, *Editor) error) (*collection.Document, error) {
	ctx = logging.WithCollection(ctx, id)
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	editor, err := s.restore(ctx, doc)
	if err != nil {
		return nil, err
	}
	var fnErr error
	if fn != nil {
		fnErr = fn(ctx, editor)
	}
	saved, err := s.save(ctx, editor)
	return saved, errors.Join(fnErr, err)
}

// Import stores doc as a new collection, or replaces the collection with the
// same id. Duplicate ids are dropped and the node maps sanitized on the way in.
func (s *Session) Import(ctx context.Context, doc *collection.Document) (*collection.Document, dualoutput.Result, error) {
	if doc == nil {
		return nil, dualoutput.Result{}, errors.New("import: document is nil")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	ctx = logging.WithCollection(ctx, doc.ID)
	editor, err := s.restore(ctx, doc)
	if err != nil {
		return nil, dualoutput.Result{}, err
	}
	saved, err := s.save(ctx, editor)
	return saved, editor.Loaded, err
}

// View loads a collection without repairing or saving it. The coordinator is
// left in single output mode so Inspect reports the stored structure as is.
func (s *Session) View(ctx context.Context, id string) (*Editor, *collection.Document, error) {
	doc, err := s.store.Load(logging.WithCollection(ctx, id), id)
	if err != nil {
		return nil, nil, err
	}
	hydrated, err := collection.Hydrate(doc)
	if err != nil {
		return nil, nil, err
	}
	maps, _ := nodemap.FromSnapshot(hydrated.NodeMaps)
	coord := dualoutput.New(hydrated.Store, s.contexts(), maps, s.logger,
		dualoutput.WithLoggedIn(s.cfg.LoggedIn()))
	if doc.ActiveSceneID != "" {
		if _, err := coord.SwitchScene(ctx, doc.ActiveSceneID); err != nil && !errors.Is(err, dualoutput.ErrLookup) {
			return nil, nil, err
		}
	}
	return &Editor{ID: doc.ID, Name: doc.Name, Scenes: hydrated.Store, Coordinator: coord}, doc, nil
}

func (s *Session) restore(ctx context.Context, doc *collection.Document) (*Editor, error) {
	hydrated, err := collection.Hydrate(doc)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, s.logger)
	if len(hydrated.Dropped) > 0 {
		logging.WarnWithContext(logger, "duplicate ids dropped on load", "collection_sanitized",
			logging.Any("ids", hydrated.Dropped),
			logging.String(logging.FieldImpact, "repeated scenes and nodes were skipped"),
		)
	}
	if len(hydrated.Orphaned) > 0 {
		logging.WarnWithContext(logger, "nodes with missing parents moved to top level", "collection_orphans",
			logging.Any("ids", hydrated.Orphaned),
			logging.String(logging.FieldImpact, "nesting of these nodes was lost"),
		)
	}

	collectionID := doc.ID
	coord := dualoutput.New(hydrated.Store, s.contexts(), nodemap.New(), s.logger,
		dualoutput.WithLoggedIn(s.cfg.LoggedIn()),
		dualoutput.WithPersister(dualoutput.PersisterFunc(func(ctx context.Context, snapshot nodemap.Snapshot) error {
			err := s.store.SaveNodeMaps(ctx, collectionID, snapshot)
			if errors.Is(err, collection.ErrNotFound) {
				// Imported collections reach the database on save.
				return nil
			}
			return err
		})),
	)
	loaded, err := coord.LoadCollection(ctx, hydrated.NodeMaps, doc.ActiveSceneID, doc.DualOutputMode)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", doc.ID, err)
	}
	return &Editor{
		ID:          doc.ID,
		Name:        doc.Name,
		Scenes:      hydrated.Store,
		Coordinator: coord,
		Loaded:      loaded,
	}, nil
}

func (s *Session) save(ctx context.Context, editor *Editor) (*collection.Document, error) {
	doc, err := editor.Capture()
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save collection %s: %w", doc.ID, err)
	}
	logging.WithContext(ctx, s.logger).Debug("collection saved",
		logging.Int("scenes", len(doc.Scenes)),
		logging.Int("nodes", doc.NodeCount()),
		logging.Bool("dual_output", doc.DualOutputMode),
	)
	return doc, nil
}

func (s *Session) contexts() *videoctx.Memory {
	return videoctx.NewMemory(map[display.Display]videoctx.Resolution{
		display.Horizontal: {Width: s.cfg.Video.Horizontal.Width, Height: s.cfg.Video.Horizontal.Height},
		display.Vertical:   {Width: s.cfg.Video.Vertical.Width, Height: s.cfg.Video.Vertical.Height},
	})
}
