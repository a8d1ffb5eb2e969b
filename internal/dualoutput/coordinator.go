package dualoutput

import (
	"context"
	"log/slog"
	"sync"

	"dualout/internal/display"
	"dualout/internal/logging"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
	"dualout/internal/videoctx"
)

// Persister receives the node maps after an operation changed them.
type Persister interface {
	SaveNodeMaps(ctx context.Context, snapshot nodemap.Snapshot) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, snapshot nodemap.Snapshot) error

// SaveNodeMaps calls f.
func (f PersisterFunc) SaveNodeMaps(ctx context.Context, snapshot nodemap.Snapshot) error {
	return f(ctx, snapshot)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProgress registers a callback invoked once per node handled.
func WithProgress(fn func(Progress)) Option {
	return func(c *Coordinator) { c.progress = fn }
}

// WithPersister registers where node maps are saved after a lifecycle
// operation. Saving happens after the in-memory state is final; failures are
// logged and do not fail the operation.
func WithPersister(p Persister) Option {
	return func(c *Coordinator) { c.persister = p }
}

// WithLoggedIn sets the initial account state.
func WithLoggedIn(loggedIn bool) Option {
	return func(c *Coordinator) { c.loggedIn = loggedIn }
}

// Coordinator keeps horizontal and vertical nodes paired. Methods are safe to
// call from multiple goroutines; each runs to completion before the next.
type Coordinator struct {
	mu        sync.Mutex
	store     scenes.Store
	contexts  videoctx.Registry
	maps      *nodemap.Maps
	logger    *slog.Logger
	progress  func(Progress)
	persister Persister

	dualOutput         bool
	loggedIn           bool
	studioMode         bool
	selectiveRecording bool
	visible            map[display.Display]bool
	activeSceneID      string
	selection          []string
}

// New constructs a Coordinator. A nil maps value starts with no node maps.
func New(store scenes.Store, contexts videoctx.Registry, maps *nodemap.Maps, logger *slog.Logger, opts ...Option) *Coordinator {
	if maps == nil {
		maps = nodemap.New()
	}
	c := &Coordinator{
		store:    store,
		contexts: contexts,
		maps:     maps,
		logger:   logging.NewComponentLogger(logger, "dualoutput"),
		visible: map[display.Display]bool{
			display.Horizontal: true,
			display.Vertical:   true,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Maps exposes the node maps for read access.
func (c *Coordinator) Maps() *nodemap.Maps {
	return c.maps
}

// DualOutputMode reports whether dual output is on.
func (c *Coordinator) DualOutputMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dualOutput
}

// ActiveSceneID returns the active scene, or "".
func (c *Coordinator) ActiveSceneID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSceneID
}

// SetSelection replaces the selected node ids.
func (c *Coordinator) SetSelection(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = append([]string(nil), ids...)
}

// Selection returns the selected node ids.
func (c *Coordinator) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.selection...)
}

func (c *Coordinator) tick(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}

func (c *Coordinator) persist(ctx context.Context) {
	if c.persister == nil {
		return
	}
	if err := c.persister.SaveNodeMaps(ctx, c.maps.Snapshot()); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "node map save failed", "node_map_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-memory maps are current; saved copy lags until the next save"),
		)
	}
}

// contextFor returns the established context for d, establishing it on demand.
func (c *Coordinator) contextFor(d display.Display) (display.Handle, error) {
	if h, ok := c.contexts.Context(d); ok {
		return h, nil
	}
	h, err := c.contexts.Establish(d)
	if err != nil {
		return display.Handle{}, wrap(ErrContextUnavailable, "establish context", string(d), err)
	}
	return h, nil
}

// assignContext binds an item to the context of its display. It reports
// whether the store was written.
func (c *Coordinator) assignContext(n scenes.Node) (bool, error) {
	if !n.IsItem() || !n.Display.Valid() {
		return false, nil
	}
	h, err := c.contextFor(n.Display)
	if err != nil {
		return false, wrap(ErrContextUnavailable, "assign context", "node "+n.ID, err)
	}
	if n.Output == h {
		return false, nil
	}
	if err := c.store.SetOutput(n.ID, h); err != nil {
		return false, wrap(ErrLookup, "assign context", "node "+n.ID, err)
	}
	return true, nil
}

func (c *Coordinator) nodes(sceneID string) ([]scenes.Node, error) {
	nodes, err := c.store.Nodes(sceneID)
	if err != nil {
		return nil, wrap(ErrStoreUnavailable, "read nodes", "scene "+sceneID, err)
	}
	return nodes, nil
}

func (c *Coordinator) warnNode(msg, eventType, sceneID, nodeID string, err error) {
	logging.WarnWithContext(c.logger, msg, eventType,
		logging.Scene(sceneID),
		logging.Node(nodeID),
		logging.Error(err),
		logging.String(logging.FieldImpact, "node stays unpaired until the next repair pass"),
	)
}

func (c *Coordinator) logResult(msg, sceneID string, res Result) {
	attrs := []slog.Attr{
		logging.Scene(sceneID),
		logging.Int("created", res.Created),
		logging.Int("confirmed", res.Confirmed),
		logging.Int("pruned", res.Pruned),
		logging.Int("failures", len(res.Failures)),
	}
	if res.Changed() || len(res.Failures) > 0 {
		c.logger.Info(msg, logging.Args(attrs...)...)
		return
	}
	c.logger.Debug(msg, logging.Args(attrs...)...)
}
