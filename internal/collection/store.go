package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dualout/internal/config"
	"dualout/internal/nodemap"
	"dualout/internal/scenes"
)

var (
	// ErrNotFound indicates no collection has the requested id.
	ErrNotFound = errors.New("collection not found")
	// ErrSchemaMismatch indicates the database was written by a newer build.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store manages collection persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Summary describes a stored collection without its nodes.
type Summary struct {
	ID             string
	Name           string
	DualOutputMode bool
	ActiveSceneID  string
	Scenes         int
	Nodes          int
	MappedScenes   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Open initializes or connects to the collection database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes doc, replacing any stored collection with the same id. A
// document without an id is assigned one. Node ids must be unique within the
// collection, which documents produced by Capture guarantee; node map entries
// that break the pairing rules are dropped.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("save collection: document is nil")
	}
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (id, name, dual_output_mode, active_scene_id, has_node_map, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             name = excluded.name,
             dual_output_mode = excluded.dual_output_mode,
             active_scene_id = excluded.active_scene_id,
             has_node_map = excluded.has_node_map,
             updated_at = excluded.updated_at`,
		doc.ID,
		doc.Name,
		boolToInt(doc.DualOutputMode),
		nullableString(doc.ActiveSceneID),
		boolToInt(doc.NodeMap != nil),
		now,
		now,
	); err != nil {
		return fmt.Errorf("upsert collection: %w", err)
	}

	for _, table := range []string{"nodes", "scenes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE collection_id = ?", doc.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, scene := range doc.Scenes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scenes (collection_id, id, name, position) VALUES (?, ?, ?, ?)`,
			doc.ID, scene.ID, scene.Name, i,
		); err != nil {
			return fmt.Errorf("insert scene %s: %w", scene.ID, err)
		}
		for j, node := range scene.Nodes {
			if err := insertNode(ctx, tx, doc.ID, scene.ID, j, node); err != nil {
				return err
			}
		}
	}
	snapshot := doc.Snapshot()
	if snapshot != nil {
		maps, _ := nodemap.FromSnapshot(snapshot)
		snapshot = maps.Snapshot()
	}
	if err := replaceNodeMaps(ctx, tx, doc.ID, snapshot); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit collection: %w", err)
	}
	return nil
}

func insertNode(ctx context.Context, tx *sql.Tx, collectionID, sceneID string, position int, node NodeDoc) error {
	transform, err := json.Marshal(node.Transform)
	if err != nil {
		return fmt.Errorf("marshal transform for %s: %w", node.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (
            collection_id, scene_id, id, position, node_type, name,
            parent_id, source_id, transform_json, visible, locked, display
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		collectionID,
		sceneID,
		node.ID,
		position,
		string(node.Type),
		node.Name,
		nullableString(node.ParentID),
		nullableString(node.SourceID),
		string(transform),
		boolToInt(node.Visible),
		boolToInt(node.Locked),
		nullableString(node.Display),
	); err != nil {
		return fmt.Errorf("insert node %s: %w", node.ID, err)
	}
	return nil
}

func replaceNodeMaps(ctx context.Context, tx *sql.Tx, collectionID string, snapshot nodemap.Snapshot) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM node_maps WHERE collection_id = ?", collectionID); err != nil {
		return fmt.Errorf("clear node maps: %w", err)
	}
	for sceneID, entries := range snapshot {
		for h, v := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO node_maps (collection_id, scene_id, horizontal_id, vertical_id) VALUES (?, ?, ?, ?)`,
				collectionID, sceneID, h, v,
			); err != nil {
				return fmt.Errorf("insert node map %s/%s: %w", sceneID, h, err)
			}
		}
	}
	return nil
}

// SaveNodeMaps replaces only the node map rows of a stored collection.
func (s *Store) SaveNodeMaps(ctx context.Context, collectionID string, snapshot nodemap.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin node map tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE collections SET has_node_map = ?, updated_at = ? WHERE id = ?`,
		boolToInt(len(snapshot) > 0),
		time.Now().UTC().Format(time.RFC3339Nano),
		collectionID,
	)
	if err != nil {
		return fmt.Errorf("touch collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, collectionID)
	}
	if err := replaceNodeMaps(ctx, tx, collectionID, snapshot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit node maps: %w", err)
	}
	return nil
}

// Load reads a collection by id.
func (s *Store) Load(ctx context.Context, id string) (*Document, error) {
	var (
		doc        Document
		dualOutput int
		active     sql.NullString
		hasNodeMap int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, dual_output_mode, active_scene_id, has_node_map FROM collections WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Name, &dualOutput, &active, &hasNodeMap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	doc.DualOutputMode = dualOutput != 0
	doc.ActiveSceneID = active.String

	sceneIndex, err := s.loadScenes(ctx, &doc)
	if err != nil {
		return nil, err
	}
	if err := s.loadNodes(ctx, &doc, sceneIndex); err != nil {
		return nil, err
	}
	if hasNodeMap != 0 {
		snapshot, err := s.loadNodeMaps(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.NodeMap = &NodeMapDoc{SceneNodeMaps: snapshot}
	}
	return &doc, nil
}

func (s *Store) loadScenes(ctx context.Context, doc *Document) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM scenes WHERE collection_id = ? ORDER BY position`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load scenes: %w", err)
	}
	defer rows.Close()
	index := map[string]int{}
	for rows.Next() {
		var scene SceneDoc
		if err := rows.Scan(&scene.ID, &scene.Name); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		index[scene.ID] = len(doc.Scenes)
		scene.Nodes = []NodeDoc{}
		doc.Scenes = append(doc.Scenes, scene)
	}
	return index, rows.Err()
}

func (s *Store) loadNodes(ctx context.Context, doc *Document, sceneIndex map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scene_id, id, node_type, name, parent_id, source_id, transform_json, visible, locked, display
         FROM nodes WHERE collection_id = ? ORDER BY scene_id, position`, doc.ID)
	if err != nil {
		return fmt.Errorf("load nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sceneID   string
			node      NodeDoc
			nodeType  string
			parentID  sql.NullString
			sourceID  sql.NullString
			transform sql.NullString
			visible   int
			locked    int
			disp      sql.NullString
		)
		if err := rows.Scan(&sceneID, &node.ID, &nodeType, &node.Name, &parentID, &sourceID,
			&transform, &visible, &locked, &disp); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		node.Type = scenes.NodeType(nodeType)
		node.ParentID = parentID.String
		node.SourceID = sourceID.String
		node.Visible = visible != 0
		node.Locked = locked != 0
		node.Display = disp.String
		if transform.Valid && transform.String != "" {
			if err := json.Unmarshal([]byte(transform.String), &node.Transform); err != nil {
				return fmt.Errorf("decode transform for %s: %w", node.ID, err)
			}
		}
		i, ok := sceneIndex[sceneID]
		if !ok {
			continue
		}
		doc.Scenes[i].Nodes = append(doc.Scenes[i].Nodes, node)
	}
	return rows.Err()
}

func (s *Store) loadNodeMaps(ctx context.Context, collectionID string) (nodemap.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scene_id, horizontal_id, vertical_id FROM node_maps WHERE collection_id = ?`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("load node maps: %w", err)
	}
	defer rows.Close()
	snapshot := nodemap.Snapshot{}
	for rows.Next() {
		var sceneID, h, v string
		if err := rows.Scan(&sceneID, &h, &v); err != nil {
			return nil, fmt.Errorf("scan node map: %w", err)
		}
		if snapshot[sceneID] == nil {
			snapshot[sceneID] = map[string]string{}
		}
		snapshot[sceneID][h] = v
	}
	return snapshot, rows.Err()
}

// List returns every stored collection ordered by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT c.id, c.name, c.dual_output_mode, c.active_scene_id, c.created_at, c.updated_at,
            (SELECT COUNT(1) FROM scenes s WHERE s.collection_id = c.id),
            (SELECT COUNT(1) FROM nodes n WHERE n.collection_id = c.id),
            (SELECT COUNT(DISTINCT m.scene_id) FROM node_maps m WHERE m.collection_id = c.id)
        FROM collections c
        ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum        Summary
			dualOutput int
			active     sql.NullString
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &dualOutput, &active, &createdRaw, &updatedRaw,
			&sum.Scenes, &sum.Nodes, &sum.MappedScenes); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		sum.DualOutputMode = dualOutput != 0
		sum.ActiveSceneID = active.String
		sum.CreatedAt = parseTime(createdRaw)
		sum.UpdatedAt = parseTime(updatedRaw)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a collection and everything it owns.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"node_maps", "nodes", "scenes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE collection_id = ?", id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
