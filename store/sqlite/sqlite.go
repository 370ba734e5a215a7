// Package sqlite provides a core.Store backed by a local SQLite file via
// modernc.org/sqlite, so servers persist agents, worlds and tool definitions
// without an external database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/aicraft/core"
)

// Store is a SQLite-backed core.Store. The connection pool is pinned to a
// single connection; SQLite handles one writer at a time and the pragmas
// below assume that.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func initPragmas(db *sql.DB) error {
	// WAL keeps readers off the writer's back; NORMAL is a reasonable
	// durability/perf tradeoff for definition data that is cheap to recreate.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			persona TEXT NOT NULL DEFAULT '',
			avatar_path TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS worlds (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			obstacles_json TEXT NOT NULL,
			items_json TEXT NOT NULL,
			start_x INTEGER NOT NULL,
			start_y INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tools (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			parameters_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// PutAgent upserts an agent record.
func (s *Store) PutAgent(ctx context.Context, a core.AgentRecord) error {
	if a.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, persona, avatar_path, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			persona = excluded.persona,
			avatar_path = excluded.avatar_path`,
		a.ID, a.Name, a.Persona, a.AvatarPath, fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("put agent %q: %w", a.ID, err)
	}
	return nil
}

// GetAgent returns an agent record or ErrNotFound.
func (s *Store) GetAgent(ctx context.Context, id string) (core.AgentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, persona, avatar_path, created_at FROM agents WHERE id = ?`, id)
	var a core.AgentRecord
	var createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.Persona, &a.AvatarPath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AgentRecord{}, fmt.Errorf("agent %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.AgentRecord{}, fmt.Errorf("get agent %q: %w", id, err)
	}
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

// ListAgents returns all agents ordered by id.
func (s *Store) ListAgents(ctx context.Context) ([]core.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, persona, avatar_path, created_at FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []core.AgentRecord
	for rows.Next() {
		var a core.AgentRecord
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.Persona, &a.AvatarPath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAgent removes an agent record; missing ids are ErrNotFound.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent %q: %w", id, err)
	}
	return requireAffected(res, "agent", id)
}

// PutWorld upserts a world definition. Obstacles and items are stored as JSON
// columns; the grid is small enough that normalizing them buys nothing.
func (s *Store) PutWorld(ctx context.Context, w core.WorldRecord) error {
	if w.ID == "" {
		return fmt.Errorf("world id is required")
	}
	obstacles, err := json.Marshal(w.Obstacles)
	if err != nil {
		return fmt.Errorf("encode obstacles: %w", err)
	}
	items, err := json.Marshal(w.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO worlds (id, name, width, height, obstacles_json, items_json, start_x, start_y, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			width = excluded.width,
			height = excluded.height,
			obstacles_json = excluded.obstacles_json,
			items_json = excluded.items_json,
			start_x = excluded.start_x,
			start_y = excluded.start_y`,
		w.ID, w.Name, w.Width, w.Height, string(obstacles), string(items),
		w.Start.X, w.Start.Y, fmtTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("put world %q: %w", w.ID, err)
	}
	return nil
}

// GetWorld returns a world definition or ErrNotFound.
func (s *Store) GetWorld(ctx context.Context, id string) (core.WorldRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, width, height, obstacles_json, items_json, start_x, start_y, created_at
		FROM worlds WHERE id = ?`, id)
	w, err := scanWorld(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorldRecord{}, fmt.Errorf("world %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.WorldRecord{}, fmt.Errorf("get world %q: %w", id, err)
	}
	return w, nil
}

// ListWorlds returns all world definitions ordered by id.
func (s *Store) ListWorlds(ctx context.Context) ([]core.WorldRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, width, height, obstacles_json, items_json, start_x, start_y, created_at
		FROM worlds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	defer rows.Close()

	var out []core.WorldRecord
	for rows.Next() {
		w, err := scanWorld(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan world: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWorld removes a world definition; missing ids are ErrNotFound.
func (s *Store) DeleteWorld(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM worlds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete world %q: %w", id, err)
	}
	return requireAffected(res, "world", id)
}

// PutTool upserts a tool definition.
func (s *Store) PutTool(ctx context.Context, t core.ToolRecord) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	params, err := json.Marshal(t.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tools (name, description, parameters_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			parameters_json = excluded.parameters_json`,
		t.Name, t.Description, string(params), fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("put tool %q: %w", t.Name, err)
	}
	return nil
}

// GetTool returns a tool definition or ErrNotFound.
func (s *Store) GetTool(ctx context.Context, name string) (core.ToolRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, description, parameters_json, created_at FROM tools WHERE name = ?`, name)
	t, err := scanTool(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ToolRecord{}, fmt.Errorf("tool %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.ToolRecord{}, fmt.Errorf("get tool %q: %w", name, err)
	}
	return t, nil
}

// ListTools returns all tool definitions ordered by name.
func (s *Store) ListTools(ctx context.Context) ([]core.ToolRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, parameters_json, created_at FROM tools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	var out []core.ToolRecord
	for rows.Next() {
		t, err := scanTool(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTool removes a tool definition; missing names are ErrNotFound.
func (s *Store) DeleteTool(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete tool %q: %w", name, err)
	}
	return requireAffected(res, "tool", name)
}

func scanWorld(scan func(dest ...any) error) (core.WorldRecord, error) {
	var w core.WorldRecord
	var obstacles, items, createdAt string
	if err := scan(&w.ID, &w.Name, &w.Width, &w.Height, &obstacles, &items,
		&w.Start.X, &w.Start.Y, &createdAt); err != nil {
		return core.WorldRecord{}, err
	}
	if err := json.Unmarshal([]byte(obstacles), &w.Obstacles); err != nil {
		return core.WorldRecord{}, fmt.Errorf("decode obstacles: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &w.Items); err != nil {
		return core.WorldRecord{}, fmt.Errorf("decode items: %w", err)
	}
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}

func scanTool(scan func(dest ...any) error) (core.ToolRecord, error) {
	var t core.ToolRecord
	var params, createdAt string
	if err := scan(&t.Name, &t.Description, &params, &createdAt); err != nil {
		return core.ToolRecord{}, err
	}
	if err := json.Unmarshal([]byte(params), &t.Parameters); err != nil {
		return core.ToolRecord{}, fmt.Errorf("decode parameters: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func requireAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", entity, id, core.ErrNotFound)
	}
	return nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ core.Store = (*Store)(nil)
