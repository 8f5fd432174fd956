package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

// SQLiteGateway persists tool lists to a SQLite database, one row per tool.
type SQLiteGateway struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteGateway opens (or creates) the database and runs migrations.
func NewSQLiteGateway(dbPath string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so UI-side readers don't block engine saves.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	g := &SQLiteGateway{db: db}
	if err := g.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite tool store opened", "path", dbPath)
	return g, nil
}

func (g *SQLiteGateway) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tools (
			symbol     TEXT NOT NULL,
			timeframe  TEXT NOT NULL,
			tool_id    TEXT NOT NULL,
			position   INTEGER NOT NULL,
			payload    TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, timeframe, tool_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tools_key ON tools(symbol, timeframe)`,
	}
	for _, s := range stmts {
		if _, err := g.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

// Load reads the tool list for a key in insertion order. Malformed rows are
// dropped with a warning, never fatal.
func (g *SQLiteGateway) Load(ctx context.Context, key Key) ([]*tool.Tool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, err := g.db.QueryContext(ctx,
		`SELECT payload FROM tools WHERE symbol = ? AND timeframe = ? ORDER BY position`,
		key.Symbol, key.Timeframe)
	if err != nil {
		return nil, tool.NewError(tool.CodePersistence, "load tools "+key.String(), err)
	}
	defer rows.Close()

	var tools []*tool.Tool
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, tool.NewError(tool.CodePersistence, "scan tool row", err)
		}
		var t tool.Tool
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			slog.Warn("dropping unreadable tool row", "key", key.String(), "error", err)
			continue
		}
		if err := t.Validate(); err != nil {
			slog.Warn("dropping malformed tool row",
				"key", key.String(), "id", t.ID, "error", err)
			continue
		}
		tools = append(tools, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, tool.NewError(tool.CodePersistence, "iterate tool rows", err)
	}
	return tools, nil
}

// Save replaces the key's rows with the given list. The delete and inserts
// are deliberately not one transaction: a partial failure leaves stale rows
// behind rather than corrupting the caller's local state, and the next save
// rewrites them.
func (g *SQLiteGateway) Save(ctx context.Context, key Key, tools []*tool.Tool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.db.ExecContext(ctx,
		`DELETE FROM tools WHERE symbol = ? AND timeframe = ?`,
		key.Symbol, key.Timeframe); err != nil {
		return tool.NewError(tool.CodePersistence, "clear tools "+key.String(), err)
	}

	var firstErr error
	for i, t := range tools {
		payload, err := json.Marshal(t)
		if err != nil {
			slog.Error("failed to marshal tool", "id", t.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := g.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO tools (symbol, timeframe, tool_id, position, payload, updated_at)
			 VALUES (?,?,?,?,?,?)`,
			key.Symbol, key.Timeframe, t.ID, i, string(payload), t.UpdatedAt.Unix()); err != nil {
			slog.Error("failed to write tool row", "key", key.String(), "id", t.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return tool.NewError(tool.CodePersistence, "save tools "+key.String(), firstErr)
	}
	return nil
}

func (g *SQLiteGateway) Close() error {
	slog.Info("closing sqlite tool store")
	return g.db.Close()
}
