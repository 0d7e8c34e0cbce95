// Package store persists graph definitions between editing sessions.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ruleforge/ruleforge/graph"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// ErrGraphNotFound is returned when no graph is saved under the name.
var ErrGraphNotFound = errors.New("graph not found")

// GraphInfo summarizes one saved graph without loading its definition.
type GraphInfo struct {
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SQLiteStore persists graph definitions in a SQLite database, keyed by
// name. Saving under an existing name replaces the stored definition.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) a SQLite-backed graph store.
func Open(dsn string, log zerolog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("graph store: dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("graph store: open: %w", err)
	}

	// WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graph store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graph store: create schema: %w", err)
	}

	log.Debug().Str("dsn", dsn).Msg("graph store opened")
	return &SQLiteStore{db: db, log: log}, nil
}

// Save upserts a graph definition under the given name.
func (s *SQLiteStore) Save(ctx context.Context, name string, gd *graph.GraphDefinition) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("graph store: name is required")
	}
	payload, err := json.Marshal(gd)
	if err != nil {
		return fmt.Errorf("graph store: marshal definition: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO graphs (name, definition, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`,
		name, payload, now, now,
	)
	if err != nil {
		return fmt.Errorf("graph store: save %q: %w", name, err)
	}

	s.log.Debug().Str("graph", name).Int("bytes", len(payload)).Msg("graph saved")
	return nil
}

// Load returns the definition saved under the given name.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*graph.GraphDefinition, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM graphs WHERE name = ?`, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph store: %w: %s", ErrGraphNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("graph store: load %q: %w", name, err)
	}

	var gd graph.GraphDefinition
	if err := json.Unmarshal(payload, &gd); err != nil {
		return nil, fmt.Errorf("graph store: unmarshal %q: %w", name, err)
	}
	return &gd, nil
}

// List returns summaries of every saved graph, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]GraphInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, created_at, updated_at
FROM graphs
ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("graph store: list: %w", err)
	}
	defer rows.Close()

	var infos []GraphInfo
	for rows.Next() {
		var (
			info      GraphInfo
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&info.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("graph store: scan: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("graph store: parse created_at: %w", err)
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("graph store: parse updated_at: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the graph saved under the given name.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("graph store: delete %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("graph store: delete affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("graph store: %w: %s", ErrGraphNotFound, name)
	}
	s.log.Debug().Str("graph", name).Msg("graph deleted")
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
