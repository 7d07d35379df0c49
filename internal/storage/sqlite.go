package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/itsbohara/anchor/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS refs (
	position       INTEGER NOT NULL,
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	path           TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT 'folder',
	status         TEXT NOT NULL DEFAULT 'active',
	tags           TEXT NOT NULL DEFAULT '[]',
	description    TEXT,
	created_at     TEXT NOT NULL DEFAULT '',
	last_opened_at TEXT NOT NULL DEFAULT '',
	pinned         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_refs_position ON refs(position);
`

// SQLite implements Provider on a SQLite database. Row order is kept in
// the position column so Load returns the same order Save received.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Load returns every row ordered by position.
func (s *SQLite) Load() ([]models.Reference, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, path, type, status, tags, description, created_at, last_opened_at, pinned
		FROM refs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	defer rows.Close()

	out := []models.Reference{}
	for rows.Next() {
		var (
			r        models.Reference
			tagsJSON string
			desc     sql.NullString
			pinned   int
		)
		if err := rows.Scan(&r.ID, &r.ReferenceName, &r.AbsolutePath, &r.Type, &r.Status,
			&tagsJSON, &desc, &r.CreatedAt, &r.LastOpenedAt, &pinned); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil || r.Tags == nil {
			r.Tags = []string{}
		}
		if desc.Valid {
			d := desc.String
			r.Description = &d
		}
		r.Pinned = pinned != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Save replaces the table contents within a transaction.
func (s *SQLite) Save(refs []models.Reference) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM refs`); err != nil {
		return fmt.Errorf("storage: clear: %w", err)
	}
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO refs (position, id, name, path, type, status, tags, description, created_at, last_opened_at, pinned)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range refs {
			tags := r.Tags
			if tags == nil {
				tags = []string{}
			}
			tagsJSON, _ := json.Marshal(tags)
			var desc sql.NullString
			if r.Description != nil {
				desc = sql.NullString{String: *r.Description, Valid: true}
			}
			pinned := 0
			if r.Pinned {
				pinned = 1
			}
			if _, err := stmt.Exec(i, r.ID, r.ReferenceName, r.AbsolutePath, string(r.Type), string(r.Status),
				string(tagsJSON), desc, r.CreatedAt, r.LastOpenedAt, pinned); err != nil {
				return fmt.Errorf("storage: insert %s: %w", r.ID, err)
			}
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
