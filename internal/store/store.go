package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the analysis history.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  project_path    TEXT NOT NULL,
  started_at      TIMESTAMP NOT NULL,
  format_version  INTEGER,
  issue_count     INTEGER NOT NULL DEFAULT 0,
  error_count     INTEGER NOT NULL DEFAULT 0,
  fingerprint     TEXT
);

CREATE TABLE IF NOT EXISTS issues (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  severity        TEXT NOT NULL,
  rule            TEXT NOT NULL,
  message         TEXT NOT NULL,
  file            TEXT,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS connections (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  scene           TEXT NOT NULL,
  from_node       TEXT NOT NULL,
  to_node         TEXT NOT NULL,
  signal          TEXT NOT NULL,
  method          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS moves (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  from_uri        TEXT NOT NULL,
  to_uri          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS edits (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  file            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  replacements    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_path);
CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id);
CREATE INDEX IF NOT EXISTS idx_issues_file ON issues(file);
CREATE INDEX IF NOT EXISTS idx_connections_run ON connections(run_id);
CREATE INDEX IF NOT EXISTS idx_connections_scene ON connections(scene);
CREATE INDEX IF NOT EXISTS idx_moves_run ON moves(run_id);
CREATE INDEX IF NOT EXISTS idx_edits_run ON edits(run_id);
`

// DeleteRun transactionally removes a run and everything recorded with it.
// Children are deleted explicitly so the result does not depend on the
// foreign_keys pragma.
func (s *Store) DeleteRun(runID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM edits WHERE run_id = ?",
		"DELETE FROM moves WHERE run_id = ?",
		"DELETE FROM connections WHERE run_id = ?",
		"DELETE FROM issues WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err := tx.Exec(q, runID); err != nil {
			return fmt.Errorf("delete run %d: %w", runID, err)
		}
	}
	return tx.Commit()
}

// PruneRuns keeps the newest keep runs of projectPath and deletes the rest.
// Returns the number of runs removed.
func (s *Store) PruneRuns(projectPath string, keep int) (int, error) {
	rows, err := s.db.Query(
		"SELECT id FROM runs WHERE project_path = ? ORDER BY started_at DESC, id DESC LIMIT -1 OFFSET ?",
		projectPath, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := placeholderList(len(ids))
	args := int64sToArgs(ids)
	for _, q := range []string{
		"DELETE FROM edits WHERE run_id IN (" + placeholders + ")",
		"DELETE FROM moves WHERE run_id IN (" + placeholders + ")",
		"DELETE FROM connections WHERE run_id IN (" + placeholders + ")",
		"DELETE FROM issues WHERE run_id IN (" + placeholders + ")",
		"DELETE FROM runs WHERE id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return 0, fmt.Errorf("prune runs: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune runs: commit: %w", err)
	}
	return len(ids), nil
}
