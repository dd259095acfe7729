package store

import (
	"database/sql"
	"fmt"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func lastID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// --- Run operations ---

func (s *Store) InsertRun(r *Run) (int64, error) {
	id, err := insertRunTx(s.db, r)
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

func insertRunTx(ex execer, r *Run) (int64, error) {
	var version any
	if r.FormatVersion != nil {
		version = *r.FormatVersion
	}
	res, err := ex.Exec(
		"INSERT INTO runs (kind, project_path, started_at, format_version, issue_count, error_count, fingerprint) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.Kind, r.ProjectPath, r.StartedAt, version, r.IssueCount, r.ErrorCount, nullString(r.Fingerprint),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return lastID(res)
}

const runColumns = "id, kind, project_path, started_at, format_version, issue_count, error_count, fingerprint"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var version sql.NullInt64
	var fingerprint sql.NullString
	if err := row.Scan(&r.ID, &r.Kind, &r.ProjectPath, &r.StartedAt, &version, &r.IssueCount, &r.ErrorCount, &fingerprint); err != nil {
		return nil, err
	}
	if version.Valid {
		v := int(version.Int64)
		r.FormatVersion = &v
	}
	r.Fingerprint = fingerprint.String
	return r, nil
}

// RunByID returns the run with id, or nil when there is none.
func (s *Store) RunByID(id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// Runs returns the newest runs first. projectPath "" matches every
// project; limit <= 0 means no limit.
func (s *Store) Runs(projectPath string, limit int) ([]*Run, error) {
	q := "SELECT " + runColumns + " FROM runs"
	var args []any
	if projectPath != "" {
		q += " WHERE project_path = ?"
		args = append(args, projectPath)
	}
	q += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run of kind for projectPath, or nil.
func (s *Store) LatestRun(projectPath, kind string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE project_path = ? AND kind = ? ORDER BY started_at DESC, id DESC LIMIT 1",
		projectPath, kind,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// --- Issue operations ---

func (s *Store) InsertIssue(i *Issue) (int64, error) {
	id, err := insertIssueTx(s.db, i)
	if err != nil {
		return 0, err
	}
	i.ID = id
	return id, nil
}

func insertIssueTx(ex execer, i *Issue) (int64, error) {
	res, err := ex.Exec(
		"INSERT INTO issues (run_id, severity, rule, message, file, line) VALUES (?, ?, ?, ?, ?, ?)",
		i.RunID, i.Severity, i.Rule, i.Message, nullString(i.File), nullInt(i.Line),
	)
	if err != nil {
		return 0, fmt.Errorf("insert issue: %w", err)
	}
	return lastID(res)
}

// IssuesByRun returns a run's issues in insertion order.
func (s *Store) IssuesByRun(runID int64) ([]*Issue, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, severity, rule, message, file, line FROM issues WHERE run_id = ? ORDER BY id", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("issues by run: %w", err)
	}
	defer rows.Close()
	var out []*Issue
	for rows.Next() {
		i := &Issue{}
		var file sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&i.ID, &i.RunID, &i.Severity, &i.Rule, &i.Message, &file, &line); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		i.File = file.String
		i.Line = int(line.Int64)
		out = append(out, i)
	}
	return out, rows.Err()
}

// --- Connection operations ---

func (s *Store) InsertConnection(c *Connection) (int64, error) {
	id, err := insertConnectionTx(s.db, c)
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func insertConnectionTx(ex execer, c *Connection) (int64, error) {
	res, err := ex.Exec(
		"INSERT INTO connections (run_id, scene, from_node, to_node, signal, method) VALUES (?, ?, ?, ?, ?, ?)",
		c.RunID, c.Scene, c.From, c.To, c.Signal, c.Method,
	)
	if err != nil {
		return 0, fmt.Errorf("insert connection: %w", err)
	}
	return lastID(res)
}

// ConnectionsByRun returns a run's connections in insertion order.
func (s *Store) ConnectionsByRun(runID int64) ([]*Connection, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, scene, from_node, to_node, signal, method FROM connections WHERE run_id = ? ORDER BY id", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("connections by run: %w", err)
	}
	defer rows.Close()
	var out []*Connection
	for rows.Next() {
		c := &Connection{}
		if err := rows.Scan(&c.ID, &c.RunID, &c.Scene, &c.From, &c.To, &c.Signal, &c.Method); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Move and edit operations ---

func (s *Store) InsertMove(m *Move) (int64, error) {
	id, err := insertMoveTx(s.db, m)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func insertMoveTx(ex execer, m *Move) (int64, error) {
	res, err := ex.Exec("INSERT INTO moves (run_id, from_uri, to_uri) VALUES (?, ?, ?)", m.RunID, m.From, m.To)
	if err != nil {
		return 0, fmt.Errorf("insert move: %w", err)
	}
	return lastID(res)
}

// MovesByRun returns a run's moves in insertion order.
func (s *Store) MovesByRun(runID int64) ([]*Move, error) {
	rows, err := s.db.Query("SELECT id, run_id, from_uri, to_uri FROM moves WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("moves by run: %w", err)
	}
	defer rows.Close()
	var out []*Move
	for rows.Next() {
		m := &Move{}
		if err := rows.Scan(&m.ID, &m.RunID, &m.From, &m.To); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) InsertEdit(e *Edit) (int64, error) {
	id, err := insertEditTx(s.db, e)
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

func insertEditTx(ex execer, e *Edit) (int64, error) {
	res, err := ex.Exec(
		"INSERT INTO edits (run_id, file, kind, replacements) VALUES (?, ?, ?, ?)",
		e.RunID, e.File, e.Kind, e.Replacements,
	)
	if err != nil {
		return 0, fmt.Errorf("insert edit: %w", err)
	}
	return lastID(res)
}

// EditsByRun returns a run's edits in insertion order.
func (s *Store) EditsByRun(runID int64) ([]*Edit, error) {
	rows, err := s.db.Query("SELECT id, run_id, file, kind, replacements FROM edits WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("edits by run: %w", err)
	}
	defer rows.Close()
	var out []*Edit
	for rows.Next() {
		e := &Edit{}
		if err := rows.Scan(&e.ID, &e.RunID, &e.File, &e.Kind, &e.Replacements); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
