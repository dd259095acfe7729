package store

import "fmt"

// CommitBatch inserts run and every row buffered in batch within a single
// transaction. The run's ID is set on success; buffered rows are written
// with that ID regardless of the RunID they were recorded with.
func (s *Store) CommitBatch(run *Run, batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	runID, err := insertRunTx(tx, run)
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	for _, i := range batch.Issues {
		i.RunID = runID
		if _, err := insertIssueTx(tx, &i); err != nil {
			return fmt.Errorf("commit batch: issue %q: %w", i.Message, err)
		}
	}
	for _, c := range batch.Connections {
		c.RunID = runID
		if _, err := insertConnectionTx(tx, &c); err != nil {
			return fmt.Errorf("commit batch: connection %s: %w", c.Scene, err)
		}
	}
	for _, m := range batch.Moves {
		m.RunID = runID
		if _, err := insertMoveTx(tx, &m); err != nil {
			return fmt.Errorf("commit batch: move %s: %w", m.From, err)
		}
	}
	for _, e := range batch.Edits {
		e.RunID = runID
		if _, err := insertEditTx(tx, &e); err != nil {
			return fmt.Errorf("commit batch: edit %s: %w", e.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	run.ID = runID
	return nil
}
