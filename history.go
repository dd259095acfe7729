package godotcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/godotcheck/internal/store"
)

// DefaultHistoryPath is where the CLI keeps history, relative to the
// project root.
const DefaultHistoryPath = ".godotcheck/history.db"

// Run is a recorded analysis or apply.
type Run = store.Run

// RunIssue is an issue recorded with a run.
type RunIssue = store.Issue

// RunConnection is a signal connection recorded with a run.
type RunConnection = store.Connection

// RunMove is a file move recorded with an apply run.
type RunMove = store.Move

// RunEdit is a reference rewrite recorded with an apply run.
type RunEdit = store.Edit

// History persists analysis results and applied structure fixes in a
// SQLite database.
type History struct {
	store *store.Store
	now   func() time.Time
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	s, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("history: %w", err)
	}
	return &History{store: s, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.store.Close()
}

// RecordAnalysis stores report and edges as one run and returns it.
func (h *History) RecordAnalysis(report *ProjectReport, edges []ConnectionEdge) (*Run, error) {
	batch := store.NewBatch()
	issues := make([]store.Issue, 0, len(report.Issues))
	errCount := 0
	for _, i := range report.Issues {
		row := store.Issue{
			Severity: i.Severity.String(),
			Rule:     string(i.Rule),
			Message:  i.Message,
			File:     i.File,
			Line:     i.Line,
		}
		if _, err := batch.InsertIssue(&row); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		issues = append(issues, row)
		if i.Severity == Error {
			errCount++
		}
	}
	for _, e := range edges {
		if _, err := batch.InsertConnection(&store.Connection{
			Scene: e.Scene, From: e.From, To: e.To, Signal: e.Signal, Method: e.Method,
		}); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}

	run := &store.Run{
		Kind:          store.RunAnalyze,
		ProjectPath:   report.ProjectPath,
		StartedAt:     h.now(),
		FormatVersion: report.FormatVersion,
		IssueCount:    len(report.Issues),
		ErrorCount:    errCount,
		Fingerprint:   store.ComputeFingerprint(issues),
	}
	if err := h.store.CommitBatch(run, batch); err != nil {
		return nil, fmt.Errorf("history: record analysis: %w", err)
	}
	return run, nil
}

// RecordApply stores the moves and edits of an applied structure fix.
func (h *History) RecordApply(root string, summary *ApplySummary) (*Run, error) {
	batch := store.NewBatch()
	for _, m := range summary.Moved {
		if _, err := batch.InsertMove(&store.Move{From: m.From, To: m.To}); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}
	for _, e := range summary.Edits {
		if _, err := batch.InsertEdit(&store.Edit{File: e.File, Kind: e.Kind, Replacements: e.Replacements}); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}
	run := &store.Run{Kind: store.RunApply, ProjectPath: root, StartedAt: h.now()}
	if err := h.store.CommitBatch(run, batch); err != nil {
		return nil, fmt.Errorf("history: record apply: %w", err)
	}
	return run, nil
}

// Runs returns up to limit runs across all projects, newest first. A
// limit of zero or less returns every run.
func (h *History) Runs(limit int) ([]*Run, error) {
	runs, err := h.store.Runs("", limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return runs, nil
}

// ProjectRuns is Runs restricted to projectPath.
func (h *History) ProjectRuns(projectPath string, limit int) ([]*Run, error) {
	runs, err := h.store.Runs(projectPath, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return runs, nil
}

// Run returns the run with id, or nil when there is none.
func (h *History) Run(id int64) (*Run, error) {
	run, err := h.store.RunByID(id)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return run, nil
}

// Latest returns the newest analysis run of projectPath, or nil.
func (h *History) Latest(projectPath string) (*Run, error) {
	run, err := h.store.LatestRun(projectPath, store.RunAnalyze)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return run, nil
}

// RunIssues returns the issues recorded with run id.
func (h *History) RunIssues(id int64) ([]*RunIssue, error) {
	issues, err := h.store.IssuesByRun(id)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return issues, nil
}

// RunConnections returns the connections recorded with run id.
func (h *History) RunConnections(id int64) ([]*RunConnection, error) {
	conns, err := h.store.ConnectionsByRun(id)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return conns, nil
}

// RunMoves returns the moves recorded with apply run id.
func (h *History) RunMoves(id int64) ([]*RunMove, error) {
	moves, err := h.store.MovesByRun(id)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return moves, nil
}

// RunEdits returns the edits recorded with apply run id.
func (h *History) RunEdits(id int64) ([]*RunEdit, error) {
	edits, err := h.store.EditsByRun(id)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return edits, nil
}

// DeleteRun removes run id and everything recorded with it.
func (h *History) DeleteRun(id int64) error {
	if err := h.store.DeleteRun(id); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// Prune keeps the newest keep runs of projectPath.
func (h *History) Prune(projectPath string, keep int) (int, error) {
	n, err := h.store.PruneRuns(projectPath, keep)
	if err != nil {
		return 0, fmt.Errorf("history: %w", err)
	}
	return n, nil
}
