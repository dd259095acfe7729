package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestRun inserts a run with minimal fields and returns it with ID set.
func insertTestRun(t *testing.T, s *Store, project, kind string, started time.Time) *Run {
	t.Helper()
	r := &Run{Kind: kind, ProjectPath: project, StartedAt: started}
	id, err := s.InsertRun(r)
	require.NoError(t, err)
	require.Positive(t, id)
	return r
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"runs", "issues", "connections", "moves", "edits"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Run operations
// =============================================================================

func TestRun_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	r := &Run{
		Kind: RunAnalyze, ProjectPath: "/game", StartedAt: now,
		FormatVersion: ptr(5), IssueCount: 3, ErrorCount: 1, Fingerprint: "abc",
	}
	id, err := s.InsertRun(r)
	require.NoError(t, err)

	got, err := s.RunByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunAnalyze, got.Kind)
	assert.Equal(t, "/game", got.ProjectPath)
	assert.True(t, now.Equal(got.StartedAt))
	require.NotNil(t, got.FormatVersion)
	assert.Equal(t, 5, *got.FormatVersion)
	assert.Equal(t, 3, got.IssueCount)
	assert.Equal(t, 1, got.ErrorCount)
	assert.Equal(t, "abc", got.Fingerprint)
}

func TestRun_NullableColumns(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	r := insertTestRun(t, s, "/game", RunApply, time.Now())

	got, err := s.RunByID(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.FormatVersion)
	assert.Empty(t, got.Fingerprint)
}

func TestRun_ByIDNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.RunByID(42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRuns_NewestFirstWithLimitAndProject(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)
	r1 := insertTestRun(t, s, "/a", RunAnalyze, base)
	r2 := insertTestRun(t, s, "/a", RunAnalyze, base.Add(time.Minute))
	r3 := insertTestRun(t, s, "/b", RunAnalyze, base.Add(2*time.Minute))

	all, err := s.Runs("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{r3.ID, r2.ID, r1.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	limited, err := s.Runs("", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, r3.ID, limited[0].ID)

	onlyA, err := s.Runs("/a", 0)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, r2.ID, onlyA[0].ID)
}

func TestLatestRun(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)
	insertTestRun(t, s, "/a", RunAnalyze, base)
	latest := insertTestRun(t, s, "/a", RunAnalyze, base.Add(time.Second))
	insertTestRun(t, s, "/a", RunApply, base.Add(2*time.Second))

	got, err := s.LatestRun("/a", RunAnalyze)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, latest.ID, got.ID)

	none, err := s.LatestRun("/zzz", RunAnalyze)
	require.NoError(t, err)
	assert.Nil(t, none)
}

// =============================================================================
// Child rows
// =============================================================================

func TestIssues_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	r := insertTestRun(t, s, "/game", RunAnalyze, time.Now())

	_, err := s.InsertIssue(&Issue{RunID: r.ID, Severity: "error", Rule: "scene-validator", Message: "Missing script", File: "main.tscn", Line: 4})
	require.NoError(t, err)
	_, err = s.InsertIssue(&Issue{RunID: r.ID, Severity: "info", Rule: "godot-analyzer", Message: "No addons/ directory found"})
	require.NoError(t, err)

	issues, err := s.IssuesByRun(r.ID)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "main.tscn", issues[0].File)
	assert.Equal(t, 4, issues[0].Line)
	assert.Empty(t, issues[1].File)
	assert.Zero(t, issues[1].Line)
}

func TestConnectionsMovesEdits_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	r := insertTestRun(t, s, "/game", RunApply, time.Now())

	_, err := s.InsertConnection(&Connection{RunID: r.ID, Scene: "main.tscn", From: "Button", To: ".", Signal: "pressed", Method: "_on_pressed"})
	require.NoError(t, err)
	_, err = s.InsertMove(&Move{RunID: r.ID, From: "res://a.gd", To: "res://scripts/a.gd"})
	require.NoError(t, err)
	_, err = s.InsertEdit(&Edit{RunID: r.ID, File: "main.tscn", Kind: "ext_resource", Replacements: 2})
	require.NoError(t, err)

	conns, err := s.ConnectionsByRun(r.ID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "Button", conns[0].From)
	assert.Equal(t, "_on_pressed", conns[0].Method)

	moves, err := s.MovesByRun(r.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "res://scripts/a.gd", moves[0].To)

	edits, err := s.EditsByRun(r.ID)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, 2, edits[0].Replacements)
}

// =============================================================================
// Batching
// =============================================================================

func TestCommitBatch_WritesRunAndRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	b := NewBatch()
	id, err := b.InsertIssue(&Issue{Severity: "warn", Rule: "godot-analyzer", Message: "Missing project.godot", File: "project.godot"})
	require.NoError(t, err)
	assert.Negative(t, id)
	_, err = b.InsertConnection(&Connection{Scene: "main.tscn", From: "A", To: "B", Signal: "s", Method: "m"})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())

	run := &Run{Kind: RunAnalyze, ProjectPath: "/game", StartedAt: time.Now(), IssueCount: 1}
	require.NoError(t, s.CommitBatch(run, b))
	require.Positive(t, run.ID)

	issues, err := s.IssuesByRun(run.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, run.ID, issues[0].RunID)
	assert.Positive(t, issues[0].ID)

	conns, err := s.ConnectionsByRun(run.ID)
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestBatch_ConcurrentInserts(t *testing.T) {
	t.Parallel()
	b := NewBatch()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = b.InsertIssue(&Issue{Severity: "info", Rule: "r", Message: "m"})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, b.Issues, 200)
	seen := make(map[int64]bool)
	for _, i := range b.Issues {
		assert.False(t, seen[i.ID], "duplicate fake id %d", i.ID)
		seen[i.ID] = true
	}
}

// =============================================================================
// Deletion
// =============================================================================

func TestDeleteRun_RemovesChildren(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	r := insertTestRun(t, s, "/game", RunApply, time.Now())
	_, err := s.InsertMove(&Move{RunID: r.ID, From: "res://a.gd", To: "res://scripts/a.gd"})
	require.NoError(t, err)
	_, err = s.InsertIssue(&Issue{RunID: r.ID, Severity: "info", Rule: "r", Message: "m"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(r.ID))

	got, err := s.RunByID(r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	moves, err := s.MovesByRun(r.ID)
	require.NoError(t, err)
	assert.Empty(t, moves)
	issues, err := s.IssuesByRun(r.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPruneRuns_KeepsNewest(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)
	old := insertTestRun(t, s, "/a", RunAnalyze, base)
	_, err := s.InsertIssue(&Issue{RunID: old.ID, Severity: "info", Rule: "r", Message: "m"})
	require.NoError(t, err)
	mid := insertTestRun(t, s, "/a", RunAnalyze, base.Add(time.Minute))
	newest := insertTestRun(t, s, "/a", RunAnalyze, base.Add(2*time.Minute))
	other := insertTestRun(t, s, "/b", RunAnalyze, base)

	n, err := s.PruneRuns("/a", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := s.Runs("", 0)
	require.NoError(t, err)
	var ids []int64
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []int64{mid.ID, newest.ID, other.ID}, ids)

	issues, err := s.IssuesByRun(old.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)

	n, err = s.PruneRuns("/a", 5)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// Fingerprints
// =============================================================================

func TestComputeFingerprint_OrderIndependent(t *testing.T) {
	t.Parallel()
	a := Issue{Severity: "error", Rule: "r", Message: "one", File: "a.tscn", Line: 1}
	b := Issue{Severity: "warn", Rule: "r", Message: "two"}

	assert.Equal(t, ComputeFingerprint([]Issue{a, b}), ComputeFingerprint([]Issue{b, a}))
	assert.NotEqual(t, ComputeFingerprint([]Issue{a}), ComputeFingerprint([]Issue{b}))
	assert.Len(t, ComputeFingerprint(nil), 64)
}
