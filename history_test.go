package godotcheck

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistory_RecordAnalysis(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	root := brokenProject(t)

	a := New(root, WithExcludes("vendor/**"))
	report, err := a.Analyze(context.Background())
	require.NoError(t, err)
	edges, err := a.Graph()
	require.NoError(t, err)

	run, err := h.RecordAnalysis(report, edges)
	require.NoError(t, err)
	require.Positive(t, run.ID)
	assert.Equal(t, root, run.ProjectPath)
	assert.Equal(t, len(report.Issues), run.IssueCount)
	assert.Equal(t, 4, run.ErrorCount)
	assert.Len(t, run.Fingerprint, 64)

	issues, err := h.RunIssues(run.ID)
	require.NoError(t, err)
	require.Len(t, issues, len(report.Issues))
	assert.Equal(t, "warn", issues[0].Severity)
	assert.Equal(t, "[debug-print] Debug print found", issues[0].Message)
	assert.Equal(t, "main.gd", issues[0].File)

	conns, err := h.RunConnections(run.ID)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "Button", conns[0].From)

	latest, err := h.Latest(root)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)
	require.NotNil(t, latest.FormatVersion)
	assert.Equal(t, 5, *latest.FormatVersion)
}

func TestHistory_FingerprintStableAcrossRuns(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	root := brokenProject(t)

	report, err := New(root).Analyze(context.Background())
	require.NoError(t, err)
	first, err := h.RecordAnalysis(report, nil)
	require.NoError(t, err)
	second, err := h.RecordAnalysis(report, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	clean, err := h.RecordAnalysis(&ProjectReport{ProjectPath: root}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, clean.Fingerprint)
}

func TestHistory_RecordApplyAndRuns(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	h.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	analysis, err := h.RecordAnalysis(&ProjectReport{ProjectPath: "/game"}, nil)
	require.NoError(t, err)
	apply, err := h.RecordApply("/game", &ApplySummary{
		Moved: []Move{{From: "res://a.gd", To: "res://scripts/a.gd"}},
		Edits: []FileEdit{{File: "b.tscn", Kind: EditExtResource, Replacements: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "apply", apply.Kind)

	runs, err := h.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, apply.ID, runs[0].ID)
	assert.Equal(t, analysis.ID, runs[1].ID)

	runs, err = h.Runs(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = h.ProjectRuns("/elsewhere", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	got, err := h.Run(apply.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, base.Add(2*time.Minute).Equal(got.StartedAt))

	missing, err := h.Run(apply.ID + 100)
	require.NoError(t, err)
	assert.Nil(t, missing)

	moves, err := h.RunMoves(apply.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "res://scripts/a.gd", moves[0].To)

	edits, err := h.RunEdits(apply.ID)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, EditExtResource, edits[0].Kind)
	assert.Equal(t, 1, edits[0].Replacements)

	latest, err := h.Latest("/game")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, analysis.ID, latest.ID)
}

func TestHistory_Prune(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	for i := 0; i < 3; i++ {
		_, err := h.RecordAnalysis(&ProjectReport{ProjectPath: "/game", Issues: []Issue{NewWarn(RuleGeneral, "w", "")}}, nil)
		require.NoError(t, err)
	}
	n, err := h.Prune("/game", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runs, err := h.Runs(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestHistory_DeleteRun(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	run, err := h.RecordAnalysis(&ProjectReport{ProjectPath: "/game", Issues: []Issue{NewError(RuleScene, "e", "a.tscn")}}, nil)
	require.NoError(t, err)

	require.NoError(t, h.DeleteRun(run.ID))
	got, err := h.Run(run.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	issues, err := h.RunIssues(run.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}
