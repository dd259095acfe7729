package main

import (
	"time"

	"github.com/jward/godotcheck"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIRun is a JSON-friendly history run.
type CLIRun struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	ProjectPath   string    `json:"project_path"`
	StartedAt     time.Time `json:"started_at"`
	FormatVersion *int      `json:"format_version,omitempty"`
	IssueCount    int       `json:"issue_count"`
	ErrorCount    int       `json:"error_count"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
}

// CLIRunDetail is a run with the rows recorded for it. Analysis runs carry
// issues and connections, apply runs carry moves and edits.
type CLIRunDetail struct {
	Run         CLIRun                      `json:"run"`
	Issues      []godotcheck.Issue          `json:"issues"`
	Connections []godotcheck.ConnectionEdge `json:"connections"`
	Moves       []godotcheck.Move           `json:"moves"`
	Edits       []godotcheck.FileEdit       `json:"edits"`
}

// CLIApplyResult pairs an apply summary with the run it was recorded as.
type CLIApplyResult struct {
	Summary *godotcheck.ApplySummary `json:"summary"`
	RunID   *int64                   `json:"run_id,omitempty"`
}

// CLIPlanResult is the output of "fix plan".
type CLIPlanResult struct {
	Plan    *godotcheck.FixPlan `json:"plan"`
	Written string              `json:"written,omitempty"`
}

func toCLIRun(r *godotcheck.Run) CLIRun {
	return CLIRun{
		ID:            r.ID,
		Kind:          r.Kind,
		ProjectPath:   r.ProjectPath,
		StartedAt:     r.StartedAt,
		FormatVersion: r.FormatVersion,
		IssueCount:    r.IssueCount,
		ErrorCount:    r.ErrorCount,
		Fingerprint:   r.Fingerprint,
	}
}

func toCLIRuns(runs []*godotcheck.Run) []CLIRun {
	out := make([]CLIRun, len(runs))
	for i, r := range runs {
		out[i] = toCLIRun(r)
	}
	return out
}

// toIssue converts a stored issue back into a report issue. Unknown
// severities read as Error.
func toIssue(ri *godotcheck.RunIssue) godotcheck.Issue {
	sev, err := godotcheck.ParseSeverity(ri.Severity)
	if err != nil {
		sev = godotcheck.Error
	}
	return godotcheck.Issue{
		Severity: sev,
		Rule:     godotcheck.Rule(ri.Rule),
		Message:  ri.Message,
		File:     ri.File,
		Line:     ri.Line,
	}
}
