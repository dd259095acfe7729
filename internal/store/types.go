package store

import "time"

// Run kinds.
const (
	RunAnalyze = "analyze"
	RunApply   = "apply"
)

// Run is one recorded analysis or structure-fix apply.
type Run struct {
	ID            int64
	Kind          string
	ProjectPath   string
	StartedAt     time.Time
	FormatVersion *int
	IssueCount    int
	ErrorCount    int
	Fingerprint   string
}

type Issue struct {
	ID       int64
	RunID    int64
	Severity string
	Rule     string
	Message  string
	File     string
	Line     int
}

type Connection struct {
	ID     int64
	RunID  int64
	Scene  string
	From   string
	To     string
	Signal string
	Method string
}

type Move struct {
	ID    int64
	RunID int64
	From  string
	To    string
}

type Edit struct {
	ID           int64
	RunID        int64
	File         string
	Kind         string
	Replacements int
}
