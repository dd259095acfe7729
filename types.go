package godotcheck

import (
	"fmt"
	"strings"
)

// Severity ranks a finding. The zero value is Info.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

// String returns the lowercase name used in JSON and text output.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity accepts info, warn, warning, error and err in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error", "err":
		return Error, nil
	}
	return Info, fmt.Errorf("unknown severity %q", s)
}

// Rule tags the component that produced an Issue.
type Rule string

const (
	RuleGeneral Rule = "godot-analyzer"
	RuleScene   Rule = "scene-validator"
	RuleSignal  Rule = "signal-validator"
)

// Issue is one finding in a ProjectReport. File is a slash-separated path
// relative to the project root; Line is 1-based and 0 when unknown.
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Rule     Rule     `json:"rule" yaml:"rule"`
	Message  string   `json:"message" yaml:"message"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
}

// NewInfo returns an Info issue.
func NewInfo(rule Rule, msg, file string) Issue {
	return Issue{Severity: Info, Rule: rule, Message: msg, File: file}
}

// NewWarn returns a Warn issue.
func NewWarn(rule Rule, msg, file string) Issue {
	return Issue{Severity: Warn, Rule: rule, Message: msg, File: file}
}

// NewError returns an Error issue.
func NewError(rule Rule, msg, file string) Issue {
	return Issue{Severity: Error, Rule: rule, Message: msg, File: file}
}

// ExportPreset is one preset read from export_presets.cfg.
type ExportPreset struct {
	Name       string  `json:"name" yaml:"name"`
	Platform   string  `json:"platform" yaml:"platform"`
	ExportPath *string `json:"export_path,omitempty" yaml:"export_path,omitempty"`
}

// ProjectReport is the result of analyzing one project root.
type ProjectReport struct {
	ProjectPath   string         `json:"project_path" yaml:"project_path"`
	FormatVersion *int           `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	Addons        []string       `json:"addons" yaml:"addons"`
	ExportPresets []ExportPreset `json:"export_presets" yaml:"export_presets"`
	Issues        []Issue        `json:"issues" yaml:"issues"`
}

// SceneIssue is a finding inside one scene or resource file.
type SceneIssue struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	NodePath *string  `json:"node_path,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ConnectionEdge is a well-formed signal connection between two known
// nodes of a scene.
type ConnectionEdge struct {
	Scene  string `json:"scene"`
	From   string `json:"from"`
	To     string `json:"to"`
	Signal string `json:"signal"`
	Method string `json:"method"`
}

func (e ConnectionEdge) less(o ConnectionEdge) bool {
	if e.Scene != o.Scene {
		return e.Scene < o.Scene
	}
	if e.From != o.From {
		return e.From < o.From
	}
	if e.To != o.To {
		return e.To < o.To
	}
	if e.Signal != o.Signal {
		return e.Signal < o.Signal
	}
	return e.Method < o.Method
}

// LintFinding is one GDScript lint result.
type LintFinding struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
}

// Move relocates one file. Both ends are res:// URIs.
type Move struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// SkippedEntry is a file the planner would have moved but left alone.
type SkippedEntry struct {
	URI    string `json:"uri" yaml:"uri"`
	Reason string `json:"reason" yaml:"reason"`
}

// FixPlan is a proposed reorganization of the project layout.
type FixPlan struct {
	Rules    []string       `json:"rules" yaml:"rules"`
	Moves    []Move         `json:"moves" yaml:"moves"`
	Skipped  []SkippedEntry `json:"skipped" yaml:"skipped"`
	Scanned  int            `json:"scanned" yaml:"scanned"`
	Proposed int            `json:"proposed" yaml:"proposed"`
}

// Edit kinds recorded in ApplySummary.
const (
	EditExtResource    = "ext_resource"
	EditPreload        = "preload"
	EditProjectSetting = "project_setting"
)

// FileEdit records the reference rewrites made in one file.
type FileEdit struct {
	File         string `json:"file" yaml:"file"`
	Kind         string `json:"kind" yaml:"kind"`
	Replacements int    `json:"replacements" yaml:"replacements"`
}

// ApplySummary describes what ApplyStructureFix changed.
type ApplySummary struct {
	Moved    []Move     `json:"moved" yaml:"moved"`
	Edits    []FileEdit `json:"edits" yaml:"edits"`
	BackedUp int        `json:"backed_up" yaml:"backed_up"`
}
