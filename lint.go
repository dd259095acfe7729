package godotcheck

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/syntax"
)

// Built-in lint rule codes. Each can be silenced per file with
// `# gd-lint: disable=<code>`.
const (
	LintClassNameMismatch  = "class-name-mismatch"
	LintDebugPrint         = "debug-print"
	LintTabIndentation     = "tab-indentation"
	LintMissingExtends     = "missing-extends"
	LintMissingResourceRef = "missing-resource-ref"
)

var scriptExts = []string{".gd"}

// LintScripts runs the built-in rules over every .gd file under root.
// Findings are sorted by code, then message, then file.
func LintScripts(root string) []LintFinding {
	findings, _ := lintScripts(project.NewWalker(root), nil)
	return findings
}

// scriptVisitor is called with each script that was not switched off by a
// directive, together with the controls that apply to it.
type scriptVisitor func(rel, src string, ctl lintControls)

// lintControls are the per-file effects of the gd-lint directives.
type lintControls struct {
	disabled map[string]bool
	severity Severity
}

func parseControls(src string) (lintControls, bool) {
	d := syntax.ParseDirectives(src)
	ctl := lintControls{disabled: d.Disabled, severity: Warn}
	if d.Level != "" {
		if sev, err := ParseSeverity(d.Level); err == nil {
			ctl.severity = sev
		}
	}
	return ctl, !d.Off
}

func lintScripts(w *project.Walker, visit scriptVisitor) ([]LintFinding, error) {
	files, err := w.Files(scriptExts...)
	if err != nil {
		return nil, err
	}
	var out []LintFinding
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(w.Root(), filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		src := string(data)
		ctl, enabled := parseControls(src)
		if !enabled {
			continue
		}
		out = append(out, lintScript(w.Root(), rel, src, ctl)...)
		if visit != nil {
			visit(rel, src, ctl)
		}
	}
	SortLintFindings(out)
	return out, nil
}

func lintScript(root, rel, src string, ctl lintControls) []LintFinding {
	var out []LintFinding
	add := func(code string, line int, msg string) {
		if ctl.disabled[code] {
			return
		}
		out = append(out, LintFinding{Code: code, Message: msg, File: rel, Line: line, Severity: ctl.severity})
	}

	s := syntax.ScanScript(src)
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if s.ClassName != "" && s.ClassName != stem {
		add(LintClassNameMismatch, s.ClassNameLine,
			fmt.Sprintf("Class name mismatch: class_name %s but file is %s.gd", s.ClassName, stem))
	}
	if s.DebugPrint > 0 {
		add(LintDebugPrint, s.DebugPrint, "Debug print found")
	}
	if s.TabIndent > 0 {
		add(LintTabIndentation, s.TabIndent, "Tab indentation used")
	}
	if !s.HasExtends {
		add(LintMissingExtends, 0, "Missing extends declaration")
	}
	for _, call := range s.Loads {
		if !project.Exists(root, call.Path) {
			add(LintMissingResourceRef, call.Line, fmt.Sprintf("GDScript %s missing file: %s", call.Kind, call.Path))
		}
	}
	return out
}

// SortLintFindings orders findings by code, then message, then file.
func SortLintFindings(findings []LintFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Message != b.Message {
			return a.Message < b.Message
		}
		return a.File < b.File
	})
}

// lintIssue folds a finding into the general report.
func lintIssue(f LintFinding) Issue {
	return Issue{
		Severity: f.Severity,
		Rule:     RuleGeneral,
		Message:  fmt.Sprintf("[%s] %s", f.Code, f.Message),
		File:     f.File,
		Line:     f.Line,
	}
}
