package syntax

import (
	"regexp"
	"strings"
)

var (
	reClassName  = regexp.MustCompile(`^\s*class_name\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
	reDebugPrint = regexp.MustCompile(`^\s*(print|prints|printt)\s*\(`)
	reTabIndent  = regexp.MustCompile(`^\t+`)
	reLoadCall   = regexp.MustCompile(`\b(preload|load)\s*\(\s*"(res://[^"]+)"\s*\)`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// LoadCall is a preload("res://...") or load("res://...") call with a
// literal argument.
type LoadCall struct {
	Kind string // "preload" or "load"
	Path string
	Line int // 1-based; 0 when matched on a single line
}

// LoadCalls returns the literal preload/load calls on line.
func LoadCalls(line string) []LoadCall {
	matches := reLoadCall.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}
	calls := make([]LoadCall, 0, len(matches))
	for _, m := range matches {
		calls = append(calls, LoadCall{Kind: m[1], Path: m[2]})
	}
	return calls
}

// ReplaceLoadPaths rewrites the literal argument of every preload/load
// call on line found in mapping. Returns the new line and the number of
// replacements.
func ReplaceLoadPaths(line string, mapping map[string]string) (string, int) {
	n := 0
	out := reLoadCall.ReplaceAllStringFunc(line, func(call string) string {
		m := reLoadCall.FindStringSubmatch(call)
		repl, ok := mapping[m[2]]
		if !ok {
			return call
		}
		n++
		return strings.Replace(call, `"`+m[2]+`"`, `"`+repl+`"`, 1)
	})
	return out, n
}

// Script is the line-level summary of a GDScript source used by the
// linter. Line numbers are 1-based; 0 means not found.
type Script struct {
	ClassName     string
	ClassNameLine int
	DebugPrint    int
	TabIndent     int
	HasExtends    bool
	Loads         []LoadCall
}

// ScanScript summarizes src in one pass.
func ScanScript(src string) Script {
	var s Script
	for i, line := range strings.Split(src, "\n") {
		lno := i + 1
		line = strings.TrimSuffix(line, "\r")
		if s.ClassNameLine == 0 {
			if m := reClassName.FindStringSubmatch(line); m != nil {
				s.ClassName = m[1]
				s.ClassNameLine = lno
			}
		}
		if s.DebugPrint == 0 && reDebugPrint.MatchString(line) {
			s.DebugPrint = lno
		}
		if s.TabIndent == 0 && reTabIndent.MatchString(line) {
			s.TabIndent = lno
		}
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "extends ") {
			s.HasExtends = true
		}
		for _, call := range LoadCalls(line) {
			call.Line = lno
			s.Loads = append(s.Loads, call)
		}
	}
	return s
}

// DeclaresFunc reports whether src has a line declaring `func name(`,
// optionally prefixed with `static`.
func DeclaresFunc(src, name string) bool {
	re := regexp.MustCompile(`(?m)^\s*(?:static\s+)?func\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	return re.MatchString(src)
}

// ValidIdentifier reports whether name is a GDScript identifier: letters,
// digits and underscores, not starting with a digit.
func ValidIdentifier(name string) bool {
	return reIdentifier.MatchString(name)
}

// Directives are the `# gd-lint:` controls found in a script.
type Directives struct {
	Off      bool
	Disabled map[string]bool
	Level    string // raw level value of the last level= directive
}

// ParseDirectives scans src for `# gd-lint: off`, `# gd-lint:
// disable=a,b` and `# gd-lint: level=<sev>` comments. Scanning stops at
// the first `off`.
func ParseDirectives(src string) Directives {
	d := Directives{Disabled: make(map[string]bool)}
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.IndexByte(line, '#')
		if idx < 0 {
			continue
		}
		comment := strings.TrimSpace(line[idx+1:])
		rest, ok := strings.CutPrefix(comment, "gd-lint:")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, "off") {
			d.Off = true
			break
		}
		if list, ok := strings.CutPrefix(rest, "disable="); ok {
			for _, item := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
				d.Disabled[item] = true
			}
		}
		if val, ok := strings.CutPrefix(rest, "level="); ok {
			// Unknown levels keep the previous one.
			switch v := strings.ToLower(strings.TrimSpace(val)); v {
			case "info", "warn", "warning", "error", "err":
				d.Level = v
			}
		}
	}
	return d
}
