package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jward/godotcheck"
)

var severityColors = map[godotcheck.Severity]*color.Color{
	godotcheck.Info:  color.New(color.FgCyan),
	godotcheck.Warn:  color.New(color.FgYellow),
	godotcheck.Error: color.New(color.FgRed, color.Bold),
}

// severityLabel returns the padded, coloured severity tag.
func severityLabel(s godotcheck.Severity) string {
	label := fmt.Sprintf("%-5s", s.String())
	if c, ok := severityColors[s]; ok {
		return c.Sprint(label)
	}
	return label
}

// location renders "file:line", "file" or "-" when the finding has no file.
func location(file string, line int) string {
	switch {
	case file == "":
		return "-"
	case line > 0:
		return fmt.Sprintf("%s:%d", file, line)
	default:
		return file
	}
}

// formatReportsText prints each report's header and issues. Issues are
// written line by line so colour codes don't upset column alignment.
func formatReportsText(w io.Writer, reports []*godotcheck.ProjectReport) {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Project: %s\n", r.ProjectPath)
		if r.FormatVersion != nil {
			fmt.Fprintf(w, "Format version: %d\n", *r.FormatVersion)
		}
		if len(r.Addons) > 0 {
			fmt.Fprintf(w, "Addons: %s\n", strings.Join(r.Addons, ", "))
		}
		for _, p := range r.ExportPresets {
			path := "(no export path)"
			if p.ExportPath != nil {
				path = *p.ExportPath
			}
			fmt.Fprintf(w, "Export preset: %s [%s] %s\n", p.Name, p.Platform, path)
		}
		fmt.Fprintln(w)
		formatIssuesText(w, r.Issues)
		fmt.Fprintf(w, "\n%d issue(s)\n", len(r.Issues))
	}
}

func formatIssuesText(w io.Writer, issues []godotcheck.Issue) {
	for _, is := range issues {
		fmt.Fprintf(w, "%s %s: %s (%s)\n", severityLabel(is.Severity), location(is.File, is.Line), is.Message, is.Rule)
	}
}

// formatSceneIssuesText formats SceneIssue results as aligned columns.
func formatSceneIssuesText(w io.Writer, issues []godotcheck.SceneIssue) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tFILE\tLINE\tNODE\tMESSAGE")
	for _, si := range issues {
		node := "-"
		if si.NodePath != nil {
			node = *si.NodePath
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", si.Severity, si.File, si.Line, node, si.Message)
	}
	tw.Flush()
}

// formatEdgesText formats ConnectionEdge results as aligned columns.
func formatEdgesText(w io.Writer, edges []godotcheck.ConnectionEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENE\tFROM\tSIGNAL\tTO\tMETHOD")
	for _, e := range edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Scene, e.From, e.Signal, e.To, e.Method)
	}
	tw.Flush()
}

func formatLintText(w io.Writer, findings []godotcheck.LintFinding) {
	for _, f := range findings {
		fmt.Fprintf(w, "%s %s: [%s] %s\n", severityLabel(f.Severity), location(f.File, f.Line), f.Code, f.Message)
	}
}

// formatPlanText lists the proposed moves and the files left alone.
func formatPlanText(w io.Writer, res CLIPlanResult) {
	plan := res.Plan
	fmt.Fprintf(w, "Rules: %s\n", strings.Join(plan.Rules, ", "))
	fmt.Fprintf(w, "Scanned %d file(s), proposing %d move(s)\n", plan.Scanned, plan.Proposed)
	if len(plan.Moves) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FROM\tTO")
		for _, m := range plan.Moves {
			fmt.Fprintf(tw, "%s\t%s\n", m.From, m.To)
		}
		tw.Flush()
	}
	if len(plan.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped:")
		for _, s := range plan.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.URI, s.Reason)
		}
	}
	if res.Written != "" {
		fmt.Fprintf(w, "\nPlan written to %s\n", res.Written)
	}
}

func formatApplyText(w io.Writer, res CLIApplyResult) {
	s := res.Summary
	fmt.Fprintf(w, "Moved %d file(s), backed up %d\n", len(s.Moved), s.BackedUp)
	for _, m := range s.Moved {
		fmt.Fprintf(w, "  %s -> %s\n", m.From, m.To)
	}
	if len(s.Edits) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tKIND\tREPLACEMENTS")
		for _, e := range s.Edits {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", e.File, e.Kind, e.Replacements)
		}
		tw.Flush()
	}
	if res.RunID != nil {
		fmt.Fprintf(w, "\nRecorded as run #%d\n", *res.RunID)
	}
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTARTED\tISSUES\tERRORS\tPROJECT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Kind, r.StartedAt.Format("2006-01-02 15:04:05"), r.IssueCount, r.ErrorCount, r.ProjectPath)
	}
	tw.Flush()
}

func formatRunDetailText(w io.Writer, d CLIRunDetail) {
	formatRunsText(w, []CLIRun{d.Run})
	if d.Run.Fingerprint != "" {
		fmt.Fprintf(w, "Fingerprint: %s\n", d.Run.Fingerprint)
	}
	if len(d.Issues) > 0 {
		fmt.Fprintln(w)
		formatIssuesText(w, d.Issues)
	}
	if len(d.Connections) > 0 {
		fmt.Fprintln(w)
		formatEdgesText(w, d.Connections)
	}
	if len(d.Moves) > 0 || len(d.Edits) > 0 {
		fmt.Fprintln(w)
		formatApplyText(w, CLIApplyResult{Summary: &godotcheck.ApplySummary{Moved: d.Moves, Edits: d.Edits}})
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []*godotcheck.ProjectReport:
		formatReportsText(w, v)
	case []godotcheck.SceneIssue:
		formatSceneIssuesText(w, v)
	case []godotcheck.ConnectionEdge:
		formatEdgesText(w, v)
	case []godotcheck.LintFinding:
		formatLintText(w, v)
	case CLIPlanResult:
		formatPlanText(w, v)
	case CLIApplyResult:
		formatApplyText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case CLIRunDetail:
		formatRunDetailText(w, v)
	case string:
		fmt.Fprint(w, v)
		if !strings.HasSuffix(v, "\n") {
			fmt.Fprintln(w)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIRun:
		return len(r)
	case []godotcheck.SceneIssue:
		return len(r)
	case []godotcheck.ConnectionEdge:
		return len(r)
	case []godotcheck.LintFinding:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult writes result in the selected format. SARIF and JUnit are
// only defined for a single project report.
func outputResult(result CLIResult) error {
	switch flagFormat {
	case "text":
		return outputResultText(result)
	case "sarif", "junit":
		reports, ok := result.Results.([]*godotcheck.ProjectReport)
		if !ok || len(reports) != 1 {
			return fmt.Errorf("%s output needs exactly one analyzed project", flagFormat)
		}
		var (
			data []byte
			err  error
		)
		if flagFormat == "sarif" {
			data, err = godotcheck.ToSARIF(reports[0])
		} else {
			data, err = godotcheck.ToJUnit(reports[0])
		}
		if err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. Every other format sends it to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat != "json" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"text", "json", "sarif", "junit"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}
