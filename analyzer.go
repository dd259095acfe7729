package godotcheck

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/runtime"
)

// Check names accepted by WithChecks.
const (
	CheckManifest  = "manifest"
	CheckResources = "resources"
	CheckScenes    = "scenes"
	CheckSignals   = "signals"
	CheckLint      = "lint"
)

// AllChecks lists every check in the order Analyze runs them.
var AllChecks = []string{CheckManifest, CheckResources, CheckScenes, CheckSignals, CheckLint}

// Analyzer runs the checks over one Godot project tree.
type Analyzer struct {
	root        string
	checks      map[string]bool
	minSeverity Severity
	logger      *slog.Logger
	excludes    []string
	rulesDir    string
	rulesFS     fs.FS
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithChecks restricts Analyze to the named checks. Unknown names are
// ignored. With no names every check runs.
func WithChecks(names ...string) Option {
	return func(a *Analyzer) {
		if len(names) == 0 {
			return
		}
		a.checks = make(map[string]bool, len(names))
		for _, n := range names {
			a.checks[n] = true
		}
	}
}

// WithMinSeverity drops issues below min from Analyze reports.
func WithMinSeverity(min Severity) Option {
	return func(a *Analyzer) {
		a.minSeverity = min
	}
}

// WithLogger sets the logger used for progress and skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithExcludes adds doublestar patterns, matched against slash-separated
// project-relative paths, that every walk skips.
func WithExcludes(patterns ...string) Option {
	return func(a *Analyzer) {
		a.excludes = append(a.excludes, patterns...)
	}
}

// WithRulesDir loads custom lint rules (*.risor) from dir. A relative dir
// is resolved against the project root.
func WithRulesDir(dir string) Option {
	return func(a *Analyzer) {
		a.rulesDir = dir
	}
}

// WithRulesFS loads custom lint rules from fsys instead of from disk.
func WithRulesFS(fsys fs.FS) Option {
	return func(a *Analyzer) {
		a.rulesFS = fsys
	}
}

// New creates an Analyzer for the project rooted at root.
func New(root string, opts ...Option) *Analyzer {
	a := &Analyzer{
		root:   root,
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Root returns the project root.
func (a *Analyzer) Root() string {
	return a.root
}

func (a *Analyzer) enabled(check string) bool {
	return a.checks == nil || a.checks[check]
}

func (a *Analyzer) walker(opts ...project.WalkOption) *project.Walker {
	return project.NewWalker(a.root, append([]project.WalkOption{project.WithExcludes(a.excludes...)}, opts...)...)
}

// Analyze runs the enabled checks and returns the combined report, issues
// filtered by the minimum severity and sorted. Findings in the project
// never fail the analysis; an error means a walk or a custom rule failed.
func (a *Analyzer) Analyze(ctx context.Context) (*ProjectReport, error) {
	a.logger.Debug("analyze.start", "root", a.root)

	var report *ProjectReport
	if a.enabled(CheckManifest) {
		report = ScanManifest(a.root)
	} else {
		report = &ProjectReport{ProjectPath: a.root, Addons: []string{}, ExportPresets: []ExportPreset{}, Issues: []Issue{}}
	}

	w := a.walker()
	stages := []struct {
		name string
		run  func(*project.Walker) ([]Issue, error)
	}{
		{CheckResources, scanResources},
		{CheckScenes, sceneIssues},
		{CheckSignals, signalIssues},
	}
	for _, st := range stages {
		if !a.enabled(st.name) {
			continue
		}
		issues, err := st.run(w)
		if err != nil {
			return nil, fmt.Errorf("analyze: %s: %w", st.name, err)
		}
		a.logger.Debug("analyze.check", "check", st.name, "issues", len(issues))
		report.Issues = append(report.Issues, issues...)
	}

	if a.enabled(CheckLint) {
		findings, err := a.Lint(ctx)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		a.logger.Debug("analyze.check", "check", CheckLint, "issues", len(findings))
		for _, f := range findings {
			report.Issues = append(report.Issues, lintIssue(f))
		}
	}

	report.Issues = FilterIssues(report.Issues, a.minSeverity)
	SortIssues(report.Issues)
	a.logger.Info("analyze.done", "root", a.root, "issues", len(report.Issues))
	return report, nil
}

// Graph returns the well-formed signal connections of every scene.
func (a *Analyzer) Graph() ([]ConnectionEdge, error) {
	edges, err := signalGraph(a.walker())
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	if edges == nil {
		edges = []ConnectionEdge{}
	}
	return edges, nil
}

// Scenes returns the per-file findings of the scene and signal validators
// at or above the minimum severity, ordered by file and line.
func (a *Analyzer) Scenes() ([]SceneIssue, error) {
	w := a.walker()
	out := []SceneIssue{}
	files, err := w.Files(sceneExts...)
	if err != nil {
		return nil, fmt.Errorf("scenes: %w", err)
	}
	for _, rel := range files {
		out = append(out, ValidateScene(a.root, rel)...)
	}
	files, err = w.Files(connectionSceneExts...)
	if err != nil {
		return nil, fmt.Errorf("scenes: %w", err)
	}
	for _, rel := range files {
		out = append(out, ValidateSceneSignals(a.root, rel)...)
	}

	kept := out[:0]
	for _, si := range out {
		if si.Severity >= a.minSeverity {
			kept = append(kept, si)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].File != kept[j].File {
			return kept[i].File < kept[j].File
		}
		return kept[i].Line < kept[j].Line
	})
	return kept, nil
}

// Lint runs the built-in script rules and any custom Risor rules. Custom
// findings obey the same gd-lint directives as built-in ones. A custom
// rule that fails to load or run fails the lint.
func (a *Analyzer) Lint(ctx context.Context) ([]LintFinding, error) {
	rt, rules, err := a.customRules()
	if err != nil {
		return nil, err
	}

	var custom []LintFinding
	var ruleErr error
	visit := func(rel, src string, ctl lintControls) {
		if ruleErr != nil {
			return
		}
		for _, rule := range rules {
			found, err := rt.CheckScript(ctx, rule, runtime.Script{Path: rel, Source: src})
			if err != nil {
				ruleErr = fmt.Errorf("lint: %s on %s: %w", runtime.RuleName(rule), rel, err)
				return
			}
			for _, f := range found {
				if ctl.disabled[f.Code] {
					continue
				}
				custom = append(custom, LintFinding{Code: f.Code, Message: f.Message, File: rel, Line: f.Line, Severity: ctl.severity})
			}
		}
	}
	if len(rules) == 0 {
		visit = nil
	}

	findings, err := lintScripts(a.walker(), visit)
	if err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}
	if ruleErr != nil {
		return nil, ruleErr
	}
	findings = append(findings, custom...)
	SortLintFindings(findings)
	if findings == nil {
		findings = []LintFinding{}
	}
	return findings, nil
}

// customRules builds the rule host and lists its rules. Without a rules
// directory or filesystem there are none.
func (a *Analyzer) customRules() (*runtime.Runtime, []string, error) {
	var rt *runtime.Runtime
	switch {
	case a.rulesFS != nil:
		rt = runtime.NewRuntime("", runtime.WithRuntimeFS(a.rulesFS), runtime.WithLogger(a.logger))
	case a.rulesDir != "":
		dir := a.rulesDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.root, dir)
		}
		if _, err := os.Stat(dir); err != nil {
			a.logger.Debug("lint.no_rules", "dir", dir)
			return nil, nil, nil
		}
		rt = runtime.NewRuntime(dir, runtime.WithLogger(a.logger))
	default:
		return nil, nil, nil
	}
	rules, err := rt.RuleScripts()
	if err != nil {
		return nil, nil, fmt.Errorf("lint: %w", err)
	}
	a.logger.Debug("lint.rules", "count", len(rules))
	return rt, rules, nil
}

// Plan proposes the structure fix for the project.
func (a *Analyzer) Plan() (*FixPlan, error) {
	return planStructureFix(a.walker(project.WithSkipDirs(addonsDir)))
}

// Apply performs plan and rewrites references to the moved files.
func (a *Analyzer) Apply(plan *FixPlan) (*ApplySummary, error) {
	return applyStructureFix(a.walker(), plan, a.logger)
}
