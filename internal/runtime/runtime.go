// Package runtime hosts custom GDScript lint rules written in Risor.
//
// A rule is a top-level *.risor file in the rules directory (or fs.FS).
// Subdirectories hold shared code that rules pull in with import
// statements. Each rule runs once per script file with these globals:
//
//	path    project-relative path of the script (string)
//	source  full script text (string)
//	lines   script text split into lines (list of strings)
//	report  report(code, message) or report(code, message, line)
//	log     log.Info/Warn/Error(message), forwarded to the host logger
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
)

const scriptExt = ".risor"

// Runtime evaluates rule scripts in fresh Risor VMs.
type Runtime struct {
	rulesDir string
	fsys     fs.FS
	logger   *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Import statements then resolve inside the same FS.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the scripts' log global.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime loading rules from rulesDir.
func NewRuntime(rulesDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		rulesDir: rulesDir,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Finding is one report() call made by a rule.
type Finding struct {
	Rule    string
	Code    string
	Message string
	Line    int
}

// Script is the GDScript file a rule is checking.
type Script struct {
	Path   string
	Source string
}

// RuleScripts lists the top-level rule files, sorted. A missing rules
// directory has no rules.
func (r *Runtime) RuleScripts() ([]string, error) {
	var entries []fs.DirEntry
	var err error
	switch {
	case r.fsys != nil:
		entries, err = fs.ReadDir(r.fsys, ".")
	case r.rulesDir != "":
		entries, err = os.ReadDir(r.rulesDir)
		if os.IsNotExist(err) {
			return nil, nil
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runtime: listing rules: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), scriptExt) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// RuleName is the rule's file name without the .risor suffix.
func RuleName(scriptPath string) string {
	return strings.TrimSuffix(filepath.Base(scriptPath), scriptExt)
}

// CheckScript runs the rule at scriptPath against one GDScript file and
// returns what it reported, in call order.
func (r *Runtime) CheckScript(ctx context.Context, scriptPath string, target Script) ([]Finding, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	c := &collector{rule: RuleName(scriptPath)}
	lines := strings.Split(target.Source, "\n")
	items := make([]object.Object, len(lines))
	for i, l := range lines {
		items[i] = object.NewString(strings.TrimSuffix(l, "\r"))
	}
	globals := map[string]any{
		"path":   target.Path,
		"source": target.Source,
		"lines":  object.NewList(items),
		"report": makeReportFn(c),
	}
	if err := r.eval(ctx, src, scriptPath, globals); err != nil {
		return nil, err
	}
	return c.findings, nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer for the configured script source,
// or nil when neither an fs.FS nor a rules directory is set.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{scriptExt},
		})
	}
	if r.rulesDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.rulesDir,
			Extensions:  []string{scriptExt},
		})
	}
	return nil
}

// LoadScript reads a .risor file from the fs.FS when one is configured,
// otherwise from disk relative to the rules directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.rulesDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the globals shared by every script.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
