package godotcheck

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/syntax"
)

const (
	projectFile = "project.godot"
	presetsFile = "export_presets.cfg"
	addonsDir   = "addons"
	pluginFile  = "plugin.cfg"

	keyIcon      = "config/icon"
	keyMainScene = "run/main_scene"
)

// ScanManifest inspects project.godot, the addons/ directory and
// export_presets.cfg under root. Findings are reported as issues; the
// report is always produced. The returned report carries no resource
// findings; see ScanResources.
func ScanManifest(root string) *ProjectReport {
	report := &ProjectReport{
		ProjectPath:   root,
		Addons:        []string{},
		ExportPresets: []ExportPreset{},
		Issues:        []Issue{},
	}
	report.Issues = append(report.Issues, scanProjectFile(root, report)...)
	report.Issues = append(report.Issues, scanAddons(root, report)...)
	report.Issues = append(report.Issues, scanExportPresets(root, report)...)

	sort.Strings(report.Addons)
	sort.SliceStable(report.ExportPresets, func(i, j int) bool {
		a, b := report.ExportPresets[i], report.ExportPresets[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Platform < b.Platform
	})
	SortIssues(report.Issues)
	return report
}

func scanProjectFile(root string, report *ProjectReport) []Issue {
	data, err := os.ReadFile(filepath.Join(root, projectFile))
	if err != nil {
		return []Issue{NewWarn(RuleGeneral, "Missing project.godot", projectFile)}
	}
	text := string(data)

	var issues []Issue
	for _, line := range strings.Split(text, "\n") {
		k, v, ok := syntax.KeyValue(line)
		if !ok || k != "config_version" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			report.FormatVersion = &n
		}
	}

	if v, ok := syntax.FindValue(text, keyIcon); !ok {
		issues = append(issues, NewInfo(RuleGeneral, "No application icon configured (config/icon)", projectFile))
	} else if project.IsResURI(v) && !project.Exists(root, v) {
		issues = append(issues, NewWarn(RuleGeneral, "Missing application icon: "+v, projectFile))
	}

	if v, ok := syntax.FindValue(text, keyMainScene); !ok {
		issues = append(issues, NewInfo(RuleGeneral, "No main scene configured (run/main_scene)", projectFile))
	} else if project.IsResURI(v) && !project.Exists(root, v) {
		issues = append(issues, NewWarn(RuleGeneral, "Missing main scene: "+v, projectFile))
	}
	return issues
}

func scanAddons(root string, report *ProjectReport) []Issue {
	entries, err := os.ReadDir(filepath.Join(root, addonsDir))
	if err != nil {
		return []Issue{NewInfo(RuleGeneral, "No addons/ directory found", "")}
	}
	var issues []Issue
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		report.Addons = append(report.Addons, name)
		cfg := addonsDir + "/" + name + "/" + pluginFile
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(cfg))); err != nil {
			issues = append(issues, NewWarn(RuleGeneral, "Addon '"+name+"' missing plugin.cfg", cfg))
		}
	}
	return issues
}

func scanExportPresets(root string, report *ProjectReport) []Issue {
	data, err := os.ReadFile(filepath.Join(root, presetsFile))
	if err != nil {
		return []Issue{NewInfo(RuleGeneral, "Missing export_presets.cfg", presetsFile)}
	}
	report.ExportPresets = append(report.ExportPresets, parseExportPresets(string(data))...)
	if len(report.ExportPresets) == 0 {
		return []Issue{NewWarn(RuleGeneral, "export_presets.cfg present but no presets found", presetsFile)}
	}

	var issues []Issue
	for _, p := range report.ExportPresets {
		if p.ExportPath == nil || *p.ExportPath == "" {
			continue
		}
		target := filepath.FromSlash(*p.ExportPath)
		if !filepath.IsAbs(target) {
			target = filepath.Join(root, target)
		}
		parent := filepath.Dir(target)
		if _, err := os.Stat(parent); err != nil {
			msg := "Export path parent directory does not exist: " + project.Rel(root, parent)
			issues = append(issues, NewInfo(RuleGeneral, msg, presetsFile))
		}
	}
	return issues
}

// parseExportPresets reads presets section by section. Every header closes
// the current preset, so a [preset.N.options] section ends preset N.
func parseExportPresets(text string) []ExportPreset {
	var (
		out                  []ExportPreset
		name, platform, path *string
	)
	flush := func() {
		if name != nil && platform != nil {
			out = append(out, ExportPreset{Name: *name, Platform: *platform, ExportPath: path})
		}
		name, platform, path = nil, nil, nil
	}
	for _, line := range strings.Split(text, "\n") {
		if syntax.IsSectionHeader(line) {
			flush()
			continue
		}
		k, v, ok := syntax.KeyValue(line)
		if !ok {
			continue
		}
		switch k {
		case "name":
			name = &v
		case "platform":
			platform = &v
		case "export_path":
			path = &v
		}
	}
	flush()
	return out
}
