package godotcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanManifest_EmptyProject(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	report := ScanManifest(root)
	assert.Equal(t, root, report.ProjectPath)
	assert.Nil(t, report.FormatVersion)
	assert.Empty(t, report.Addons)
	assert.NotNil(t, report.Addons)
	assert.NotNil(t, report.ExportPresets)

	assert.Equal(t, []Issue{
		NewInfo(RuleGeneral, "Missing export_presets.cfg", "export_presets.cfg"),
		NewInfo(RuleGeneral, "No addons/ directory found", ""),
		NewWarn(RuleGeneral, "Missing project.godot", "project.godot"),
	}, report.Issues)
}

func TestScanManifest_FullProject(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"project.godot": `; Engine configuration file.
config_version=5

[application]

config/name="Demo"
run/main_scene="res://main.tscn"
config/icon="res://icon.svg"
`,
		"icon.svg":               "<svg/>",
		"addons/good/plugin.cfg": "[plugin]\nname=\"good\"\n",
		"addons/bad/thing.gd":    "extends Node\n",
		"export_presets.cfg": `[preset.0]

name="Web"
platform="Web"
export_path="build/web/index.html"

[preset.0.options]

name="ignored"

[preset.1]

name="Android"
platform="Android"
export_path=""
`,
	})

	report := ScanManifest(root)
	require.NotNil(t, report.FormatVersion)
	assert.Equal(t, 5, *report.FormatVersion)
	assert.Equal(t, []string{"bad", "good"}, report.Addons)

	require.Len(t, report.ExportPresets, 2)
	assert.Equal(t, "Android", report.ExportPresets[0].Name)
	assert.Equal(t, "Web", report.ExportPresets[1].Name)
	require.NotNil(t, report.ExportPresets[1].ExportPath)
	assert.Equal(t, "build/web/index.html", *report.ExportPresets[1].ExportPath)

	assert.Equal(t, []Issue{
		NewInfo(RuleGeneral, "Export path parent directory does not exist: build/web", "export_presets.cfg"),
		NewWarn(RuleGeneral, "Addon 'bad' missing plugin.cfg", "addons/bad/plugin.cfg"),
		NewWarn(RuleGeneral, "Missing main scene: res://main.tscn", "project.godot"),
	}, report.Issues)
}

func TestScanManifest_UnconfiguredSettings(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"project.godot":      "config_version=4\n",
		"export_presets.cfg": "; nothing here\n",
		"addons/.keep":       "",
	})

	report := ScanManifest(root)
	assert.Equal(t, []string{
		"No application icon configured (config/icon)",
		"No main scene configured (run/main_scene)",
		"export_presets.cfg present but no presets found",
	}, messages(report.Issues))
}

func TestScanManifest_Idempotent(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"project.godot":       "config_version=5\nrun/main_scene=\"res://gone.tscn\"\n",
		"addons/x/a.gd":       "",
		"addons/y/plugin.cfg": "",
	})
	assert.Equal(t, ScanManifest(root), ScanManifest(root))
}

func TestParseExportPresets_IncompleteDropped(t *testing.T) {
	t.Parallel()
	presets := parseExportPresets(`[preset.0]
name="NoPlatform"
[preset.1]
name='Linux'
platform="Linux/X11"
`)
	require.Len(t, presets, 1)
	assert.Equal(t, "Linux", presets[0].Name)
	assert.Equal(t, "Linux/X11", presets[0].Platform)
	assert.Nil(t, presets[0].ExportPath)
}
