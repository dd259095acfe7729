package godotcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixProject(t *testing.T) string {
	t.Helper()
	return writeProject(t, map[string]string{
		"project.godot": "config_version=5\n\n[application]\nrun/main_scene=\"res://b.tscn\"\nconfig/icon=\"res://sub/c.png\"\n",
		"a.gd":          "extends Node\nconst Icon = preload(\"res://sub/c.png\")\nvar s = load(\"res://b.tscn\")\n",
		"b.tscn": `[gd_scene load_steps=3 format=3]
[ext_resource type="Script" path="res://a.gd" id="1"]
[ext_resource type="Texture2D" path="res://sub/c.png" id="2"]
[node name="B" type="Node2D"]
script = ExtResource("1")
`,
		"sub/c.png":        "png",
		"sub/c.png.import": "[remap]\n",
		"addons/tool/t.gd": "extends EditorPlugin\n",
		"scripts/ok.gd":    "extends Node\n",
		"README.md":        "docs",
	})
}

func TestPlanStructureFix(t *testing.T) {
	t.Parallel()
	root := fixProject(t)

	plan, err := PlanStructureFix(root)
	require.NoError(t, err)
	assert.Equal(t, []Move{
		{From: "res://a.gd", To: "res://scripts/a.gd"},
		{From: "res://b.tscn", To: "res://scenes/b.tscn"},
		{From: "res://sub/c.png", To: "res://assets/sub/c.png"},
	}, plan.Moves)
	assert.Empty(t, plan.Skipped)
	assert.Equal(t, 3, plan.Proposed)
	// project.godot, a.gd, b.tscn, sub/c.png, scripts/ok.gd, README.md
	assert.Equal(t, 6, plan.Scanned)
	assert.NotEmpty(t, plan.Rules)
}

func TestPlanStructureFix_Collisions(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"one/player.gd":     "",
		"two/player.gd":     "",
		"enemy.gd":          "",
		"scripts/enemy.gd":  "",
		"scenes/level.tscn": "",
	})

	plan, err := PlanStructureFix(root)
	require.NoError(t, err)
	assert.Empty(t, plan.Moves)
	assert.Equal(t, []SkippedEntry{
		{URI: "res://enemy.gd", Reason: "destination exists: res://scripts/enemy.gd"},
		{URI: "res://one/player.gd", Reason: "destination collision at res://scripts/player.gd"},
		{URI: "res://two/player.gd", Reason: "destination collision at res://scripts/player.gd"},
	}, plan.Skipped)
	assert.Zero(t, plan.Proposed)
}

func TestPlanStructureFix_EmptyProject(t *testing.T) {
	t.Parallel()
	plan, err := PlanStructureFix(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, plan.Moves)
	assert.NotNil(t, plan.Skipped)
	assert.Zero(t, plan.Scanned)
}

func TestStructureTarget(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rel    string
		want   string
		wantOK bool
	}{
		{"a.gd", "scripts/a.gd", true},
		{"deep/x/a.gd", "scripts/a.gd", true},
		{"scripts/sub/a.gd", "scripts/sub/a.gd", true},
		{"main.scn", "scenes/main.scn", true},
		{"ui/icon.SVG", "assets/ui/icon.SVG", true},
		{"assets/icon.png", "assets/icon.png", true},
		{"theme.tres", "", false},
		{"project.godot", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, ok := structureTarget(tt.rel)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyStructureFix_MovesBacksUpAndRewrites(t *testing.T) {
	t.Parallel()
	root := fixProject(t)

	plan, err := PlanStructureFix(root)
	require.NoError(t, err)

	summary, err := ApplyStructureFix(root, plan)
	require.NoError(t, err)
	assert.Equal(t, plan.Moves, summary.Moved)
	assert.Equal(t, 3, summary.BackedUp)
	assert.Equal(t, []FileEdit{
		{File: "project.godot", Kind: EditProjectSetting, Replacements: 2},
		{File: "scenes/b.tscn", Kind: EditExtResource, Replacements: 2},
		{File: "scripts/a.gd", Kind: EditPreload, Replacements: 2},
	}, summary.Edits)

	for _, rel := range []string{"scripts/a.gd", "scenes/b.tscn", "assets/sub/c.png"} {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(rel)))
	}
	for _, rel := range []string{"a.gd", "b.tscn", "sub/c.png"} {
		assert.NoFileExists(t, filepath.Join(root, filepath.FromSlash(rel)))
		assert.FileExists(t, filepath.Join(root, ".structure_fix", "backup", filepath.FromSlash(rel)))
	}
	assert.Equal(t, "png", readFile(t, root, ".structure_fix/backup/sub/c.png"))

	scene := readFile(t, root, "scenes/b.tscn")
	assert.Contains(t, scene, `path="res://scripts/a.gd"`)
	assert.Contains(t, scene, `path="res://assets/sub/c.png"`)

	script := readFile(t, root, "scripts/a.gd")
	assert.Contains(t, script, `preload("res://assets/sub/c.png")`)
	assert.Contains(t, script, `load("res://scenes/b.tscn")`)

	proj := readFile(t, root, "project.godot")
	assert.Contains(t, proj, `run/main_scene="res://scenes/b.tscn"`)
	assert.Contains(t, proj, `config/icon="res://assets/sub/c.png"`)

	// The moved layout is already conventional.
	again, err := PlanStructureFix(root)
	require.NoError(t, err)
	assert.Empty(t, again.Moves)
	assert.Empty(t, ScanResources(root))
}

func TestApplyStructureFix_SkipsMissingSource(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{"b.gd": "extends Node\n"})
	plan := &FixPlan{Moves: []Move{
		{From: "res://a.gd", To: "res://scripts/a.gd"},
		{From: "res://b.gd", To: "res://scripts/b.gd"},
	}}

	summary, err := ApplyStructureFix(root, plan)
	require.NoError(t, err)
	assert.Equal(t, []Move{{From: "res://b.gd", To: "res://scripts/b.gd"}}, summary.Moved)
	assert.Equal(t, 1, summary.BackedUp)
	assert.Empty(t, summary.Edits)
}

func TestApplyStructureFix_DestinationExistsIsError(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"a.gd":         "new",
		"b.gd":         "b",
		"scripts/a.gd": "old",
	})
	plan := &FixPlan{Moves: []Move{
		{From: "res://b.gd", To: "res://scripts/b.gd"},
		{From: "res://a.gd", To: "res://scripts/a.gd"},
	}}

	summary, err := ApplyStructureFix(root, plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination exists")
	assert.Equal(t, []Move{{From: "res://b.gd", To: "res://scripts/b.gd"}}, summary.Moved)
	assert.Equal(t, 2, summary.BackedUp)
	assert.Equal(t, "old", readFile(t, root, "scripts/a.gd"))
	_, statErr := os.Stat(filepath.Join(root, "a.gd"))
	assert.NoError(t, statErr)
}

func TestApplyStructureFix_RejectsNonResURI(t *testing.T) {
	t.Parallel()
	_, err := ApplyStructureFix(t.TempDir(), &FixPlan{Moves: []Move{{From: "/abs/a.gd", To: "res://scripts/a.gd"}}})
	require.Error(t, err)
}

func TestApplyStructureFix_NilPlan(t *testing.T) {
	t.Parallel()
	summary, err := ApplyStructureFix(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary.Moved)
}
