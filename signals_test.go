package godotcheck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalsScene = `[gd_scene load_steps=2 format=3]

[ext_resource type="Script" path="res://main.gd" id="1"]

[node name="Main" type="Node2D"]
script = ExtResource("1")

[node name="Button" type="Button" parent="."]

[connection signal="pressed" from="Button" to="." method="_on_pressed"]
[connection signal="pressed" from="Button" to="." method="_on_pressed"]
[connection signal="pressed" from="Button" to="." method="_on_missing"]
[connection signal="pressed" from="Button" to="Ghost" method="_on_pressed"]
[connection signal="pressed" from="Button" to="." method="1bad"]
[connection from="Button" to="."]
`

func TestValidateSceneSignals(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"main.gd":   "extends Node2D\n\nfunc _on_pressed():\n\tpass\n",
		"main.tscn": signalsScene,
	})

	issues := ValidateSceneSignals(root, "main.tscn")
	assert.Equal(t, []string{
		"Duplicate connection: signal=pressed from=Button to=. method=_on_pressed; hint: remove the duplicate [connection] line",
		"Target method not found: method='_on_missing' to='.'; hint: define 'func _on_missing(...)' in res://main.gd",
		"Unknown connection 'to' node: Ghost; hint: create node or correct the 'to' path",
		"Invalid method name: '1bad'; hint: use letters/numbers/underscore and start with a letter/underscore",
		`Connection missing signal field; hint: set signal="<name>" in [connection]`,
		`Connection missing method field; hint: set method="<func>" and ensure the target node's script defines it`,
	}, sceneMessages(issues))

	assert.Equal(t, 11, issues[0].Line)
	assert.Equal(t, 12, issues[1].Line)
	assert.Equal(t, 13, issues[2].Line)
	assert.Equal(t, 14, issues[3].Line)
	assert.Equal(t, 15, issues[4].Line)
	assert.Equal(t, 15, issues[5].Line)
}

func TestValidateSceneSignals_DuplicateReportedOnce(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"a.tscn": `[node name="A" type="Node"]
[node name="B" type="Node" parent="."]
[connection signal="s" from="B" to="." method="m"]
[connection signal="s" from="B" to="." method="m"]
`,
	})

	issues := ValidateSceneSignals(root, "a.tscn")
	require.Len(t, issues, 1)
	assert.True(t, strings.HasPrefix(issues[0].Message, "Duplicate connection:"))
	assert.Equal(t, 4, issues[0].Line)
}

func TestValidateSceneSignals_MethodLookup(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"hud.gd":    "extends Control\nstatic func on_hit(x):\n\tpass\n",
		"enemy.cs":  "public partial class Enemy : Node {}\n",
		"player.gd": "extends Node\n",
		"game.tscn": `[gd_scene format=3]
[ext_resource type="Script" path="res://hud.gd" id="1"]
[ext_resource type="Script" path="res://enemy.cs" id="2"]
[node name="Game" type="Node" script="res://player.gd"]
[node name="HUD" type="Control" parent="."]
script = ExtResource("1")
[node name="Enemy" type="Node" parent="."]
script = ExtResource("2")
[connection signal="hit" from="Enemy" to="HUD" method="on_hit"]
[connection signal="hit" from="HUD" to="Enemy" method="AnyMethod"]
[connection signal="hit" from="HUD" to="." method="on_hit"]
`,
	})

	issues := ValidateSceneSignals(root, "game.tscn")
	assert.Equal(t, []string{
		"Target method not found: method='on_hit' to='.'; hint: define 'func on_hit(...)' in res://player.gd",
	}, sceneMessages(issues))
}

func TestValidateSceneSignals_UnknownFrom(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"x.tscn": `[node name="X" type="Node"]
[connection signal="s" from="Nope/Child" to="." method="m"]
`,
	})
	assert.Equal(t, []string{
		"Unknown connection 'from' node: Nope/Child; hint: create node or correct the 'from' path",
	}, sceneMessages(ValidateSceneSignals(root, "x.tscn")))
}

func TestExtractSceneConnections_SkipsMalformed(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"main.gd":   "extends Node2D\n",
		"main.tscn": signalsScene,
	})

	edges := ExtractSceneConnections(root, "main.tscn")
	assert.Equal(t, []ConnectionEdge{
		{Scene: "main.tscn", From: "Button", To: ".", Signal: "pressed", Method: "1bad"},
		{Scene: "main.tscn", From: "Button", To: ".", Signal: "pressed", Method: "_on_missing"},
		{Scene: "main.tscn", From: "Button", To: ".", Signal: "pressed", Method: "_on_pressed"},
		{Scene: "main.tscn", From: "Button", To: ".", Signal: "pressed", Method: "_on_pressed"},
	}, edges)
}

func TestSignalGraph_DOT(t *testing.T) {
	t.Parallel()
	root := writeProject(t, map[string]string{
		"b.tscn": `[node name="R" type="Node"]
[node name="Timer" type="Timer" parent="."]
[connection signal="timeout" from="Timer" to="." method="_on_timeout"]
[connection signal="timeout" from="Timer" to="Missing" method="_on_timeout"]
`,
		"a.tscn": `[node name="R" type="Node"]
[node name="Btn" type="Button" parent="."]
[connection signal="pressed" from="Btn" to="." method="_on_btn"]
`,
	})

	edges := SignalGraph(root)
	require.Len(t, edges, 2)
	assert.Equal(t, "a.tscn", edges[0].Scene)
	assert.Equal(t, "b.tscn", edges[1].Scene)

	dot := ConnectionsToDOT(edges)
	assert.Equal(t, `digraph Signals {
  rankdir=LR;
  "a.tscn:Btn" -> "a.tscn:." [label="pressed:_on_btn"];
  "b.tscn:Timer" -> "b.tscn:." [label="timeout:_on_timeout"];
}
`, dot)
	assert.NotContains(t, dot, "Missing")

	issues := SignalIssues(root)
	var msgs []string
	for _, i := range issues {
		assert.Equal(t, RuleSignal, i.Rule)
		msgs = append(msgs, i.Message)
	}
	assert.Contains(t, msgs, "Unknown connection 'to' node: Missing; hint: create node or correct the 'to' path (line 4)")
}

func TestConnectionsToDOT_EscapesQuotes(t *testing.T) {
	t.Parallel()
	dot := ConnectionsToDOT([]ConnectionEdge{{Scene: "s.tscn", From: `A"1`, To: ".", Signal: "sig", Method: "m"}})
	assert.Contains(t, dot, `"s.tscn:A\"1" -> "s.tscn:." [label="sig:m"];`)
}

func TestConnectionsToDOT_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "digraph Signals {\n  rankdir=LR;\n}\n", ConnectionsToDOT(nil))
}
