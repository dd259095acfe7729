package godotcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/syntax"
)

// extDecl is an ext_resource declaration seen so far in a scene.
type extDecl struct {
	path string
	line int
}

// ValidateScene checks one scene or resource file (rel is relative to
// root) in a single pass. The ext_resource and sub_resource tables are
// filled as declarations are read, so a reference that precedes its
// declaration is reported as unknown. Every check is independent; one
// line can produce several findings. An unreadable file yields nothing.
func ValidateScene(root, rel string) []SceneIssue {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	v := sceneValidator{root: root, rel: rel, exts: make(map[string]extDecl), subs: make(map[string]bool)}
	for i, line := range strings.Split(string(data), "\n") {
		v.line(i+1, strings.TrimSuffix(line, "\r"))
	}
	return v.out
}

type sceneValidator struct {
	root, rel string
	exts      map[string]extDecl
	subs      map[string]bool
	node      *string
	out       []SceneIssue
}

func (v *sceneValidator) report(lno int, node *string, format string, args ...any) {
	v.out = append(v.out, SceneIssue{
		File:     v.rel,
		Line:     lno,
		NodePath: node,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (v *sceneValidator) line(lno int, line string) {
	switch syntax.Section(line) {
	case "":
	case syntax.SectionExtResource:
		v.node = nil
		ext, _ := syntax.ParseExtResource(line)
		if ext.ID != "" && ext.Path != "" {
			v.exts[ext.ID] = extDecl{path: ext.Path, line: lno}
		}
		if project.IsResURI(ext.Path) && !project.Exists(v.root, ext.Path) {
			v.report(lno, nil, "Missing ext_resource path: %s", ext.Path)
		}
		return
	case syntax.SectionSubResource:
		v.node = nil
		if id, ok := syntax.SubResourceID(line); ok {
			v.subs[id] = true
		}
	case syntax.SectionNode:
		v.node = nil
		if n, ok := syntax.ParseNode(line); ok {
			if p, ok := n.FullPath(); ok {
				v.node = &p
			}
		}
	default:
		v.node = nil
	}

	if script, ok := syntax.Attr(line, "script"); ok && project.IsResURI(script) && !project.Exists(v.root, script) {
		v.report(lno, v.node, "Missing script: %s", script)
	}

	for _, ref := range syntax.ExtResourceRefs(line) {
		decl, known := v.exts[ref.ID]
		switch {
		case !known:
			v.report(lno, v.node, "Unknown ExtResource id: %s", ref.ID)
		case !project.IsResURI(decl.path) || project.Exists(v.root, decl.path):
		case ref.Prop == "script":
			v.report(lno, v.node, "Script ExtResource(%s) missing file %s", ref.ID, decl.path)
		default:
			v.report(lno, v.node, "Property '%s' ExtResource(%s) missing file %s", ref.Prop, ref.ID, decl.path)
		}
	}

	for _, id := range syntax.SubResourceRefs(line) {
		if !v.subs[id] {
			v.report(lno, v.node, "Unknown SubResource id: %s", id)
		}
	}

	for _, call := range syntax.LoadCalls(line) {
		if project.Exists(v.root, call.Path) {
			continue
		}
		kind := "Load"
		if call.Kind == "preload" {
			kind = "Preload"
		}
		v.report(lno, v.node, "%s missing file: %s", kind, call.Path)
	}
}

// SceneIssues validates every .tscn and .tres file under root and folds the
// findings into issues tagged scene-validator.
func SceneIssues(root string) []Issue {
	issues, _ := sceneIssues(project.NewWalker(root))
	return issues
}

func sceneIssues(w *project.Walker) ([]Issue, error) {
	files, err := w.Files(sceneExts...)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, rel := range files {
		for _, si := range ValidateScene(w.Root(), rel) {
			issues = append(issues, foldSceneIssue(RuleScene, si))
		}
	}
	return issues, nil
}

// foldSceneIssue turns a per-file finding into a report issue, appending
// the node and line context to the message.
func foldSceneIssue(rule Rule, si SceneIssue) Issue {
	msg := si.Message
	if si.NodePath != nil {
		msg = fmt.Sprintf("%s (node %s, line %d)", msg, *si.NodePath, si.Line)
	} else {
		msg = fmt.Sprintf("%s (line %d)", msg, si.Line)
	}
	return Issue{Severity: si.Severity, Rule: rule, Message: msg, File: si.File, Line: si.Line}
}
