package godotcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/syntax"
)

var connectionSceneExts = []string{".tscn"}

// sceneTree is what the signal passes need to know about a scene's nodes.
type sceneTree struct {
	exts     map[string]string // ext_resource id -> path
	nodes    map[string]bool   // known node paths, including "."
	scripts  map[string]string // node path -> script res:// path
	rootNode string
	hasRoot  bool
}

func (t *sceneTree) known(path string) bool {
	return path == syntax.RootPath || t.nodes[path]
}

// buildSceneTree collects ext_resource paths, node paths and the script
// attached to each node. A script is picked up from the node header or
// from any line of the node's block.
func buildSceneTree(lines []string) *sceneTree {
	t := &sceneTree{
		exts:    make(map[string]string),
		nodes:   map[string]bool{syntax.RootPath: true},
		scripts: make(map[string]string),
	}
	for _, line := range lines {
		if ext, ok := syntax.ParseExtResource(line); ok && ext.ID != "" && ext.Path != "" {
			t.exts[ext.ID] = ext.Path
		}
	}

	var current *string
	for _, line := range lines {
		switch syntax.Section(line) {
		case "":
		case syntax.SectionNode:
			current = nil
			n, _ := syntax.ParseNode(line)
			p, ok := n.FullPath()
			if !ok {
				continue
			}
			t.nodes[p] = true
			current = &p
			if !t.hasRoot && n.IsRootChild() {
				t.rootNode, t.hasRoot = p, true
			}
		default:
			current = nil
			continue
		}
		if current == nil {
			continue
		}
		if id, ok := syntax.ScriptRef(line); ok {
			if path, ok := t.exts[id]; ok && project.IsResURI(path) {
				t.scripts[*current] = path
			}
		} else if path, ok := syntax.Attr(line, "script"); ok && project.IsResURI(path) {
			t.scripts[*current] = path
		}
	}
	return t
}

// targetScript returns the script attached to the node a connection
// targets. For "." it prefers a node addressed as "." and falls back to
// the first root node.
func (t *sceneTree) targetScript(to string) (string, bool) {
	node := to
	if to == syntax.RootPath {
		if _, ok := t.scripts[syntax.RootPath]; !ok {
			if !t.hasRoot {
				return "", false
			}
			node = t.rootNode
		}
	}
	s, ok := t.scripts[node]
	return s, ok
}

func readSceneLines(root, rel string) ([]string, bool) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, false
	}
	lines := strings.Split(string(data), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines, true
}

type connKey struct {
	signal, from, to, method string
}

// ValidateSceneSignals checks every [connection] record of one scene. An
// unreadable file yields nothing.
func ValidateSceneSignals(root, rel string) []SceneIssue {
	lines, ok := readSceneLines(root, rel)
	if !ok {
		return nil
	}
	tree := buildSceneTree(lines)

	var out []SceneIssue
	report := func(lno int, format string, args ...any) {
		out = append(out, SceneIssue{File: rel, Line: lno, Severity: Error, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[connKey]bool)
	for i, line := range lines {
		lno := i + 1
		c, ok := syntax.ParseConnection(line)
		if !ok {
			continue
		}
		if !c.HasSignal {
			report(lno, `Connection missing signal field; hint: set signal="<name>" in [connection]`)
		}
		if !c.HasMethod {
			report(lno, `Connection missing method field; hint: set method="<func>" and ensure the target node's script defines it`)
		}
		if !c.HasFrom {
			report(lno, `Connection missing from field; hint: set from="<node_path>" (use '.' for the scene root)`)
		} else if !tree.known(c.From) {
			report(lno, "Unknown connection 'from' node: %s; hint: create node or correct the 'from' path", c.From)
		}
		if !c.HasTo {
			report(lno, `Connection missing to field; hint: set to="<node_path>" (use '.' for the scene root)`)
		} else if !tree.known(c.To) {
			report(lno, "Unknown connection 'to' node: %s; hint: create node or correct the 'to' path", c.To)
		}
		if !c.Complete() {
			continue
		}

		key := connKey{c.Signal, c.From, c.To, c.Method}
		if seen[key] {
			report(lno, "Duplicate connection: signal=%s from=%s to=%s method=%s; hint: remove the duplicate [connection] line",
				c.Signal, c.From, c.To, c.Method)
		}
		seen[key] = true

		method := strings.TrimSpace(c.Method)
		if !syntax.ValidIdentifier(method) {
			report(lno, "Invalid method name: '%s'; hint: use letters/numbers/underscore and start with a letter/underscore", c.Method)
			continue
		}
		script, ok := tree.targetScript(c.To)
		if !ok || !project.HasExt(script, ".gd") {
			// Non-GDScript targets are not checked.
			continue
		}
		abs, _ := project.Resolve(root, script)
		src, err := os.ReadFile(abs)
		if err != nil {
			continue
		}
		if !syntax.DeclaresFunc(string(src), method) {
			report(lno, "Target method not found: method='%s' to='%s'; hint: define 'func %s(...)' in %s",
				method, c.To, method, script)
		}
	}
	return out
}

// SignalIssues validates the connections of every scene under root and
// folds the findings into issues tagged signal-validator.
func SignalIssues(root string) []Issue {
	issues, _ := signalIssues(project.NewWalker(root))
	return issues
}

func signalIssues(w *project.Walker) ([]Issue, error) {
	files, err := w.Files(connectionSceneExts...)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, rel := range files {
		for _, si := range ValidateSceneSignals(w.Root(), rel) {
			issues = append(issues, foldSceneIssue(RuleSignal, si))
		}
	}
	return issues, nil
}

// ExtractSceneConnections returns the well-formed connections of one scene:
// all four attributes present and both endpoints known. Nothing is
// reported for the rest.
func ExtractSceneConnections(root, rel string) []ConnectionEdge {
	lines, ok := readSceneLines(root, rel)
	if !ok {
		return nil
	}
	tree := buildSceneTree(lines)
	var edges []ConnectionEdge
	for _, line := range lines {
		c, ok := syntax.ParseConnection(line)
		if !ok || !c.Complete() || !tree.known(c.From) || !tree.known(c.To) {
			continue
		}
		edges = append(edges, ConnectionEdge{Scene: rel, From: c.From, To: c.To, Signal: c.Signal, Method: c.Method})
	}
	sortEdges(edges)
	return edges
}

// SignalGraph collects the well-formed connections of every scene under
// root.
func SignalGraph(root string) []ConnectionEdge {
	edges, _ := signalGraph(project.NewWalker(root))
	return edges
}

func signalGraph(w *project.Walker) ([]ConnectionEdge, error) {
	files, err := w.Files(connectionSceneExts...)
	if err != nil {
		return nil, err
	}
	var edges []ConnectionEdge
	for _, rel := range files {
		edges = append(edges, ExtractSceneConnections(w.Root(), rel)...)
	}
	sortEdges(edges)
	return edges, nil
}

func sortEdges(edges []ConnectionEdge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].less(edges[j]) })
}

// ConnectionsToDOT renders edges as a left-to-right directed graph. Node
// ids are "<scene>:<node>" so equal node names in different scenes stay
// apart.
func ConnectionsToDOT(edges []ConnectionEdge) string {
	esc := func(s string) string { return strings.ReplaceAll(s, `"`, `\"`) }
	var b strings.Builder
	b.WriteString("digraph Signals {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, e := range edges {
		fmt.Fprintf(&b, "  \"%s\" -> \"%s\" [label=\"%s\"];\n",
			esc(e.Scene+":"+e.From), esc(e.Scene+":"+e.To), esc(e.Signal+":"+e.Method))
	}
	b.WriteString("}\n")
	return b.String()
}
