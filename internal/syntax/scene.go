// Package syntax holds the line-level extraction functions for Godot's
// text formats: scene/resource files (.tscn, .tres), GDScript sources and
// INI-like config files.
//
// The formats are matched per line with patterns instead of a grammar, so
// multi-line values may be misread. Callers only go through the functions
// here, which keeps a future parser swap local to this package.
package syntax

import (
	"regexp"
	"strings"
)

// Section names used by scene and resource files.
const (
	SectionExtResource = "ext_resource"
	SectionSubResource = "sub_resource"
	SectionNode        = "node"
	SectionConnection  = "connection"
)

// RootPath is the node path sentinel for the scene root.
const RootPath = "."

var (
	reSection     = regexp.MustCompile(`^\s*\[([A-Za-z_]+)\b`)
	reID          = regexp.MustCompile(`\bid\s*=\s*"?([A-Za-z0-9_]+)"?`)
	rePropExtRef  = regexp.MustCompile(`([A-Za-z0-9_/]+)\s*=\s*ExtResource\(\s*"?([A-Za-z0-9_]+)"?\s*\)`)
	reSubRef      = regexp.MustCompile(`SubResource\(\s*"?([A-Za-z0-9_]+)"?\s*\)`)
	reExtPathAttr = regexp.MustCompile(`(\bpath\s*=\s*")([^"]+)(")`)
)

// Section returns the section name of a header line such as
// `[node name="A"]`, or "" when line is not a header.
func Section(line string) string {
	m := reSection.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// Attr returns the quoted value of key="value" in line. The key must start
// the line or follow whitespace or '['.
func Attr(line, key string) (string, bool) {
	for i := 0; i < len(line); {
		j := strings.Index(line[i:], key)
		if j < 0 {
			return "", false
		}
		start := i + j
		i = start + len(key)
		if start > 0 && !isAttrBoundary(line[start-1]) {
			continue
		}
		rest := strings.TrimLeft(line[i:], " \t")
		if !strings.HasPrefix(rest, "=") {
			continue
		}
		rest = strings.TrimLeft(rest[1:], " \t")
		if !strings.HasPrefix(rest, `"`) {
			continue
		}
		rest = rest[1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return "", false
		}
		return rest[:end], true
	}
	return "", false
}

func isAttrBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '['
}

// ExtResource is an external-resource declaration header.
type ExtResource struct {
	ID   string
	Path string
}

// ParseExtResource parses an `[ext_resource ...]` header. ok is false when
// the line is not such a header; ID or Path may be empty when absent.
func ParseExtResource(line string) (ExtResource, bool) {
	if Section(line) != SectionExtResource {
		return ExtResource{}, false
	}
	var ext ExtResource
	if m := reID.FindStringSubmatch(line); m != nil {
		ext.ID = m[1]
	}
	if p, ok := Attr(line, "path"); ok {
		ext.Path = p
	}
	return ext, true
}

// SubResourceID returns the id declared by a `[sub_resource ...]` header.
func SubResourceID(line string) (string, bool) {
	if Section(line) != SectionSubResource {
		return "", false
	}
	m := reID.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Node is a `[node ...]` header.
type Node struct {
	Name      string
	Parent    string
	Path      string
	HasName   bool
	HasParent bool
	HasPath   bool
}

// ParseNode parses a node header line.
func ParseNode(line string) (Node, bool) {
	if Section(line) != SectionNode {
		return Node{}, false
	}
	var n Node
	n.Path, n.HasPath = Attr(line, "path")
	n.Name, n.HasName = Attr(line, "name")
	n.Parent, n.HasParent = Attr(line, "parent")
	return n, true
}

// FullPath derives the node path: the explicit path attribute when given,
// otherwise the name joined onto the parent. A parent of "." (or none)
// makes the node path the bare name.
func (n Node) FullPath() (string, bool) {
	if n.HasPath {
		return n.Path, true
	}
	if !n.HasName {
		return "", false
	}
	if !n.HasParent || n.Parent == RootPath {
		return n.Name, true
	}
	return n.Parent + "/" + n.Name, true
}

// IsRootChild reports whether the node hangs directly off the scene root
// (parent "." or no parent attribute) or is explicitly addressed as ".".
func (n Node) IsRootChild() bool {
	if n.HasPath {
		return n.Path == RootPath
	}
	return !n.HasParent || n.Parent == RootPath
}

// Connection is a `[connection ...]` record.
type Connection struct {
	Signal, From, To, Method             string
	HasSignal, HasFrom, HasTo, HasMethod bool
}

// ParseConnection parses a connection record line.
func ParseConnection(line string) (Connection, bool) {
	if Section(line) != SectionConnection {
		return Connection{}, false
	}
	var c Connection
	c.Signal, c.HasSignal = Attr(line, "signal")
	c.From, c.HasFrom = Attr(line, "from")
	c.To, c.HasTo = Attr(line, "to")
	c.Method, c.HasMethod = Attr(line, "method")
	return c, true
}

// Complete reports whether all four attributes are present.
func (c Connection) Complete() bool {
	return c.HasSignal && c.HasFrom && c.HasTo && c.HasMethod
}

// PropRef is a `prop = ExtResource("id")` assignment.
type PropRef struct {
	Prop string
	ID   string
}

// ExtResourceRefs returns every property assigned through ExtResource on
// line, in order of appearance.
func ExtResourceRefs(line string) []PropRef {
	matches := rePropExtRef.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}
	refs := make([]PropRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, PropRef{Prop: m[1], ID: m[2]})
	}
	return refs
}

// ScriptRef returns the id of a `script = ExtResource("id")` assignment.
func ScriptRef(line string) (string, bool) {
	for _, ref := range ExtResourceRefs(line) {
		if ref.Prop == "script" {
			return ref.ID, true
		}
	}
	return "", false
}

// SubResourceRefs returns the distinct SubResource ids referenced anywhere
// on line, including inside inline dictionaries and arrays.
func SubResourceRefs(line string) []string {
	matches := reSubRef.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids
}

// ReplaceExtResourcePath rewrites the first path="..." attribute of an
// ext_resource header through mapping. Returns the new line and whether a
// replacement happened.
func ReplaceExtResourcePath(line string, mapping map[string]string) (string, bool) {
	if Section(line) != SectionExtResource {
		return line, false
	}
	loc := reExtPathAttr.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, false
	}
	old := line[loc[4]:loc[5]]
	repl, ok := mapping[old]
	if !ok {
		return line, false
	}
	return line[:loc[4]] + repl + line[loc[5]:], true
}
