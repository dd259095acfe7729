package godotcheck

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/syntax"
)

var sceneExts = []string{".tscn", ".tres"}

// ScanResources reports every ext_resource declaration in a .tscn or .tres
// file under root whose res:// path does not exist. uid:// paths are not
// checked. Unreadable files are skipped.
func ScanResources(root string) []Issue {
	issues, _ := scanResources(project.NewWalker(root))
	return issues
}

func scanResources(w *project.Walker) ([]Issue, error) {
	files, err := w.Files(sceneExts...)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(w.Root(), filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			ext, ok := syntax.ParseExtResource(line)
			if !ok || !project.IsResURI(ext.Path) {
				continue
			}
			if !project.Exists(w.Root(), ext.Path) {
				issue := NewError(RuleGeneral, "Missing ext_resource path: "+ext.Path, rel)
				issue.Line = i + 1
				issues = append(issues, issue)
			}
		}
	}
	return issues, nil
}
