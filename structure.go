package godotcheck

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/godotcheck/internal/project"
	"github.com/jward/godotcheck/internal/syntax"
)

// Target top-level directories of the structure fix.
const (
	scriptsDir = "scripts"
	scenesDir  = "scenes"
	assetsDir  = "assets"
)

var (
	planSceneExts = []string{".tscn", ".scn"}
	assetExts     = []string{
		".png", ".jpg", ".jpeg", ".webp", ".svg", ".bmp", ".tga",
		".wav", ".ogg", ".mp3",
		".ttf", ".otf", ".woff", ".woff2",
		".gdshader", ".shader",
		".material",
	}
)

// planRules describes the layout the planner proposes, in plan documents.
var planRules = []string{
	"*.gd -> scripts/<name>",
	"*.tscn, *.scn -> scenes/<name>",
	"images, audio, fonts, shaders, materials -> assets/<path>",
}

// Skip reasons recorded in FixPlan.Skipped.
const (
	SkipCollision  = "destination collision"
	SkipDestExists = "destination exists"
)

// backupRoot is where ApplyStructureFix copies originals, relative to the
// project root.
var backupRoot = project.BackupDir + "/backup"

// PlanStructureFix proposes moving scripts, scenes and assets into their
// conventional top-level directories. Files already under their target
// directory, addons/ and import sidecars are left alone. Sources whose
// destination is shared with another source or already exists are
// reported as skipped rather than moved.
func PlanStructureFix(root string) (*FixPlan, error) {
	return planStructureFix(project.NewWalker(root, project.WithSkipDirs(addonsDir)))
}

func planStructureFix(w *project.Walker) (*FixPlan, error) {
	files, err := w.Files()
	if err != nil {
		return nil, fmt.Errorf("structure: plan: %w", err)
	}

	plan := &FixPlan{Rules: planRules, Moves: []Move{}, Skipped: []SkippedEntry{}}
	byDest := make(map[string][]string)
	for _, rel := range files {
		if project.HasExt(rel, ".import") {
			continue
		}
		plan.Scanned++
		dest, ok := structureTarget(rel)
		if !ok || dest == rel {
			continue
		}
		byDest[dest] = append(byDest[dest], rel)
	}

	for dest, sources := range byDest {
		if len(sources) > 1 {
			for _, src := range sources {
				plan.Skipped = append(plan.Skipped, SkippedEntry{
					URI:    project.ToURI(src),
					Reason: SkipCollision + " at " + project.ToURI(dest),
				})
			}
			continue
		}
		if _, err := os.Stat(filepath.Join(w.Root(), filepath.FromSlash(dest))); err == nil {
			plan.Skipped = append(plan.Skipped, SkippedEntry{
				URI:    project.ToURI(sources[0]),
				Reason: SkipDestExists + ": " + project.ToURI(dest),
			})
			continue
		}
		plan.Moves = append(plan.Moves, Move{From: project.ToURI(sources[0]), To: project.ToURI(dest)})
	}

	sort.Slice(plan.Moves, func(i, j int) bool {
		if plan.Moves[i].From != plan.Moves[j].From {
			return plan.Moves[i].From < plan.Moves[j].From
		}
		return plan.Moves[i].To < plan.Moves[j].To
	})
	sort.Slice(plan.Skipped, func(i, j int) bool {
		return plan.Skipped[i].URI < plan.Skipped[j].URI
	})
	plan.Proposed = len(plan.Moves)
	return plan, nil
}

// structureTarget returns the project-relative destination for rel, or
// false when the file is not reorganized. A file already under its target
// directory maps onto itself.
func structureTarget(rel string) (string, bool) {
	top, _, nested := strings.Cut(rel, "/")
	base := path.Base(rel)
	switch {
	case project.HasExt(rel, scriptExts...):
		if nested && top == scriptsDir {
			return rel, true
		}
		return scriptsDir + "/" + base, true
	case project.HasExt(rel, planSceneExts...):
		if nested && top == scenesDir {
			return rel, true
		}
		return scenesDir + "/" + base, true
	case project.HasExt(rel, assetExts...):
		if nested && top == assetsDir {
			return rel, true
		}
		return assetsDir + "/" + rel, true
	}
	return "", false
}

// ApplyStructureFix performs plan under root: every move is backed up to
// .structure_fix/backup/<path> and renamed, then references to the moved
// files are rewritten. Moves whose source no longer exists are skipped.
// On error the summary of the steps already taken is returned with it;
// nothing is rolled back.
func ApplyStructureFix(root string, plan *FixPlan) (*ApplySummary, error) {
	return applyStructureFix(project.NewWalker(root), plan, discardLogger())
}

func applyStructureFix(w *project.Walker, plan *FixPlan, logger *slog.Logger) (*ApplySummary, error) {
	root := w.Root()
	summary := &ApplySummary{Moved: []Move{}, Edits: []FileEdit{}}
	if plan == nil {
		return summary, nil
	}

	mapping := make(map[string]string, len(plan.Moves))
	for _, m := range plan.Moves {
		fromRel, ok := project.FromURI(m.From)
		if !ok {
			return summary, fmt.Errorf("structure: move source %q is not a res:// URI", m.From)
		}
		toRel, ok := project.FromURI(m.To)
		if !ok {
			return summary, fmt.Errorf("structure: move destination %q is not a res:// URI", m.To)
		}
		mapping[m.From] = m.To

		from := filepath.Join(root, filepath.FromSlash(fromRel))
		to := filepath.Join(root, filepath.FromSlash(toRel))
		if _, err := os.Stat(from); errors.Is(err, fs.ErrNotExist) {
			logger.Debug("structure.skip_missing", "from", m.From)
			continue
		}

		backup := filepath.Join(root, filepath.FromSlash(backupRoot), filepath.FromSlash(fromRel))
		if err := project.CopyFileAtomic(from, backup); err != nil {
			return summary, fmt.Errorf("structure: backup %s: %w", m.From, err)
		}
		summary.BackedUp++

		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return summary, fmt.Errorf("structure: create %s: %w", filepath.Dir(toRel), err)
		}
		if _, err := os.Stat(to); err == nil {
			return summary, fmt.Errorf("structure: destination exists: %s", m.To)
		}
		if err := os.Rename(from, to); err != nil {
			return summary, fmt.Errorf("structure: move %s -> %s: %w", m.From, m.To, err)
		}
		summary.Moved = append(summary.Moved, m)
		logger.Info("structure.move", "from", m.From, "to", m.To)
	}

	if len(mapping) == 0 {
		return summary, nil
	}
	edits, err := rewriteReferences(w, mapping, logger)
	summary.Edits = append(summary.Edits, edits...)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// rewriteReferences replaces moved URIs in scene/resource ext_resource
// headers, GDScript preload/load literals and the project.godot icon and
// main scene settings.
func rewriteReferences(w *project.Walker, mapping map[string]string, logger *slog.Logger) ([]FileEdit, error) {
	files, err := w.Files(append(append([]string{}, sceneExts...), scriptExts...)...)
	if err != nil {
		return nil, fmt.Errorf("structure: rewrite: %w", err)
	}
	if _, err := os.Stat(filepath.Join(w.Root(), projectFile)); err == nil {
		files = append(files, projectFile)
	}

	var edits []FileEdit
	for _, rel := range files {
		var (
			kind    string
			rewrite func(string) (string, int)
		)
		switch {
		case rel == projectFile:
			kind = EditProjectSetting
			rewrite = func(line string) (string, int) {
				for _, key := range []string{keyIcon, keyMainScene} {
					if out, ok := syntax.ReplaceValue(line, key, mapping); ok {
						return out, 1
					}
				}
				return line, 0
			}
		case project.HasExt(rel, sceneExts...):
			kind = EditExtResource
			rewrite = func(line string) (string, int) {
				if out, ok := syntax.ReplaceExtResourcePath(line, mapping); ok {
					return out, 1
				}
				return line, 0
			}
		default:
			kind = EditPreload
			rewrite = func(line string) (string, int) {
				return syntax.ReplaceLoadPaths(line, mapping)
			}
		}

		n, err := rewriteFile(filepath.Join(w.Root(), filepath.FromSlash(rel)), rewrite)
		if err != nil {
			return edits, fmt.Errorf("structure: rewrite %s: %w", rel, err)
		}
		if n > 0 {
			edits = append(edits, FileEdit{File: rel, Kind: kind, Replacements: n})
			logger.Info("structure.rewrite", "file", rel, "kind", kind, "replacements", n)
		}
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].File < edits[j].File })
	return edits, nil
}

// rewriteFile applies rewrite to every line of the file at abs and writes
// it back when anything changed. Unreadable files count as unchanged.
func rewriteFile(abs string, rewrite func(string) (string, int)) (int, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return 0, nil
	}
	lines := strings.Split(string(data), "\n")
	total := 0
	for i, line := range lines {
		out, n := rewrite(line)
		if n > 0 {
			lines[i] = out
			total += n
		}
	}
	if total == 0 {
		return 0, nil
	}
	if err := project.WriteFileAtomic(abs, []byte(strings.Join(lines, "\n"))); err != nil {
		return 0, err
	}
	return total, nil
}
