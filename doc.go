// Package godotcheck statically analyzes Godot project trees. It checks the
// project.godot manifest and export presets, verifies resource references
// in scene and resource files, validates signal connections, lints
// GDScript sources, and plans and applies a reorganization of the project
// layout while rewriting the references that point at moved files.
//
// # Checks
//
// Every check is a pure function of the project tree on disk and can be
// used on its own:
//
//   - [ScanManifest] reports on project.godot, addons/ and export_presets.cfg.
//   - [ScanResources] finds ext_resource declarations pointing at missing files.
//   - [ValidateScene] and [SceneIssues] check node-level references in scenes.
//   - [ValidateSceneSignals] and [SignalIssues] check [connection] records.
//   - [LintScripts] runs the built-in GDScript rules.
//
// Findings never fail a scan. Missing or unreadable files are reported or
// skipped; only filesystem errors during a structure fix are returned as
// errors.
//
// # Usage
//
// An [Analyzer] runs the configured checks and folds them into one report:
//
//	a := godotcheck.New("path/to/game",
//		godotcheck.WithMinSeverity(godotcheck.Warn),
//		godotcheck.WithExcludes("vendor/**"),
//	)
//	report, err := a.Analyze(ctx)
//	if err != nil { ... }
//	sarif, err := godotcheck.ToSARIF(report)
//
// # Structure fix
//
// [PlanStructureFix] proposes moving scripts to scripts/, scenes to
// scenes/ and assets under assets/. [ApplyStructureFix] backs every moved
// file up under .structure_fix/backup/, renames it, and rewrites
// ext_resource paths, preload/load literals and project settings that
// referenced the old location.
//
// # Custom rules
//
// Lint rules written in Risor can be loaded with [WithRulesDir] or
// [WithRulesFS]. See the internal/runtime package for the globals exposed
// to rule scripts.
package godotcheck
