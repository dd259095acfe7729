package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/godotcheck"
	"github.com/jward/godotcheck/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// errFindings is returned when analyze finds issues at or above --fail-on.
// The report has already been written, so main exits without a message.
var errFindings = errors.New("issues at or above the fail-on severity")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled && !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "godotcheck",
	Short:         "Static analysis and layout fixes for Godot projects",
	Long:          "Godotcheck validates project.godot, scenes, resources, signal connections and GDScript files, and can reorganize a project into a conventional folder layout.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "history database path; setting it enables history (default: history.path from "+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text|json|sarif|junit")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
}

// newLogger returns the stderr logger handed to the analyzer.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// projectEnv is a resolved project root with its configuration.
type projectEnv struct {
	root string
	cfg  *config.Config
}

// loadProject resolves the project root for arg and loads its config.
func loadProject(arg string) (*projectEnv, error) {
	dir, err := resolveTargetDir(arg)
	if err != nil {
		return nil, err
	}
	root := findProjectRoot(dir)
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &projectEnv{root: root, cfg: cfg}, nil
}

// analyzer builds an Analyzer from the project config plus extra options.
func (p *projectEnv) analyzer(opts ...godotcheck.Option) *godotcheck.Analyzer {
	all := append(p.cfg.Options(), godotcheck.WithLogger(newLogger()))
	return godotcheck.New(p.root, append(all, opts...)...)
}

// historyEnabled reports whether runs for this project are recorded.
func (p *projectEnv) historyEnabled() bool {
	return flagDB != "" || p.cfg.History.Enabled
}

// openHistory opens the history database for this project.
func (p *projectEnv) openHistory() (*godotcheck.History, error) {
	return godotcheck.OpenHistory(resolveDBPath(p.root, p.cfg))
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// resolveTargetDir returns the absolute path of the directory to analyze.
func resolveTargetDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findProjectRoot walks up from startDir looking for project.godot.
// Returns the directory containing it, or startDir if not found.
func findProjectRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, "project.godot")); err == nil && !info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath(root string, cfg *config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(root, flagDB)
	}
	return cfg.HistoryPath(root)
}
