package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jward/godotcheck"
	"github.com/jward/godotcheck/internal/project"
	"github.com/spf13/cobra"
)

// stateDir holds the config-adjacent files the CLI writes itself.
const stateDir = ".godotcheck"

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-analyze a project whenever its files change",
	Long:  "Analyzes the project once, then again after every burst of file changes until interrupted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 300*time.Millisecond, "quiet period before re-analyzing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := loadProject(firstArg(args))
	if err != nil {
		return outputError("watch", err)
	}
	opts, err := analyzeOptions(cmd)
	if err != nil {
		return outputError("watch", err)
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trigger := func() {
		a := env.analyzer(opts...)
		report, err := a.Analyze(ctx)
		if err != nil {
			logger.Error("watch.analyze", "root", env.root, "err", err)
			return
		}
		if env.historyEnabled() {
			edges, err := a.Graph()
			if err == nil {
				err = recordAnalysis(env, report, edges)
			}
			if err != nil {
				logger.Error("watch.history", "root", env.root, "err", err)
			}
		}
		if err := outputResult(CLIResult{Command: "watch", Results: []*godotcheck.ProjectReport{report}}); err != nil {
			logger.Error("watch.output", "err", err)
		}
	}

	w := project.NewWalker(env.root, project.WithExcludes(env.cfg.Exclude...), project.WithSkipDirs(stateDir))
	if err := watchProject(ctx, w, flagDebounce, logger, trigger); err != nil {
		return outputError("watch", err)
	}
	return nil
}

// watchProject calls trigger once, then after every debounced burst of
// events outside ignored paths, until ctx is done. trigger always runs on
// the calling goroutine.
func watchProject(ctx context.Context, w *project.Walker, debounce time.Duration, logger *slog.Logger, trigger func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer watcher.Close()

	dirs, err := w.Dirs()
	if err != nil {
		return err
	}
	for _, rel := range dirs {
		if err := watcher.Add(filepath.Join(w.Root(), filepath.FromSlash(rel))); err != nil {
			return fmt.Errorf("watch %s: %w", rel, err)
		}
	}
	logger.Debug("watch.start", "root", w.Root(), "dirs", len(dirs))

	trigger()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel := project.Rel(w.Root(), ev.Name)
			if w.Ignored(rel) {
				continue
			}
			// New directories are not covered by the existing watches.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						logger.Warn("watch.add", "dir", rel, "err", err)
					}
				}
			}
			logger.Debug("watch.event", "path", rel, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch.error", "err", err)
		}
	}
}
