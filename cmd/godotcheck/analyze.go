package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/jward/godotcheck"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagChecks      []string
	flagMinSeverity string
	flagFailOn      string
	flagJobs        int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path...]",
	Short: "Analyze one or more Godot projects",
	Long: "Runs the manifest, resource, scene, signal and lint checks over each project root. " +
		"Several roots are analyzed concurrently. Exits non-zero when an issue at or above --fail-on is found.",
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&flagChecks, "checks", nil, "checks to run: "+strings.Join(godotcheck.AllChecks, ",")+" (default: from config)")
	analyzeCmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "drop issues below this severity: info|warn|error (default: from config)")
	analyzeCmd.Flags().StringVar(&flagFailOn, "fail-on", "error", "exit non-zero on issues at or above this severity, or none")
	analyzeCmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "projects analyzed in parallel (default: GOMAXPROCS)")
}

// analyzeOptions turns the analyze flags into analyzer options layered over
// the project config.
func analyzeOptions(cmd *cobra.Command) ([]godotcheck.Option, error) {
	var opts []godotcheck.Option
	if cmd.Flags().Changed("checks") {
		opts = append(opts, godotcheck.WithChecks(flagChecks...))
	}
	if flagMinSeverity != "" {
		sev, err := godotcheck.ParseSeverity(flagMinSeverity)
		if err != nil {
			return nil, fmt.Errorf("--min-severity: %w", err)
		}
		opts = append(opts, godotcheck.WithMinSeverity(sev))
	}
	return opts, nil
}

// failThreshold parses --fail-on. ok is false for "none".
func failThreshold(s string) (sev godotcheck.Severity, ok bool, err error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return godotcheck.Info, false, nil
	}
	sev, err = godotcheck.ParseSeverity(s)
	if err != nil {
		return godotcheck.Info, false, fmt.Errorf("--fail-on: %w", err)
	}
	return sev, true, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	opts, err := analyzeOptions(cmd)
	if err != nil {
		return outputError("analyze", err)
	}
	threshold, failOn, err := failThreshold(flagFailOn)
	if err != nil {
		return outputError("analyze", err)
	}

	envs := make([]*projectEnv, len(args))
	for i, arg := range args {
		if envs[i], err = loadProject(arg); err != nil {
			return outputError("analyze", err)
		}
	}

	reports, edges, err := analyzeAll(cmd.Context(), envs, opts)
	if err != nil {
		return outputError("analyze", err)
	}

	// Recording is sequential: roots may share one --db file.
	for i, env := range envs {
		if !env.historyEnabled() {
			continue
		}
		if err := recordAnalysis(env, reports[i], edges[i]); err != nil {
			return outputError("analyze", err)
		}
	}

	if err := outputResult(CLIResult{Command: "analyze", Results: reports}); err != nil {
		return err
	}

	if failOn {
		for _, r := range reports {
			for _, is := range r.Issues {
				if is.Severity >= threshold {
					return errFindings
				}
			}
		}
	}
	return nil
}

// analyzeAll analyzes every project concurrently. The signal graph is
// collected only for projects that record history.
func analyzeAll(ctx context.Context, envs []*projectEnv, opts []godotcheck.Option) ([]*godotcheck.ProjectReport, [][]godotcheck.ConnectionEdge, error) {
	reports := make([]*godotcheck.ProjectReport, len(envs))
	edges := make([][]godotcheck.ConnectionEdge, len(envs))

	jobs := flagJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(envs)))

	for i, env := range envs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			a := env.analyzer(opts...)
			report, err := a.Analyze(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", env.root, err)
			}
			reports[i] = report
			if env.historyEnabled() {
				if edges[i], err = a.Graph(); err != nil {
					return fmt.Errorf("%s: %w", env.root, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return reports, edges, nil
}

func recordAnalysis(env *projectEnv, report *godotcheck.ProjectReport, edges []godotcheck.ConnectionEdge) error {
	h, err := env.openHistory()
	if err != nil {
		return err
	}
	defer h.Close()

	if _, err := h.RecordAnalysis(report, edges); err != nil {
		return err
	}
	if keep := env.cfg.History.Keep; keep > 0 {
		if _, err := h.Prune(env.root, keep); err != nil {
			return err
		}
	}
	return nil
}

var scenesCmd = &cobra.Command{
	Use:   "scenes [path]",
	Short: "Validate scene and resource files",
	Long:  "Lists the per-file findings of the scene and signal validators with their line and node path.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadProject(firstArg(args))
		if err != nil {
			return outputError("scenes", err)
		}
		found, err := env.analyzer().Scenes()
		if err != nil {
			return outputError("scenes", err)
		}
		return outputResult(CLIResult{Command: "scenes", Results: found})
	},
}

var flagDOT bool

var signalsCmd = &cobra.Command{
	Use:   "signals [path]",
	Short: "List the signal connections of every scene",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadProject(firstArg(args))
		if err != nil {
			return outputError("signals", err)
		}
		edges, err := env.analyzer().Graph()
		if err != nil {
			return outputError("signals", err)
		}
		if flagDOT {
			return outputResult(CLIResult{Command: "signals", Results: godotcheck.ConnectionsToDOT(edges)})
		}
		count := len(edges)
		return outputResult(CLIResult{Command: "signals", Results: edges, TotalCount: &count})
	},
}

func init() {
	signalsCmd.Flags().BoolVar(&flagDOT, "dot", false, "render the connections as a Graphviz digraph")
}

var lintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Lint GDScript files",
	Long:  "Runs the built-in GDScript rules and the custom Risor rules found in rules_dir.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadProject(firstArg(args))
		if err != nil {
			return outputError("lint", err)
		}
		findings, err := env.analyzer().Lint(cmd.Context())
		if err != nil {
			return outputError("lint", err)
		}
		return outputResult(CLIResult{Command: "lint", Results: findings})
	},
}
