package main

import (
	"fmt"
	"os"

	"github.com/jward/godotcheck"
	"github.com/jward/godotcheck/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit  int
	flagHistoryRun    int64
	flagHistoryAll    bool
	flagHistoryDelete int64
)

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show recorded analysis and apply runs",
	Long:  "Lists the runs recorded for the project, newest first. --run shows what one run recorded and --delete removes it.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum runs to list (0 for all)")
	historyCmd.Flags().Int64Var(&flagHistoryRun, "run", 0, "show one run in detail")
	historyCmd.Flags().BoolVar(&flagHistoryAll, "all", false, "list runs of every project in the database")
	historyCmd.Flags().Int64Var(&flagHistoryDelete, "delete", 0, "delete one run and everything recorded with it")
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := loadProject(firstArg(args))
	if err != nil {
		return outputError("history", err)
	}
	dbPath := resolveDBPath(env.root, env.cfg)
	if _, err := os.Stat(dbPath); err != nil {
		return outputError("history", fmt.Errorf("no history database at %s (enable history in %s or pass --db)", dbPath, config.FileName))
	}
	h, err := godotcheck.OpenHistory(dbPath)
	if err != nil {
		return outputError("history", err)
	}
	defer h.Close()

	if flagHistoryDelete != 0 {
		if err := h.DeleteRun(flagHistoryDelete); err != nil {
			return outputError("history", err)
		}
		return outputResult(CLIResult{Command: "history", Results: fmt.Sprintf("Deleted run #%d", flagHistoryDelete)})
	}

	if flagHistoryRun != 0 {
		detail, err := runDetail(h, flagHistoryRun)
		if err != nil {
			return outputError("history", err)
		}
		return outputResult(CLIResult{Command: "history", Results: detail})
	}

	var runs []*godotcheck.Run
	if flagHistoryAll {
		runs, err = h.Runs(flagHistoryLimit)
	} else {
		runs, err = h.ProjectRuns(env.root, flagHistoryLimit)
	}
	if err != nil {
		return outputError("history", err)
	}
	return outputResult(CLIResult{Command: "history", Results: toCLIRuns(runs)})
}

// runDetail loads run id with everything recorded for it.
func runDetail(h *godotcheck.History, id int64) (CLIRunDetail, error) {
	run, err := h.Run(id)
	if err != nil {
		return CLIRunDetail{}, err
	}
	if run == nil {
		return CLIRunDetail{}, fmt.Errorf("run %d not found", id)
	}
	d := CLIRunDetail{
		Run:         toCLIRun(run),
		Issues:      []godotcheck.Issue{},
		Connections: []godotcheck.ConnectionEdge{},
		Moves:       []godotcheck.Move{},
		Edits:       []godotcheck.FileEdit{},
	}

	issues, err := h.RunIssues(id)
	if err != nil {
		return CLIRunDetail{}, err
	}
	for _, ri := range issues {
		d.Issues = append(d.Issues, toIssue(ri))
	}
	conns, err := h.RunConnections(id)
	if err != nil {
		return CLIRunDetail{}, err
	}
	for _, c := range conns {
		d.Connections = append(d.Connections, godotcheck.ConnectionEdge{
			Scene: c.Scene, From: c.From, To: c.To, Signal: c.Signal, Method: c.Method,
		})
	}
	moves, err := h.RunMoves(id)
	if err != nil {
		return CLIRunDetail{}, err
	}
	for _, m := range moves {
		d.Moves = append(d.Moves, godotcheck.Move{From: m.From, To: m.To})
	}
	edits, err := h.RunEdits(id)
	if err != nil {
		return CLIRunDetail{}, err
	}
	for _, e := range edits {
		d.Edits = append(d.Edits, godotcheck.FileEdit{File: e.File, Kind: e.Kind, Replacements: e.Replacements})
	}
	return d, nil
}
