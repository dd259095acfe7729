package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/godotcheck"
	"github.com/jward/godotcheck/internal/project"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Plan and apply a conventional folder layout",
	Long:  "Moves scripts to scripts/, scenes to scenes/ and assets to assets/, rewriting res:// references in scenes, resources, scripts and project.godot.",
}

var (
	flagPlanOut string
	flagPlanIn  string
)

var fixPlanCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Propose file moves without touching the project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFixPlan,
}

var fixApplyCmd = &cobra.Command{
	Use:   "apply [path]",
	Short: "Apply a structure plan, backing up every moved file",
	Long:  "Applies the plan read from --plan, or a freshly computed one when --plan is not given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFixApply,
}

func init() {
	fixPlanCmd.Flags().StringVarP(&flagPlanOut, "out", "o", "", "write the plan to this file (.json, otherwise YAML)")
	fixApplyCmd.Flags().StringVar(&flagPlanIn, "plan", "", "plan file written by \"fix plan --out\"")

	fixCmd.AddCommand(fixPlanCmd)
	fixCmd.AddCommand(fixApplyCmd)
}

func runFixPlan(cmd *cobra.Command, args []string) error {
	env, err := loadProject(firstArg(args))
	if err != nil {
		return outputError("fix plan", err)
	}
	plan, err := env.analyzer().Plan()
	if err != nil {
		return outputError("fix plan", err)
	}
	res := CLIPlanResult{Plan: plan}
	if flagPlanOut != "" {
		if err := writePlan(flagPlanOut, plan); err != nil {
			return outputError("fix plan", err)
		}
		res.Written = flagPlanOut
	}
	return outputResult(CLIResult{Command: "fix plan", Results: res})
}

func runFixApply(cmd *cobra.Command, args []string) error {
	env, err := loadProject(firstArg(args))
	if err != nil {
		return outputError("fix apply", err)
	}
	a := env.analyzer()

	var plan *godotcheck.FixPlan
	if flagPlanIn != "" {
		plan, err = readPlan(flagPlanIn)
	} else {
		plan, err = a.Plan()
	}
	if err != nil {
		return outputError("fix apply", err)
	}

	summary, applyErr := a.Apply(plan)
	res := CLIApplyResult{Summary: summary}

	// A failed apply still records the moves that happened before it.
	if summary != nil && env.historyEnabled() {
		h, err := env.openHistory()
		if err != nil {
			return outputError("fix apply", err)
		}
		run, err := h.RecordApply(env.root, summary)
		h.Close()
		if err != nil {
			return outputError("fix apply", err)
		}
		res.RunID = &run.ID
	}
	if applyErr != nil {
		return outputError("fix apply", applyErr)
	}
	return outputResult(CLIResult{Command: "fix apply", Results: res})
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// writePlan saves plan as JSON or YAML depending on the file extension.
func writePlan(path string, plan *godotcheck.FixPlan) error {
	var (
		data []byte
		err  error
	)
	if isJSONPath(path) {
		data, err = json.MarshalIndent(plan, "", "  ")
	} else {
		data, err = yaml.Marshal(plan)
	}
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if err := project.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// readPlan loads a plan written by writePlan.
func readPlan(path string) (*godotcheck.FixPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	var plan godotcheck.FixPlan
	if isJSONPath(path) {
		err = json.Unmarshal(data, &plan)
	} else {
		err = yaml.Unmarshal(data, &plan)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding plan %s: %w", path, err)
	}
	return &plan, nil
}
