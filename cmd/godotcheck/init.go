package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/godotcheck/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagInitForce   bool
	flagInitHistory bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default " + config.FileName,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&flagInitHistory, "history", false, "enable the history database")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveTargetDir(firstArg(args))
	if err != nil {
		return outputError("init", err)
	}
	root := findProjectRoot(dir)
	path := filepath.Join(root, config.FileName)
	if _, err := os.Stat(path); err == nil && !flagInitForce {
		return outputError("init", fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	cfg := config.DefaultConfig()
	cfg.History.Enabled = flagInitHistory
	if err := config.SaveConfig(path, cfg); err != nil {
		return outputError("init", err)
	}
	return outputResult(CLIResult{Command: "init", Results: "Wrote " + path})
}
