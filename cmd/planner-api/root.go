package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stepfree/access-planner/internal/config"
	"github.com/stepfree/access-planner/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "planner-api",
	Short: "Accessibility evaluation api. Settings are read from the environment.",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}

// setup reads the configuration and installs the global logger. The returned
// func restores the previous logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
	undo := zap.ReplaceGlobals(logger)

	return cfg, func() {
		_ = logger.Sync()
		undo()
	}, nil
}
