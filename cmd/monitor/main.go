// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/activity_monitor/internal/app"
	"github.com/relabs-tech/activity_monitor/internal/config"
	"github.com/relabs-tech/activity_monitor/internal/logger"
)

var (
	configPath string
	mock       bool
	console    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "monitor",
		Short:        "Classify activity and respiration from IMU streams",
		SilenceUsage: true,
		RunE:         runMonitorCmd,
	}
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the TOML config file")
	rootCmd.Flags().BoolVar(&mock, "mock", false, "use mock sensors and canned classifiers")
	rootCmd.Flags().BoolVar(&console, "console", false, "print label changes to stdout")
	return rootCmd
}

func runMonitorCmd(cmd *cobra.Command, _ []string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "activity-monitor")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunMonitor(ctx, cfg, app.MonitorOptions{
		Mock:    mock,
		Console: console,
		Out:     cmd.OutOrStdout(),
	}, log)
}
