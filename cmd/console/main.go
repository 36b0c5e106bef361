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

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "console",
		Short:        "Print the labels published by a running monitor",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.InitGlobal(configPath); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := config.Get()
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "activity-console")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunConsole(ctx, cfg, cmd.OutOrStdout(), log)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the TOML config file")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
