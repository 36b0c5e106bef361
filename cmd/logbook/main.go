// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/app"
	"github.com/relabs-tech/activity_monitor/internal/config"
	"github.com/relabs-tech/activity_monitor/internal/logger"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
	"github.com/relabs-tech/activity_monitor/internal/summary"
)

const defaultHistoryDays = 7

var (
	configPath string

	showDay      string
	showCategory string

	archiveDay string
	archiveAll bool

	historyDays     int
	historyCategory string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "logbook",
		Short:        "Inspect and archive the activity logbook",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the TOML config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the entries and totals of a day",
		RunE:  runShowCmd,
	}
	showCmd.Flags().StringVar(&showDay, "day", "", "day as YYYY-MM-DD (default today)")
	showCmd.Flags().StringVar(&showCategory, "category", "", "physical_activity or respiratory (default both)")

	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Store the totals of a day in the summary database",
		RunE:  runArchiveCmd,
	}
	archiveCmd.Flags().StringVar(&archiveDay, "day", "", "day as YYYY-MM-DD (default today)")
	archiveCmd.Flags().BoolVar(&archiveAll, "all", false, "archive every day found in the logbook directory")
	archiveCmd.MarkFlagsMutuallyExclusive("day", "all")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print archived totals",
		RunE:  runHistoryCmd,
	}
	historyCmd.Flags().IntVar(&historyDays, "days", defaultHistoryDays, "number of days to show, today included")
	historyCmd.Flags().StringVar(&historyCategory, "category", "", "physical_activity or respiratory (default both)")

	rootCmd.AddCommand(showCmd, archiveCmd, historyCmd)
	return rootCmd
}

func setup() (*config.Config, *zap.Logger, error) {
	if err := config.InitGlobal(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "activity-logbook")
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runShowCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	day, err := app.ParseDay(showDay, time.Now())
	if err != nil {
		return err
	}
	rec := logstore.NewRecorder(cfg.Logbook.Dir, logstore.WithLogger(log))
	return app.ShowDay(cmd.OutOrStdout(), rec, day, showCategory, log)
}

func runArchiveCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := summary.Open(cfg.Summary.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	rec := logstore.NewRecorder(cfg.Logbook.Dir, logstore.WithLogger(log))
	if archiveAll {
		n, err := app.ArchiveAll(cmd.Context(), db, rec, log)
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d day(s)\n", n)
		return err
	}

	day, err := app.ParseDay(archiveDay, time.Now())
	if err != nil {
		return err
	}
	return app.ArchiveDay(cmd.Context(), db, rec, day, log)
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := summary.Open(cfg.Summary.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return app.PrintHistory(cmd.Context(), cmd.OutOrStdout(), db, historyCategory, historyDays, time.Now())
}
