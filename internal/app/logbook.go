// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
	"github.com/relabs-tech/activity_monitor/internal/summary"
)

// DayLayout is the day format accepted on the command line.
const DayLayout = "2006-01-02"

// ParseDay reads a YYYY-MM-DD day in local time. An empty string is today.
func ParseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	day, err := time.ParseInLocation(DayLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

// stores returns the recorder stores of the selected category type, or
// both when categoryType is empty.
func stores(rec *logstore.Recorder, categoryType string) ([]*logstore.Store, error) {
	if categoryType == "" {
		return []*logstore.Store{rec.Activity, rec.Respiratory}, nil
	}
	s, ok := rec.Store(categoryType)
	if !ok {
		return nil, fmt.Errorf("unknown category %q, want %s or %s",
			categoryType, category.Activity.Type, category.Respiratory.Type)
	}
	return []*logstore.Store{s}, nil
}

// ShowDay prints the entries, totals and top classes of a day.
func ShowDay(w io.Writer, rec *logstore.Recorder, day time.Time, categoryType string, logger *zap.Logger) error {
	selected, err := stores(rec, categoryType)
	if err != nil {
		return err
	}
	for i, s := range selected {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeReport(w, logstore.BuildReport(s, day, logger)); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(w io.Writer, r logstore.Report) error {
	fmt.Fprintf(w, "%s %s\n", r.Category, r.Day)
	if len(r.Entries) == 0 {
		fmt.Fprintln(w, "  no entries")
		return nil
	}
	for _, e := range r.Entries {
		fmt.Fprintf(w, "  %s\n", e)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CLASS\tTIME")
	for _, t := range r.Totals {
		fmt.Fprintf(tw, "  %s\t%s\n", t.Class.Label, logstore.FormatDuration(t.Duration))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for i, t := range r.Top {
		fmt.Fprintf(w, "  #%d %s (%s)\n", i+1, t.Class.Label, logstore.FormatDuration(t.Duration))
	}
	return nil
}

// ArchiveDay stores the totals of both categories for day in db.
func ArchiveDay(ctx context.Context, db *summary.Store, rec *logstore.Recorder, day time.Time, logger *zap.Logger) error {
	var err error
	for _, s := range []*logstore.Store{rec.Activity, rec.Respiratory} {
		r := logstore.BuildReport(s, day, logger)
		if saveErr := db.SaveDay(ctx, r.Category, day, r.Totals); saveErr != nil {
			err = multierr.Append(err, fmt.Errorf("archive %s %s: %w", r.Category, r.Day, saveErr))
			continue
		}
		logger.Info("day archived",
			zap.String("category", r.Category),
			zap.String("day", r.Day),
			zap.Int("entries", len(r.Entries)))
	}
	return err
}

// LoggedDays lists every day that has a log file in either category,
// oldest first.
func LoggedDays(rec *logstore.Recorder) ([]time.Time, error) {
	seen := make(map[string]time.Time)
	for _, s := range []*logstore.Store{rec.Activity, rec.Respiratory} {
		days, err := s.Days()
		if err != nil {
			return nil, fmt.Errorf("list %s days: %w", s.Category().Type, err)
		}
		for _, d := range days {
			seen[d.Format(DayLayout)] = d
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// ArchiveAll archives every logged day. It returns the number of days
// archived; failures on one day do not stop the others.
func ArchiveAll(ctx context.Context, db *summary.Store, rec *logstore.Recorder, logger *zap.Logger) (int, error) {
	days, err := LoggedDays(rec)
	if err != nil {
		return 0, err
	}
	var archived int
	for _, day := range days {
		if dayErr := ArchiveDay(ctx, db, rec, day, logger); dayErr != nil {
			err = multierr.Append(err, dayErr)
			continue
		}
		archived++
	}
	return archived, err
}

// PrintHistory prints the archived totals of the last days days, today
// included. Zero totals are left out.
func PrintHistory(ctx context.Context, w io.Writer, db *summary.Store, categoryType string, days int, now time.Time) error {
	if days < 1 {
		return fmt.Errorf("days must be at least 1, got %d", days)
	}
	types := []string{category.Activity.Type, category.Respiratory.Type}
	if categoryType != "" {
		if _, ok := category.ByType(categoryType); !ok {
			return fmt.Errorf("unknown category %q", categoryType)
		}
		types = []string{categoryType}
	}

	today, _ := ParseDay("", now)
	since := today.AddDate(0, 0, -(days - 1))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tCATEGORY\tCLASS\tTIME")
	for _, t := range types {
		totals, err := db.History(ctx, t, since)
		if err != nil {
			return err
		}
		for _, dt := range totals {
			if dt.Duration <= 0 {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", dt.Day, dt.Category, dt.Label, logstore.FormatDuration(dt.Duration))
		}
	}
	return tw.Flush()
}
