// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package summary archives per-day totals of the logbook in SQLite so
// history queries do not need to re-parse every day file.
package summary

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/relabs-tech/activity_monitor/internal/logstore"
)

const dayLayout = "2006-01-02"

// DayTotal is one archived (day, category, class) total.
type DayTotal struct {
	Day      string        `json:"day"`
	Category string        `json:"category"`
	Code     int           `json:"code"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS day_totals (
			day TEXT NOT NULL,
			category TEXT NOT NULL,
			code INTEGER NOT NULL,
			label TEXT NOT NULL,
			seconds INTEGER NOT NULL,
			archived_at TEXT NOT NULL,
			PRIMARY KEY (day, category, code)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_day_totals_category_day ON day_totals(category, day);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveDay replaces the archived totals of one category and day.
func (s *Store) SaveDay(ctx context.Context, category string, day time.Time, totals []logstore.Total) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	key := day.Format(dayLayout)
	if _, err = tx.ExecContext(ctx, `DELETE FROM day_totals WHERE day = ? AND category = ?`, key, category); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO day_totals (day, category, code, label, seconds, archived_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range totals {
		if _, err = stmt.ExecContext(ctx, key, category, t.Class.Code, t.Class.Label, int64(t.Duration/time.Second), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// History returns the archived totals of a category from since onwards,
// oldest day first.
func (s *Store) History(ctx context.Context, category string, since time.Time) ([]DayTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, category, code, label, seconds FROM day_totals
		 WHERE category = ? AND day >= ?
		 ORDER BY day ASC, code ASC`,
		category, since.Format(dayLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayTotal
	for rows.Next() {
		var (
			t       DayTotal
			seconds int64
		)
		if err := rows.Scan(&t.Day, &t.Category, &t.Code, &t.Label, &seconds); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(seconds) * time.Second
		out = append(out, t)
	}
	return out, rows.Err()
}
