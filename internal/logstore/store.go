// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logstore persists smoothed labels as one CSV file per category
// and day, and reads them back as labelled time intervals.
//
// A file only records label changes: consecutive duplicates are never
// written, so each line marks the start of a run that lasts until the
// next line.
package logstore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/category"
)

const (
	// Header is the first line of every log file.
	Header = "TIMESTAMP, ID"

	dayLayout  = "2006_01_02"
	timeLayout = "15:04:05"
)

// Store reads and writes the log files of one category.
type Store struct {
	dir    string
	cat    category.Category
	now    func() time.Time
	logger *zap.Logger

	mu sync.Mutex
	// last code written to lastPath, read from disk once per file
	lastPath string
	last     int
	lastOK   bool
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for writes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger for write and parse diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, cat category.Category, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		cat:    cat,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Category returns the category this store logs.
func (s *Store) Category() category.Category { return s.cat }

// FileName returns the log file name for the given day.
func (s *Store) FileName(day time.Time) string {
	return s.cat.Type + "_recording_" + day.Format(dayLayout) + ".csv"
}

// Path returns the full path of the log file for the given day.
func (s *Store) Path(day time.Time) string {
	return filepath.Join(s.dir, s.FileName(day))
}

// Write appends c to today's file unless the last recorded code is the
// same. It reports whether a line was written.
func (s *Store) Write(c category.Class) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	path := s.Path(now)
	created, err := s.setup(path)
	if err != nil {
		return false, err
	}

	if created || path != s.lastPath {
		code, ok, err := lastCode(path)
		if err != nil {
			s.lastPath = ""
			return false, fmt.Errorf("read %s: %w", path, err)
		}
		s.lastPath, s.last, s.lastOK = path, code, ok
	}
	if s.lastOK && s.last == c.Code {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s,%d\n", now.Format(timeLayout), c.Code); err != nil {
		s.lastPath = ""
		return false, fmt.Errorf("append %s: %w", path, err)
	}
	s.last, s.lastOK = c.Code, true
	s.logger.Debug("label logged",
		zap.String("category", s.cat.Type),
		zap.String("label", c.Name),
		zap.String("file", filepath.Base(path)))
	return true, nil
}

// setup creates the directory and the file with its header when missing.
// created reports whether the file was new.
func (s *Store) setup(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(Header + "\n"); err != nil {
		return true, fmt.Errorf("write header %s: %w", path, err)
	}
	return true, nil
}

// lastCode returns the code of the last data line. ok is false when the
// file has no parsable data line after the header.
func lastCode(path string) (code int, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return 0, false, err
	}
	if last == "" {
		return 0, false, nil
	}
	_, code, perr := splitLine(last)
	if perr != nil {
		return 0, false, nil
	}
	return code, true, nil
}

// Parse reads the given day and returns its entries newest first.
// Each entry runs from its own line to the following line; the newest
// line gives a zero-length entry. Malformed lines are skipped.
// A missing or unreadable file returns no entries and the error.
func (s *Store) Parse(day time.Time) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(day)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	type record struct {
		at   time.Time
		code int
	}
	var records []record
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		clock, code, err := splitLine(line)
		if err != nil {
			s.logger.Debug("skipping malformed log line",
				zap.String("file", filepath.Base(path)),
				zap.Int("line", lineNo),
				zap.Error(err))
			continue
		}
		records = append(records, record{at: onDay(day, clock), code: code})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(records))
	end := time.Time{}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if i == len(records)-1 {
			end = r.at
		}
		start, stop := r.at, end
		if stop.Before(start) {
			start, stop = stop, start
		}
		entries = append(entries, Entry{Class: s.cat.Find(r.code), Start: start, End: stop})
		end = r.at
	}
	return entries, nil
}

// Days lists the days that have a log file, oldest first.
func (s *Store) Days() ([]time.Time, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.cat.Type+"_recording_*.csv"))
	if err != nil {
		return nil, err
	}
	prefix := s.cat.Type + "_recording_"
	days := make([]time.Time, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".csv")
		day, err := time.ParseInLocation(dayLayout, name, time.Local)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// splitLine parses "HH:MM:SS,<code>".
func splitLine(line string) (time.Time, int, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("want 2 fields, got %d", len(parts))
	}
	clock, err := time.Parse(timeLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad time %q: %w", parts[0], err)
	}
	code, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad code %q: %w", parts[1], err)
	}
	return clock, code, nil
}

// onDay places a time of day on the calendar day of day, in day's location.
func onDay(day, clock time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
}
