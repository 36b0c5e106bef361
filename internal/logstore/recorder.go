// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logstore

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/category"
)

// Recorder writes the activity and respiratory logs side by side.
type Recorder struct {
	Activity    *Store
	Respiratory *Store
}

// NewRecorder returns a recorder with one store per category under dir.
func NewRecorder(dir string, opts ...Option) *Recorder {
	return &Recorder{
		Activity:    NewStore(dir, category.Activity, opts...),
		Respiratory: NewStore(dir, category.Respiratory, opts...),
	}
}

// Write logs both labels. A failure in one category does not prevent the
// other from being written.
func (r *Recorder) Write(activity, respiratory category.Class) error {
	var err error
	if _, werr := r.Activity.Write(activity); werr != nil {
		err = multierr.Append(err, fmt.Errorf("activity log: %w", werr))
	}
	if _, werr := r.Respiratory.Write(respiratory); werr != nil {
		err = multierr.Append(err, fmt.Errorf("respiratory log: %w", werr))
	}
	return err
}

// Close ends the session by writing Undefined to both categories, which
// closes any open interval.
func (r *Recorder) Close() error {
	return r.Write(category.Activity.Undefined(), category.Respiratory.Undefined())
}

// Store returns the store for a category type name.
func (r *Recorder) Store(categoryType string) (*Store, bool) {
	switch categoryType {
	case r.Activity.Category().Type:
		return r.Activity, true
	case r.Respiratory.Category().Type:
		return r.Respiratory, true
	}
	return nil, false
}

// Report is the summed log of one category and day.
type Report struct {
	Category string  `json:"category"`
	Day      string  `json:"day"`
	Entries  []Entry `json:"entries"`
	Totals   []Total `json:"totals"`
	Top      []Total `json:"top"`
}

// TopCount is the number of classes highlighted in a report.
const TopCount = 3

// BuildReport parses the day and sums it. An unreadable day yields an
// empty report; the error is logged and not returned.
func BuildReport(s *Store, day time.Time, logger *zap.Logger) Report {
	entries, err := s.Parse(day)
	if err != nil {
		logger.Warn("log day unavailable",
			zap.String("category", s.Category().Type),
			zap.String("day", day.Format("2006-01-02")),
			zap.Error(err))
	}
	if entries == nil {
		entries = []Entry{}
	}
	sums := Sum(entries)
	return Report{
		Category: s.Category().Type,
		Day:      day.Format("2006-01-02"),
		Entries:  entries,
		Totals:   Totals(s.Category(), sums),
		Top:      Top(s.Category(), sums, TopCount),
	}
}
