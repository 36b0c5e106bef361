// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logstore

import (
	"fmt"
	"sort"
	"time"

	"github.com/relabs-tech/activity_monitor/internal/category"
)

// Entry is one labelled interval read back from a log file.
type Entry struct {
	Class category.Class `json:"class"`
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
}

// Duration is the absolute time between Start and End.
func (e Entry) Duration() time.Duration {
	d := e.End.Sub(e.Start)
	if d < 0 {
		d = -d
	}
	return d.Truncate(time.Second)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s from %s to %s", e.Class, e.Start.Format(timeLayout), e.End.Format(timeLayout))
}

// Sum totals the duration of the entries per class code.
func Sum(entries []Entry) map[int]time.Duration {
	totals := make(map[int]time.Duration)
	for _, e := range entries {
		totals[e.Class.Code] += e.Duration()
	}
	return totals
}

// Total is the time spent in one class.
type Total struct {
	Class    category.Class `json:"class"`
	Duration time.Duration  `json:"duration"`
}

// Totals lists every defined class of cat with its summed time, in
// category order. Classes never seen get zero.
func Totals(cat category.Category, sums map[int]time.Duration) []Total {
	defined := cat.Defined()
	out := make([]Total, 0, len(defined))
	for _, c := range defined {
		out = append(out, Total{Class: c, Duration: sums[c.Code]})
	}
	return out
}

// Top returns up to n classes with the most time, Undefined and zero
// totals excluded. Equal durations keep category order.
func Top(cat category.Category, sums map[int]time.Duration, n int) []Total {
	all := Totals(cat, sums)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Duration > all[j].Duration
	})
	out := make([]Total, 0, n)
	for _, t := range all {
		if len(out) == n {
			break
		}
		if t.Duration <= 0 {
			break
		}
		out = append(out, t)
	}
	return out
}

// FormatDuration renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = -secs
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
