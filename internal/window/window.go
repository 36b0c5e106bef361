// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package window implements the fixed-size sliding buffer of multi-source
// samples fed to the classifiers.
package window

import (
	"fmt"
	"sync"
)

// Window is a fixed number of rows, oldest first, each row holding one
// triplet per source. A zero field means "not yet written".
//
// Rows behave like a ring buffer exposed as a dense array: once the newest
// row is complete the whole window shifts left by one and a zero row is
// appended. All methods are safe for concurrent use.
type Window struct {
	mu    sync.Mutex
	rows  [][]float64
	width int
}

// New creates a window of size rows by width columns.
func New(size, width int) (*Window, error) {
	if size <= 0 || width <= 0 {
		return nil, fmt.Errorf("window: invalid shape %dx%d", size, width)
	}
	rows := make([][]float64, size)
	for i := range rows {
		rows[i] = make([]float64, width)
	}
	return &Window{rows: rows, width: width}, nil
}

// Len returns the number of rows. It never changes.
func (w *Window) Len() int {
	return len(w.rows)
}

// Width returns the number of columns per row.
func (w *Window) Width() int {
	return w.width
}

// Put writes values into the newest row starting at column offset.
func (w *Window) Put(offset int, values []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.put(offset, values)
}

// AdvanceIfFull shifts the window when the newest row has no zero fields.
// It reports whether a shift happened.
func (w *Window) AdvanceIfFull() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advanceIfFull()
}

// PutAndAdvance is Put followed by AdvanceIfFull under a single lock, so a
// concurrent writer can never observe or cause a shift between the two.
func (w *Window) PutAndAdvance(offset int, values []float64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.put(offset, values); err != nil {
		return false, err
	}
	return w.advanceIfFull(), nil
}

// Snapshot returns a deep copy of the rows, oldest first.
func (w *Window) Snapshot() [][]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]float64, len(w.rows))
	for i, row := range w.rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// OldestEmpty reports whether the oldest row has never been filled, i.e.
// the window does not yet hold a full span of real data.
func (w *Window) OldestEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return RowEmpty(w.rows[0])
}

func (w *Window) put(offset int, values []float64) error {
	if offset < 0 || offset+len(values) > w.width {
		return fmt.Errorf("window: columns [%d,%d) out of range for width %d", offset, offset+len(values), w.width)
	}
	copy(w.rows[len(w.rows)-1][offset:], values)
	return nil
}

func (w *Window) advanceIfFull() bool {
	last := len(w.rows) - 1
	for _, v := range w.rows[last] {
		if v == 0 {
			return false
		}
	}
	oldest := w.rows[0]
	copy(w.rows, w.rows[1:])
	clear(oldest)
	w.rows[last] = oldest
	return true
}

// RowEmpty reports whether every field of a row is zero.
func RowEmpty(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}
