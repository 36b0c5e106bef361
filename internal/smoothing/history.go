// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package smoothing suppresses single-tick classification noise with a
// majority vote over the most recent results.
package smoothing

import (
	"sync"

	"github.com/relabs-tech/activity_monitor/internal/category"
)

// DefaultDepth is the number of ticks the vote looks back.
const DefaultDepth = 3

// History is a fixed-depth record of recent classes for one category,
// oldest first. It starts filled with Undefined.
type History struct {
	mu      sync.Mutex
	cat     category.Category
	entries []category.Class
}

// New returns a history of the given depth. Depth below 1 falls back to
// DefaultDepth.
func New(cat category.Category, depth int) *History {
	if depth < 1 {
		depth = DefaultDepth
	}
	entries := make([]category.Class, depth)
	for i := range entries {
		entries[i] = cat.Undefined()
	}
	return &History{cat: cat, entries: entries}
}

// Push drops the oldest entry and appends c.
func (h *History) Push(c category.Class) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copy(h.entries, h.entries[1:])
	h.entries[len(h.entries)-1] = c
}

// PushMode pushes c and returns the resulting mode under one lock.
func (h *History) PushMode(c category.Class) category.Class {
	h.mu.Lock()
	defer h.mu.Unlock()
	copy(h.entries, h.entries[1:])
	h.entries[len(h.entries)-1] = c
	return h.mode()
}

// Mode returns the most frequent class. Ties go to the class seen most
// recently.
func (h *History) Mode() category.Class {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode()
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []category.Class {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]category.Class(nil), h.entries...)
}

func (h *History) mode() category.Class {
	if len(h.entries) == 0 {
		return h.cat.Undefined()
	}
	counts := make(map[int]int, len(h.entries))
	top := 0
	for _, c := range h.entries {
		counts[c.Code]++
		if counts[c.Code] > top {
			top = counts[c.Code]
		}
	}
	for i := len(h.entries) - 1; i >= 0; i-- {
		if counts[h.entries[i].Code] == top {
			return h.entries[i]
		}
	}
	return h.cat.Undefined()
}
