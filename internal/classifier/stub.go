// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import "sync"

// Stub returns canned score vectors instead of running a model.
// With Cycle set it rotates through Scores on every call; otherwise it
// always returns the first vector. Used by tests and mock mode.
type Stub struct {
	Scores [][]float64
	Cycle  bool
	Err    error

	mu    sync.Mutex
	next  int
	calls int
}

// NewStub returns a stub that always answers with scores.
func NewStub(scores ...float64) *Stub {
	return &Stub{Scores: [][]float64{scores}}
}

// Classify implements Classifier.
func (s *Stub) Classify(_ [][]float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Scores) == 0 {
		return nil, nil
	}
	out := s.Scores[s.next]
	if s.Cycle {
		s.next = (s.next + 1) % len(s.Scores)
	}
	return append([]float64(nil), out...), nil
}

// Calls returns how many times Classify ran.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
