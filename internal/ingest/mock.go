// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"math"
	"time"

	"github.com/relabs-tech/activity_monitor/internal/imu"
)

// MockSource generates smoothly changing accelerometer values for one
// source. Values never hit exactly zero so every row completes.
type MockSource struct {
	source string
	start  time.Time
	now    func() time.Time
	phase  float64
}

// NewMockSource creates a generator for the given source name.
func NewMockSource(source string) *MockSource {
	phase := 0.0
	if source == imu.SourceWearable {
		phase = math.Pi / 3
	}
	return &MockSource{source: source, start: time.Now(), now: time.Now, phase: phase}
}

// Next implements imu.SampleSource.
func (m *MockSource) Next() (imu.Sample, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	return imu.Sample{
		Source:    m.source,
		Ax:        0.5 + 0.3*math.Sin(elapsed*2+m.phase),
		Ay:        -0.9 + 0.2*math.Cos(elapsed*1.3+m.phase),
		Az:        0.1*math.Sin(elapsed*0.7+m.phase) + 0.25,
		Timestamp: t.UnixMilli(),
	}, nil
}
