// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "fmt"

// Source names, as carried in MQTT payloads and config.
const (
	SourceChest    = "chest"    // chest-worn sensor (source A)
	SourceWearable = "wearable" // secondary wearable (source B)
)

// Axes is the number of values each source contributes to a window row.
const Axes = 3

// Sample represents a single accelerometer reading from one source.
type Sample struct {
	Source string `json:"source"` // "chest" or "wearable"

	Ax float64 `json:"ax"` // accel
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Timestamp int64 `json:"ts"` // unix milliseconds, sender clock
}

// Triplet returns the accelerometer values in window column order.
func (s Sample) Triplet() [Axes]float64 {
	return [Axes]float64{s.Ax, s.Ay, s.Az}
}

// Offset returns the first window column owned by a source.
func Offset(source string) (int, error) {
	switch source {
	case SourceChest:
		return 0, nil
	case SourceWearable:
		return Axes, nil
	}
	return 0, fmt.Errorf("unknown sample source %q", source)
}

// SampleSource is anything that delivers samples over time
// (mock generator, serial line reader, replay file).
type SampleSource interface {
	Next() (Sample, error)
}
