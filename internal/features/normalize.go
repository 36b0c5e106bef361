// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package features turns raw window rows into classifier inputs.
package features

import (
	"errors"
	"fmt"
)

// ErrWidthMismatch is returned when rows and profile disagree on column count.
var ErrWidthMismatch = errors.New("features: width mismatch")

// Profile holds the per-column mean and standard deviation a classifier
// was trained with. It is never mutated after construction.
type Profile struct {
	mean []float64
	std  []float64
}

// NewProfile validates and copies the training statistics.
// A zero std is accepted: the resulting Inf/NaN is propagated, not corrected.
func NewProfile(mean, std []float64) (Profile, error) {
	if len(mean) == 0 {
		return Profile{}, fmt.Errorf("features: empty profile")
	}
	if len(mean) != len(std) {
		return Profile{}, fmt.Errorf("%w: mean has %d values, std has %d", ErrWidthMismatch, len(mean), len(std))
	}
	return Profile{
		mean: append([]float64(nil), mean...),
		std:  append([]float64(nil), std...),
	}, nil
}

// Width returns the number of columns the profile normalizes.
func (p Profile) Width() int {
	return len(p.mean)
}

// Mean returns a copy of the mean vector.
func (p Profile) Mean() []float64 {
	return append([]float64(nil), p.mean...)
}

// Std returns a copy of the standard deviation vector.
func (p Profile) Std() []float64 {
	return append([]float64(nil), p.std...)
}

// Normalize returns a new matrix with (raw[j]-mean[j])/std[j] applied to
// every row. The input is left untouched.
func (p Profile) Normalize(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(p.mean) {
			return nil, fmt.Errorf("%w: row %d has %d columns, profile has %d", ErrWidthMismatch, i, len(row), len(p.mean))
		}
		norm := make([]float64, len(row))
		for j, v := range row {
			norm[j] = (v - p.mean[j]) / p.std[j]
		}
		out[i] = norm
	}
	return out, nil
}
