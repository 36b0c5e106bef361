// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one column of a window.
type Stats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summary is the per-column statistics of a window plus the statistics of
// the magnitude of its first triplet (chest accelerometer).
type Summary struct {
	Columns   []Stats `json:"columns"`
	Magnitude Stats   `json:"magnitude"`
}

// Summarize computes mean, population std, min and max of every column.
func Summarize(rows [][]float64) Summary {
	if len(rows) == 0 {
		return Summary{}
	}
	width := len(rows[0])
	s := Summary{Columns: make([]Stats, width)}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		s.Columns[j] = stats(col)
	}

	if width >= 3 {
		for i, row := range rows {
			col[i] = math.Sqrt(row[0]*row[0] + row[1]*row[1] + row[2]*row[2])
		}
		s.Magnitude = stats(col)
	}
	return s
}

func stats(data []float64) Stats {
	mean, std := stat.PopMeanStdDev(data, nil)
	return Stats{
		Mean: mean,
		Std:  std,
		Min:  floats.Min(data),
		Max:  floats.Max(data),
	}
}
