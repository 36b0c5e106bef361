// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"github.com/relabs-tech/activity_monitor/internal/cascade"
	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/classifier"
	"github.com/relabs-tech/activity_monitor/internal/config"
	"github.com/relabs-tech/activity_monitor/internal/imu"
)

// mockPhase is how many consecutive calls a mock stage holds one answer.
const mockPhase = 20

// BuildCascade loads the four classifier artifacts named in cfg. All of them
// are loaded and checked against the window shape and their stage's score
// width before the first tick, so a bad artifact fails startup. With mock
// set, canned classifiers walk through a few classes instead.
func BuildCascade(cfg *config.Config, mock bool) (*cascade.Cascade, error) {
	if mock {
		return mockCascade()
	}
	if err := cfg.ValidateModels(); err != nil {
		return nil, fmt.Errorf("%w: %v", classifier.ErrConfiguration, err)
	}

	paths := []string{cfg.Models.Meta, cfg.Models.Dynamic, cfg.Models.Static, cfg.Models.Respiratory}
	stages := make([]classifier.Classifier, len(paths))
	for i, path := range paths {
		m, err := classifier.LoadModel(path)
		if err != nil {
			return nil, err
		}
		stages[i] = m
	}
	return cascade.NewChecked(cfg.Pipeline.WindowSize, 2*imu.Axes, cascade.DefaultExpect,
		stages[0], stages[1], stages[2], stages[3])
}

func mockCascade() (*cascade.Cascade, error) {
	meta := &classifier.Stub{Cycle: true, Scores: phases(
		[]float64{0.8, 0.2},
		[]float64{0.2, 0.8},
	)}
	dynamic := &classifier.Stub{Cycle: true, Scores: phases(
		oneHot(category.DynamicClassCount, category.Walking.Code),
		oneHot(category.DynamicClassCount, category.Running.Code),
	)}
	static := &classifier.Stub{Cycle: true, Scores: phases(
		oneHot(cascade.DefaultExpect.Static, category.SittingStanding.Code-category.DynamicClassCount),
		oneHot(cascade.DefaultExpect.Static, category.LyingBack.Code-category.DynamicClassCount),
	)}
	respiratory := &classifier.Stub{Cycle: true, Scores: phases(
		oneHot(cascade.DefaultExpect.Respiratory, 2*category.BreathingNormal.Code),
		oneHot(cascade.DefaultExpect.Respiratory, 2*category.Coughing.Code),
	)}
	return cascade.New(meta, dynamic, static, respiratory)
}

// phases repeats every vector mockPhase times in order.
func phases(vectors ...[]float64) [][]float64 {
	out := make([][]float64, 0, len(vectors)*mockPhase)
	for _, v := range vectors {
		for i := 0; i < mockPhase; i++ {
			out = append(out, v)
		}
	}
	return out
}

func oneHot(n, hot int) []float64 {
	v := make([]float64, n)
	v[hot] = 1
	return v
}
