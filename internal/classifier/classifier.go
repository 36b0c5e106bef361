// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package classifier wraps the inference backends used by the cascade.
// A classifier takes window rows and returns one score per class of its own
// output space; scores are not required to be probabilities.
package classifier

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/activity_monitor/internal/features"
)

var (
	// ErrConfiguration marks problems that must stop the program at startup:
	// missing or malformed artifacts, profile/input width mismatch.
	ErrConfiguration = errors.New("classifier configuration error")

	// ErrIntegration marks an invocation that did not produce a score vector
	// of the expected width. It is fatal for the live pipeline.
	ErrIntegration = errors.New("classifier integration failure")
)

// Classifier is the capability consumed by the cascade.
// Implementations must be deterministic and free of side effects.
type Classifier interface {
	Classify(rows [][]float64) ([]float64, error)
}

// Shaped is implemented by classifiers that declare their input and
// output shape, so it can be checked before the first window arrives.
type Shaped interface {
	Fits(rows, cols, outputs int) error
}

// Backend computes raw scores from a normalized input matrix.
type Backend interface {
	Scores(input [][]float64) ([]float64, error)
}

// Model crops the window to its expected input shape, normalizes it with
// its own profile and runs the backend.
type Model struct {
	name    string
	backend Backend
	profile features.Profile
	height  int
	width   int
	outputs int
}

// NewModel checks that the profile matches the input width.
func NewModel(name string, backend Backend, profile features.Profile, height, width, outputs int) (*Model, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: model %s has no backend", ErrConfiguration, name)
	}
	if height <= 0 || width <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: model %s has invalid shape %dx%d -> %d", ErrConfiguration, name, height, width, outputs)
	}
	if profile.Width() != width {
		return nil, fmt.Errorf("%w: model %s expects %d input columns, profile has %d", ErrConfiguration, name, width, profile.Width())
	}
	return &Model{
		name:    name,
		backend: backend,
		profile: profile,
		height:  height,
		width:   width,
		outputs: outputs,
	}, nil
}

// Name identifies the model in logs.
func (m *Model) Name() string { return m.name }

// Outputs returns the width of the score vector.
func (m *Model) Outputs() int { return m.outputs }

// Input returns the number of rows and columns the model reads.
func (m *Model) Input() (height, width int) { return m.height, m.width }

// Fits checks the model against a rows x cols window and the score width
// its caller decodes.
func (m *Model) Fits(rows, cols, outputs int) error {
	if m.height > rows || m.width > cols {
		return fmt.Errorf("%w: model %s reads %dx%d, window is %dx%d", ErrConfiguration, m.name, m.height, m.width, rows, cols)
	}
	if m.outputs != outputs {
		return fmt.Errorf("%w: model %s has %d outputs, want %d", ErrConfiguration, m.name, m.outputs, outputs)
	}
	return nil
}

// Classify implements Classifier. Extra rows (newest, possibly partial)
// and extra columns (other sources) are ignored.
func (m *Model) Classify(rows [][]float64) ([]float64, error) {
	if len(rows) < m.height {
		return nil, fmt.Errorf("%w: model %s needs %d rows, got %d", ErrIntegration, m.name, m.height, len(rows))
	}
	input := make([][]float64, m.height)
	for i := 0; i < m.height; i++ {
		if len(rows[i]) < m.width {
			return nil, fmt.Errorf("%w: model %s needs %d columns, row %d has %d", ErrIntegration, m.name, m.width, i, len(rows[i]))
		}
		input[i] = rows[i][:m.width]
	}

	norm, err := m.profile.Normalize(input)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrIntegration, m.name, err)
	}

	scores, err := m.backend.Scores(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrIntegration, m.name, err)
	}
	if len(scores) != m.outputs {
		return nil, fmt.Errorf("%w: model %s returned %d scores, want %d", ErrIntegration, m.name, len(scores), m.outputs)
	}
	return scores, nil
}
