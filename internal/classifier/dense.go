// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/activity_monitor/internal/features"
)

// Dense is a linear scorer over the flattened input: scores = W·x + b.
type Dense struct {
	weights *mat.Dense
	bias    *mat.VecDense
}

// NewDense builds a backend from a weight matrix (one row per output) and
// a bias vector.
func NewDense(weights [][]float64, bias []float64) (*Dense, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("%w: empty weight matrix", ErrConfiguration)
	}
	if len(bias) != len(weights) {
		return nil, fmt.Errorf("%w: %d weight rows but %d bias values", ErrConfiguration, len(weights), len(bias))
	}
	cols := len(weights[0])
	data := make([]float64, 0, len(weights)*cols)
	for i, row := range weights {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: weight row %d has %d values, want %d", ErrConfiguration, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Dense{
		weights: mat.NewDense(len(weights), cols, data),
		bias:    mat.NewVecDense(len(bias), append([]float64(nil), bias...)),
	}, nil
}

// Inputs returns the flattened input length the weights expect.
func (d *Dense) Inputs() int {
	_, c := d.weights.Dims()
	return c
}

// Scores implements Backend.
func (d *Dense) Scores(input [][]float64) ([]float64, error) {
	flat := make([]float64, 0, d.Inputs())
	for _, row := range input {
		flat = append(flat, row...)
	}
	if len(flat) != d.Inputs() {
		return nil, fmt.Errorf("dense: input has %d values, weights expect %d", len(flat), d.Inputs())
	}

	var y mat.VecDense
	y.MulVec(d.weights, mat.NewVecDense(len(flat), flat))
	y.AddVec(&y, d.bias)

	out := make([]float64, y.Len())
	for i := range out {
		out[i] = y.AtVec(i)
	}
	return out, nil
}

// Artifact is the on-disk description of a trained model.
type Artifact struct {
	Name        string      `json:"name"`
	InputHeight int         `json:"input_height"`
	InputWidth  int         `json:"input_width"`
	Outputs     int         `json:"outputs"`
	Mean        []float64   `json:"mean"`
	Std         []float64   `json:"std"`
	Weights     [][]float64 `json:"weights"`
	Bias        []float64   `json:"bias"`
}

// LoadArtifact reads a model artifact from a JSON file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: read model %s: %v", ErrConfiguration, path, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: parse model %s: %v", ErrConfiguration, path, err)
	}
	if a.Name == "" {
		a.Name = filepath.Base(path)
	}
	return &a, nil
}

// Build validates the artifact and returns a ready model.
func (a *Artifact) Build() (*Model, error) {
	profile, err := features.NewProfile(a.Mean, a.Std)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrConfiguration, a.Name, err)
	}
	dense, err := NewDense(a.Weights, a.Bias)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", a.Name, err)
	}
	if len(a.Weights) != a.Outputs {
		return nil, fmt.Errorf("%w: model %s declares %d outputs, weights have %d rows", ErrConfiguration, a.Name, a.Outputs, len(a.Weights))
	}
	if want := a.InputHeight * a.InputWidth; dense.Inputs() != want {
		return nil, fmt.Errorf("%w: model %s weights take %d inputs, shape %dx%d needs %d",
			ErrConfiguration, a.Name, dense.Inputs(), a.InputHeight, a.InputWidth, want)
	}
	return NewModel(a.Name, dense, profile, a.InputHeight, a.InputWidth, a.Outputs)
}

// LoadModel is LoadArtifact followed by Build.
func LoadModel(path string) (*Model, error) {
	a, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return a.Build()
}
