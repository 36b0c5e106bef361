// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cascade turns a window snapshot into activity and respiratory
// labels by chaining the meta, branch and respiratory classifiers.
package cascade

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/classifier"
	"github.com/relabs-tech/activity_monitor/internal/window"
)

// Cascade holds one classifier per stage. It keeps no state between calls.
type Cascade struct {
	Meta        classifier.Classifier
	Dynamic     classifier.Classifier
	Static      classifier.Classifier
	Respiratory classifier.Classifier
}

// New checks that every stage is present.
func New(meta, dynamic, static, respiratory classifier.Classifier) (*Cascade, error) {
	if meta == nil || dynamic == nil || static == nil || respiratory == nil {
		return nil, fmt.Errorf("%w: cascade needs meta, dynamic, static and respiratory classifiers", classifier.ErrConfiguration)
	}
	return &Cascade{Meta: meta, Dynamic: dynamic, Static: static, Respiratory: respiratory}, nil
}

// Expect is the score width each stage must produce.
type Expect struct {
	Meta        int
	Dynamic     int
	Static      int
	Respiratory int
}

// DefaultExpect follows the category tables: two meta scores, one score
// per dynamic and per static activity, two per respiratory class.
var DefaultExpect = Expect{
	Meta:        2,
	Dynamic:     category.DynamicClassCount,
	Static:      len(category.Activity.Defined()) - category.DynamicClassCount,
	Respiratory: 2 * len(category.Respiratory.Defined()),
}

// NewChecked builds a cascade and checks every stage that declares its
// shape against a rows x cols window and the widths in expect.
func NewChecked(rows, cols int, expect Expect, meta, dynamic, static, respiratory classifier.Classifier) (*Cascade, error) {
	c, err := New(meta, dynamic, static, respiratory)
	if err != nil {
		return nil, err
	}
	checks := []struct {
		stage   string
		c       classifier.Classifier
		outputs int
	}{
		{"meta", meta, expect.Meta},
		{"dynamic", dynamic, expect.Dynamic},
		{"static", static, expect.Static},
		{"respiratory", respiratory, expect.Respiratory},
	}
	for _, chk := range checks {
		shaped, ok := chk.c.(classifier.Shaped)
		if !ok {
			continue
		}
		if err := shaped.Fits(rows, cols, chk.outputs); err != nil {
			return nil, fmt.Errorf("%s stage: %w", chk.stage, err)
		}
	}
	return c, nil
}

// Valid reports whether the window holds real data, i.e. the oldest row
// has been written.
func Valid(snapshot [][]float64) bool {
	return len(snapshot) > 0 && !window.RowEmpty(snapshot[0])
}

// ClassifyActivity runs the meta stage then the selected branch.
// An incomplete window yields Undefined without calling any classifier.
func (c *Cascade) ClassifyActivity(snapshot [][]float64) (category.Class, error) {
	if !Valid(snapshot) {
		return category.Activity.Undefined(), nil
	}

	meta, err := c.Meta.Classify(snapshot)
	if err != nil {
		return category.Activity.Undefined(), wrap("meta", err)
	}
	if len(meta) < 2 {
		return category.Activity.Undefined(), fmt.Errorf("%w: meta stage returned %d scores", classifier.ErrIntegration, len(meta))
	}

	// ties go to the static branch
	if meta[0] > meta[1] {
		scores, err := c.Dynamic.Classify(snapshot)
		if err != nil {
			return category.Activity.Undefined(), wrap("dynamic", err)
		}
		return category.DecodeActivity(scores, false), nil
	}

	scores, err := c.Static.Classify(snapshot)
	if err != nil {
		return category.Activity.Undefined(), wrap("static", err)
	}
	return category.DecodeActivity(scores, true), nil
}

// ClassifyRespiratory runs the respiratory stage unless the gating
// activity is dynamic or the window is incomplete.
func (c *Cascade) ClassifyRespiratory(snapshot [][]float64, gate category.Class) (category.Class, error) {
	if category.IsDynamic(gate) || !Valid(snapshot) {
		return category.Respiratory.Undefined(), nil
	}
	scores, err := c.Respiratory.Classify(snapshot)
	if err != nil {
		return category.Respiratory.Undefined(), wrap("respiratory", err)
	}
	return category.DecodeRespiratory(scores), nil
}

// wrap tags a stage failure as an integration failure.
func wrap(stage string, err error) error {
	if errors.Is(err, classifier.ErrIntegration) {
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	return fmt.Errorf("%s stage: %w: %v", stage, classifier.ErrIntegration, err)
}
