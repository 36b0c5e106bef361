// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package category

// DynamicClassCount is the width of the dynamic classifier's output space.
// Static classifier indexes are offset by it in the unified activity space.
const DynamicClassCount = 6

// IsDynamic reports whether an activity involves whole-body movement.
// Respiratory classification is suppressed while a dynamic activity is current.
func IsDynamic(c Class) bool {
	return c.Dynamic
}

// ArgMax returns the index of the highest score, -1 for an empty vector.
// The first maximum wins on ties.
func ArgMax(scores []float64) int {
	best := -1
	for i, v := range scores {
		if best < 0 || v > scores[best] {
			best = i
		}
	}
	return best
}

// DecodeActivity maps a branch classifier's score vector onto the activity
// category. Scores from the static branch are offset by DynamicClassCount.
func DecodeActivity(scores []float64, static bool) Class {
	idx := ArgMax(scores)
	if idx < 0 {
		return Activity.Undefined()
	}
	if static {
		idx += DynamicClassCount
	}
	return Activity.Find(idx)
}

// DecodeRespiratory maps the respiratory classifier's score vector onto the
// respiratory category. The model emits two outputs per class, so the
// winning index is halved before lookup.
//
// The pairing has not been confirmed against the training label encoding;
// treat this as a fixed decode rule.
func DecodeRespiratory(scores []float64) Class {
	idx := ArgMax(scores)
	if idx < 0 {
		return Respiratory.Undefined()
	}
	return Respiratory.Find(idx / 2)
}
