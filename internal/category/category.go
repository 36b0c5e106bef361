// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package category holds the closed sets of output classes produced by the
// classifiers (physical activity and respiratory state).
package category

import (
	"fmt"
	"strconv"
	"strings"
)

// UndefinedCode is shared by every category and is the fallback class.
const UndefinedCode = -1

// Class is one labelled member of a category.
// Code is persisted in the log files and must never change.
type Class struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Label   string `json:"label"`
	Dynamic bool   `json:"dynamic,omitempty"`
}

// IsUndefined reports whether c is the fallback class.
func (c Class) IsUndefined() bool {
	return c.Code == UndefinedCode
}

func (c Class) String() string {
	return c.Label
}

// Category describes one output space: its type name (used in file names
// and JSON payloads) and its classes in enumeration order, Undefined first.
type Category struct {
	Type    string
	Classes []Class
}

// Undefined returns the fallback class of the category.
func (c Category) Undefined() Class {
	return c.Classes[0]
}

// Find returns the class with the given code, or Undefined when unknown.
func (c Category) Find(code int) Class {
	for _, cl := range c.Classes {
		if cl.Code == code {
			return cl
		}
	}
	return c.Undefined()
}

// Parse reads a persisted class code. Unknown but well-formed codes map to
// Undefined; text that is not an integer is an error.
func (c Category) Parse(s string) (Class, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return c.Undefined(), fmt.Errorf("%s: invalid class code %q: %w", c.Type, s, err)
	}
	return c.Find(code), nil
}

// Defined returns every class except Undefined.
func (c Category) Defined() []Class {
	out := make([]Class, 0, len(c.Classes)-1)
	for _, cl := range c.Classes {
		if !cl.IsUndefined() {
			out = append(out, cl)
		}
	}
	return out
}

// Labels returns the display labels in enumeration order.
func (c Category) Labels() []string {
	out := make([]string, len(c.Classes))
	for i, cl := range c.Classes {
		out[i] = cl.Label
	}
	return out
}

var Activity = Category{
	Type: "physical_activity",
	Classes: []Class{
		{Code: UndefinedCode, Name: "UNDEFINED", Label: "Undefined"},
		{Code: 0, Name: "ASCENDING", Label: "Ascending", Dynamic: true},
		{Code: 1, Name: "DESCENDING", Label: "Descending", Dynamic: true},
		{Code: 2, Name: "MISC", Label: "Misc", Dynamic: true},
		{Code: 3, Name: "WALKING", Label: "Walking", Dynamic: true},
		{Code: 4, Name: "RUNNING", Label: "Running", Dynamic: true},
		{Code: 5, Name: "SHUFFLE", Label: "Shuffling", Dynamic: true},
		{Code: 6, Name: "LYING_BACK", Label: "Lying Back"},
		{Code: 7, Name: "LYING_LEFT", Label: "Lying Left"},
		{Code: 8, Name: "LYING_RIGHT", Label: "Lying Right"},
		{Code: 9, Name: "LYING_STOMACH", Label: "Lying Stomach"},
		{Code: 10, Name: "SITTING_STANDING", Label: "Sitting/Standing"},
	},
}

var Respiratory = Category{
	Type: "respiratory",
	Classes: []Class{
		{Code: UndefinedCode, Name: "UNDEFINED", Label: "Undefined"},
		{Code: 0, Name: "COUGHING", Label: "Coughing"},
		{Code: 1, Name: "HYPERVENTILATING", Label: "Hyperventilating"},
		{Code: 2, Name: "BREATHING_NORMAL", Label: "Breathing Normally"},
		{Code: 3, Name: "SOCIAL_SIGNAL", Label: "Social Signals"},
	},
}

// Activity codes used outside this package.
var (
	Ascending       = Activity.Find(0)
	Descending      = Activity.Find(1)
	Misc            = Activity.Find(2)
	Walking         = Activity.Find(3)
	Running         = Activity.Find(4)
	Shuffle         = Activity.Find(5)
	LyingBack       = Activity.Find(6)
	LyingLeft       = Activity.Find(7)
	LyingRight      = Activity.Find(8)
	LyingStomach    = Activity.Find(9)
	SittingStanding = Activity.Find(10)
)

// Respiratory codes used outside this package.
var (
	Coughing         = Respiratory.Find(0)
	Hyperventilating = Respiratory.Find(1)
	BreathingNormal  = Respiratory.Find(2)
	SocialSignal     = Respiratory.Find(3)
)

// ByType returns the category registered under the given type name.
func ByType(t string) (Category, bool) {
	switch t {
	case Activity.Type:
		return Activity, true
	case Respiratory.Type:
		return Respiratory, true
	}
	return Category{}, false
}
