// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package grading implements the core of the autograding harness: fixed
// input/expected pairs evaluated against a target function, each case
// classified pass or fail by exact equality, with outcomes collected into a
// report. A failed case never aborts evaluation of the remaining cases.
package grading

import "time"

// Target is the two-argument function a suite is graded against.
type Target func(a, b int) int

// Case is a single graded input/expected pair, fixed at authoring time.
type Case struct {
	Name   string `json:"name"`
	A      int    `json:"a"`
	B      int    `json:"b"`
	Want   int    `json:"want"`
	Points int    `json:"points"`
}

// Suite is an ordered collection of cases for one assignment.
type Suite struct {
	Assignment string `json:"assignment"`
	Operation  string `json:"operation"` // display name of the graded function
	Cases      []Case `json:"cases"`
}

// OperationName returns the display name used in mismatch messages.
func (s Suite) OperationName() string {
	if s.Operation == "" {
		return "add"
	}
	return s.Operation
}

// PointsPossible sums the point weights of all cases.
func (s Suite) PointsPossible() int {
	total := 0
	for _, c := range s.Cases {
		total += c.Points
	}
	return total
}

// Outcome records the evaluation of one case.
type Outcome struct {
	Case     Case          `json:"case"`
	Passed   bool          `json:"passed"`
	Got      int           `json:"got"`
	Message  string        `json:"message,omitempty"` // empty when the case passed
	Duration time.Duration `json:"duration"`
}

// Report aggregates the outcomes of a grading run.
type Report struct {
	RunID          string        `json:"run_id"`
	Assignment     string        `json:"assignment"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Outcomes       []Outcome     `json:"outcomes"`
	Total          int           `json:"total"`
	Passed         int           `json:"passed"`
	Failed         int           `json:"failed"`
	PointsEarned   int           `json:"points_earned"`
	PointsPossible int           `json:"points_possible"`
}

// IsPassing returns true if every case passed.
func (r *Report) IsPassing() bool {
	return r.Failed == 0 && r.Total > 0
}

const percentageMultiplier = 100

// PassRate returns the percentage of cases passing.
func (r *Report) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total) * percentageMultiplier
}

// Score returns the percentage of points earned.
func (r *Report) Score() float64 {
	if r.PointsPossible == 0 {
		return 0
	}
	return float64(r.PointsEarned) / float64(r.PointsPossible) * percentageMultiplier
}

// FailedNames returns the names of failed cases in report order.
func (r *Report) FailedNames() []string {
	names := make([]string, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.Passed {
			names = append(names, o.Case.Name)
		}
	}
	return names
}
