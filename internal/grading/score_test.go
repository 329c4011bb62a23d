// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illinois/autograding/internal/gotest"
)

func scoreSuite() Suite {
	return Suite{
		Assignment: "calculator",
		Operation:  "add",
		Cases: []Case{
			{Name: "add_zeros", A: 0, B: 0, Want: 0, Points: 10},
			{Name: "two_plus_two", A: 2, B: 2, Want: 4, Points: 10},
		},
	}
}

func TestScoreFromTests(t *testing.T) {
	suite := scoreSuite()

	t.Run("all tests passing", func(t *testing.T) {
		report := ScoreFromTests(suite, &gotest.Result{Success: true, Total: 2, Passed: 2})

		assert.True(t, report.IsPassing())
		assert.Equal(t, 2, report.Passed)
		assert.Equal(t, 20, report.PointsEarned)
		assert.Equal(t, 20, report.PointsPossible)
	})

	t.Run("case subtest failure maps to its case", func(t *testing.T) {
		report := ScoreFromTests(suite, &gotest.Result{
			Total:  2,
			Passed: 1,
			Failed: 1,
			Failures: []gotest.Failure{{
				Test:    "TestAutograde/two_plus_two",
				Package: "example.com/submission",
				Message: "calculator_test.go:12: Add(2, 2) = 5, want 4",
			}},
		})

		require.Equal(t, 1, report.Failed)
		assert.Equal(t, 10, report.PointsEarned)

		byName := make(map[string]Outcome)
		for _, o := range report.Outcomes {
			byName[o.Case.Name] = o
		}
		assert.True(t, byName["add_zeros"].Passed)
		assert.False(t, byName["two_plus_two"].Passed)
		assert.Equal(t, "calculator_test.go:12: Add(2, 2) = 5, want 4", byName["two_plus_two"].Message)
	})

	t.Run("build failure discredits every case", func(t *testing.T) {
		report := ScoreFromTests(suite, &gotest.Result{
			Failures: []gotest.Failure{{
				Test:    "BUILD",
				Package: "example.com/submission",
				Message: "undefined: Add",
			}},
		})

		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, 0, report.PointsEarned)
		for _, o := range report.Outcomes {
			assert.Contains(t, o.Message, "submission failed to build: undefined: Add")
		}
	})

	t.Run("failure outside the case suite discredits every case", func(t *testing.T) {
		report := ScoreFromTests(suite, &gotest.Result{
			Total:  3,
			Passed: 2,
			Failed: 1,
			Failures: []gotest.Failure{{
				Test:    "TestHelpers",
				Package: "example.com/submission",
				Message: "helpers_test.go:8: boom",
			}},
		})

		assert.Equal(t, 2, report.Failed)
		for _, o := range report.Outcomes {
			assert.Equal(t, "helpers_test.go:8: boom", o.Message)
		}
	})

	t.Run("unmapped case subtest still fails the run", func(t *testing.T) {
		report := ScoreFromTests(suite, &gotest.Result{
			Failures: []gotest.Failure{{Test: "TestAutograde/ghost", Message: "x"}},
		})

		assert.Equal(t, 2, report.Failed)
	})

	t.Run("silent failure", func(t *testing.T) {
		report := ScoreFromTests(suite, &gotest.Result{})

		assert.Equal(t, 2, report.Failed)
		for _, o := range report.Outcomes {
			assert.Equal(t, "submission tests failed", o.Message)
		}
	})
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "got 5, want 4", failureMessage(gotest.Failure{Test: "TestAutograde/x", Message: "  got 5, want 4\n"}))
	assert.Equal(t, "TestAutograde/x panicked", failureMessage(gotest.Failure{Test: "TestAutograde/x", IsPanic: true}))
	assert.Equal(t, "TestAutograde/x failed", failureMessage(gotest.Failure{Test: "TestAutograde/x"}))
}
