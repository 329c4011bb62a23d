// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTarget(a, b int) int { return a + b }

func TestRunnerRun(t *testing.T) {
	tests := []struct {
		name        string
		suite       Suite
		target      Target
		wantErr     bool
		errContains string
		validate    func(t *testing.T, report *Report)
	}{
		{
			name: "all cases pass",
			suite: Suite{
				Assignment: "calculator",
				Cases: []Case{
					{Name: "zeros", A: 0, B: 0, Want: 0, Points: 5},
					{Name: "positive", A: 2, B: 3, Want: 5, Points: 5},
					{Name: "negative", A: -4, B: -6, Want: -10, Points: 5},
				},
			},
			target: addTarget,
			validate: func(t *testing.T, report *Report) {
				assert.Equal(t, 3, report.Total)
				assert.Equal(t, 3, report.Passed)
				assert.Equal(t, 0, report.Failed)
				assert.True(t, report.IsPassing())
				assert.Equal(t, 15, report.PointsEarned)
				assert.Equal(t, 15, report.PointsPossible)
				assert.NotEmpty(t, report.RunID)
			},
		},
		{
			name: "wrong expectation is classified failed",
			suite: Suite{
				Assignment: "calculator",
				Cases: []Case{
					{Name: "good", A: 1, B: 1, Want: 2, Points: 10},
					{Name: "bad_expectation", A: 2, B: 2, Want: 22, Points: 10},
				},
			},
			target: addTarget,
			validate: func(t *testing.T, report *Report) {
				assert.Equal(t, 1, report.Passed)
				assert.Equal(t, 1, report.Failed)
				assert.False(t, report.IsPassing())
				assert.Equal(t, 10, report.PointsEarned)
				assert.Equal(t, 20, report.PointsPossible)
				assert.Equal(t, []string{"bad_expectation"}, report.FailedNames())
			},
		},
		{
			name: "broken target fails every nonzero case",
			suite: Suite{
				Assignment: "calculator",
				Cases: []Case{
					{Name: "zeros", A: 0, B: 0, Want: 0, Points: 5},
					{Name: "ones", A: 1, B: 1, Want: 2, Points: 5},
					{Name: "twos", A: 2, B: 2, Want: 4, Points: 5},
				},
			},
			target: func(a, b int) int { return 0 },
			validate: func(t *testing.T, report *Report) {
				assert.Equal(t, 1, report.Passed)
				assert.Equal(t, 2, report.Failed)
				assert.Equal(t, 5, report.PointsEarned)
			},
		},
		{
			name:        "nil target is rejected",
			suite:       Suite{Assignment: "calculator", Cases: []Case{{Name: "zeros"}}},
			target:      nil,
			wantErr:     true,
			errContains: "cannot be nil",
		},
		{
			name:        "empty suite is rejected",
			suite:       Suite{Assignment: "empty"},
			target:      addTarget,
			wantErr:     true,
			errContains: "has no cases",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := NewRunner().Run(context.Background(), tt.suite, tt.target)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, report)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, report)
			assert.Equal(t, tt.suite.Assignment, report.Assignment)
			tt.validate(t, report)
		})
	}
}

// A failed case must never abort the run: every remaining case is still
// evaluated and outcomes keep suite order.
func TestRunnerRunContinuesPastFailures(t *testing.T) {
	suite := Suite{
		Assignment: "calculator",
		Cases: []Case{
			{Name: "first_fails", A: 0, B: 0, Want: 1, Points: 10},
			{Name: "second", A: 1, B: 2, Want: 3, Points: 10},
			{Name: "third_fails", A: 2, B: 2, Want: 22, Points: 10},
			{Name: "fourth", A: 5, B: 5, Want: 10, Points: 10},
		},
	}

	invocations := 0
	target := func(a, b int) int {
		invocations++
		return a + b
	}

	report, err := NewRunner().Run(context.Background(), suite, target)
	require.NoError(t, err)

	assert.Equal(t, len(suite.Cases), invocations, "every case should be evaluated")
	require.Len(t, report.Outcomes, len(suite.Cases))
	for i, o := range report.Outcomes {
		assert.Equal(t, suite.Cases[i].Name, o.Case.Name, "outcomes should keep suite order")
	}
	assert.Equal(t, []string{"first_fails", "third_fails"}, report.FailedNames())
}

func TestRunnerRunRecordsMismatchDetails(t *testing.T) {
	suite := Suite{
		Assignment: "calculator",
		Operation:  "add",
		Cases:      []Case{{Name: "two_plus_two", A: 2, B: 2, Want: 22, Points: 10}},
	}

	report, err := NewRunner().Run(context.Background(), suite, addTarget)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	outcome := report.Outcomes[0]
	assert.False(t, outcome.Passed)
	assert.Equal(t, 4, outcome.Got)
	assert.Contains(t, outcome.Message, "add(2, 2) = 4, want 22")
}

func TestRunnerRunPassedCaseHasNoMessage(t *testing.T) {
	suite := Suite{
		Assignment: "calculator",
		Cases:      []Case{{Name: "zeros", A: 0, B: 0, Want: 0, Points: 10}},
	}

	report, err := NewRunner().Run(context.Background(), suite, addTarget)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Passed)
	assert.Empty(t, report.Outcomes[0].Message)
}

func TestRunnerRunParallelMatchesSequential(t *testing.T) {
	suite := CalibrationSuite()

	seq, err := NewRunner().Run(context.Background(), suite, addTarget)
	require.NoError(t, err)

	par, err := NewRunnerWithOptions(RunnerOptions{Parallel: true}).Run(context.Background(), suite, addTarget)
	require.NoError(t, err)

	assert.Equal(t, seq.Passed, par.Passed)
	assert.Equal(t, seq.Failed, par.Failed)
	assert.Equal(t, seq.PointsEarned, par.PointsEarned)

	require.Len(t, par.Outcomes, len(seq.Outcomes))
	for i := range seq.Outcomes {
		assert.Equal(t, seq.Outcomes[i].Case.Name, par.Outcomes[i].Case.Name)
		assert.Equal(t, seq.Outcomes[i].Passed, par.Outcomes[i].Passed)
		assert.Equal(t, seq.Outcomes[i].Got, par.Outcomes[i].Got)
		assert.Equal(t, seq.Outcomes[i].Message, par.Outcomes[i].Message)
	}
}

func TestRunnerRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner().Run(ctx, CalibrationSuite(), addTarget)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestRunnerRunAssignsUniqueRunIDs(t *testing.T) {
	suite := Suite{
		Assignment: "calculator",
		Cases:      []Case{{Name: "zeros", A: 0, B: 0, Want: 0, Points: 10}},
	}

	first, err := NewRunner().Run(context.Background(), suite, addTarget)
	require.NoError(t, err)
	second, err := NewRunner().Run(context.Background(), suite, addTarget)
	require.NoError(t, err)

	assert.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
}
