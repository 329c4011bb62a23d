// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

import (
	"fmt"
	"strings"
	"time"

	"github.com/illinois/autograding/internal/gotest"
)

// CaseTestPrefix is the subtest convention instructor suites follow: each
// case runs as TestAutograde/<case_name>, so failure names map straight back
// to cases.
const CaseTestPrefix = "TestAutograde/"

// ScoreFromTests maps a submission test run onto suite cases. A build failure
// or a failure outside the per-case suite discredits every case, because
// nothing case-level can be trusted once the run itself was unhealthy.
func ScoreFromTests(suite Suite, tests *gotest.Result) *Report {
	start := time.Now().Add(-tests.Duration)

	failedCases := make(map[string]string)
	var broken string
	for _, f := range tests.Failures {
		switch {
		case f.Test == "BUILD":
			broken = "submission failed to build: " + firstLine(f.Message)
		case strings.HasPrefix(f.Test, CaseTestPrefix):
			name := strings.TrimPrefix(f.Test, CaseTestPrefix)
			failedCases[name] = failureMessage(f)
		}
	}

	outcomes := make([]Outcome, len(suite.Cases))
	anyFailed := false
	for i, c := range suite.Cases {
		outcome := Outcome{Case: c, Passed: true}
		if broken != "" {
			outcome.Passed = false
			outcome.Message = broken
		} else if msg, ok := failedCases[c.Name]; ok {
			outcome.Passed = false
			outcome.Message = msg
		}
		if !outcome.Passed {
			anyFailed = true
		}
		outcomes[i] = outcome
	}

	// A failing run that mapped to no case still cannot pass: the failure
	// happened outside the per-case suite.
	if !tests.Success && !anyFailed {
		msg := "submission tests failed"
		if len(tests.Failures) > 0 {
			msg = failureMessage(tests.Failures[0])
		}
		for i := range outcomes {
			outcomes[i].Passed = false
			outcomes[i].Message = msg
		}
	}

	return BuildReport(suite, outcomes, start)
}

func failureMessage(f gotest.Failure) string {
	msg := strings.TrimSpace(f.Message)
	if msg == "" {
		if f.IsPanic {
			return fmt.Sprintf("%s panicked", f.Test)
		}
		return fmt.Sprintf("%s failed", f.Test)
	}
	return msg
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
