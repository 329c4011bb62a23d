// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

// CalibrationSuite returns the built-in six-case suite used to verify that
// the harness itself detects mismatches. Three cases carry deliberately
// wrong expectations; a correct runner must classify exactly those three as
// failed.
func CalibrationSuite() Suite {
	return Suite{
		Assignment: "calibration",
		Operation:  "add",
		Cases: []Case{
			{Name: "add_zeros", A: 0, B: 0, Want: 0, Points: 10},
			{Name: "failing_add_zeros", A: 0, B: 0, Want: 1, Points: 10},
			{Name: "one_plus_zero", A: 1, B: 0, Want: 1, Points: 10},
			{Name: "failing_one_plus_zero", A: 1, B: 0, Want: 2, Points: 10},
			{Name: "two_plus_two", A: 2, B: 2, Want: 4, Points: 10},
			{Name: "failing_two_plus_two", A: 2, B: 2, Want: 22, Points: 10},
		},
	}
}

// ExpectedCalibrationFailures lists the calibration cases whose expectations
// are deliberately wrong.
func ExpectedCalibrationFailures() []string {
	return []string{"failing_add_zeros", "failing_one_plus_zero", "failing_two_plus_two"}
}

// VerifyCalibration checks a calibration-suite report: every case with a
// wrong expectation must have failed and every other case must have passed.
// Returns a *CalibrationError describing any misclassification.
func VerifyCalibration(report *Report) error {
	mustFail := make(map[string]bool, len(ExpectedCalibrationFailures()))
	for _, name := range ExpectedCalibrationFailures() {
		mustFail[name] = true
	}

	var calErr CalibrationError
	for _, o := range report.Outcomes {
		switch {
		case mustFail[o.Case.Name] && o.Passed:
			calErr.Missed = append(calErr.Missed, o.Case.Name)
		case !mustFail[o.Case.Name] && !o.Passed:
			calErr.Unexpected = append(calErr.Unexpected, o.Case.Name)
		}
	}

	if len(calErr.Missed) > 0 || len(calErr.Unexpected) > 0 {
		return &calErr
	}
	return nil
}
