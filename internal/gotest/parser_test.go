// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package gotest

import (
	"strings"
	"testing"
)

func TestParse_AllPassing(t *testing.T) {
	parser := NewParser()
	output := `=== RUN   TestAdd
--- PASS: TestAdd (0.00s)
=== RUN   TestAddIdentity
--- PASS: TestAddIdentity (0.01s)
PASS
ok  	github.com/student/calculator	0.123s`

	result := parser.Parse(output)

	if result.HasFailures {
		t.Errorf("Expected no failures, but HasFailures = true")
	}
	if len(result.Failures) != 0 {
		t.Errorf("Expected 0 failures, got %d", len(result.Failures))
	}
	if result.Total != 2 {
		t.Errorf("Expected 2 tests, got %d", result.Total)
	}
	if result.Passed != 2 {
		t.Errorf("Expected 2 passed, got %d", result.Passed)
	}
	if result.Failed != 0 {
		t.Errorf("Expected 0 failed, got %d", result.Failed)
	}
	if result.RawFailureOutput != "" {
		t.Errorf("Expected empty raw failure output, got: %s", result.RawFailureOutput)
	}
}

func TestParse_SingleFailure(t *testing.T) {
	parser := NewParser()
	output := `=== RUN   TestAdd
--- FAIL: TestAdd (0.00s)
    calculator_test.go:14: Add(2, 2) = 5, want 4
FAIL
FAIL	github.com/student/calculator	0.123s`

	result := parser.Parse(output)

	if !result.HasFailures {
		t.Errorf("Expected failures, but HasFailures = false")
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(result.Failures))
	}

	failure := result.Failures[0]
	if failure.Test != "TestAdd" {
		t.Errorf("Expected test name 'TestAdd', got '%s'", failure.Test)
	}
	if failure.File != "calculator_test.go" {
		t.Errorf("Expected file 'calculator_test.go', got '%s'", failure.File)
	}
	if failure.Line != "14" {
		t.Errorf("Expected line '14', got '%s'", failure.Line)
	}
	if failure.Package != "github.com/student/calculator" {
		t.Errorf("Expected package to be backfilled, got '%s'", failure.Package)
	}
	if !strings.Contains(failure.Message, "Add(2, 2) = 5, want 4") {
		t.Errorf("Expected message to contain mismatch, got: %s", failure.Message)
	}

	// Timing and PASS noise must be stripped from raw output
	if strings.Contains(result.RawFailureOutput, "0.123s") {
		t.Errorf("Raw failure output should not contain timing: %s", result.RawFailureOutput)
	}
	if strings.Contains(result.RawFailureOutput, "PASS") {
		t.Errorf("Raw failure output should not contain PASS: %s", result.RawFailureOutput)
	}
}

func TestParse_MixedResults(t *testing.T) {
	parser := NewParser()
	output := `=== RUN   TestAdd
--- PASS: TestAdd (0.00s)
=== RUN   TestAddNegative
--- FAIL: TestAddNegative (0.00s)
    calculator_test.go:22: Add(-1, -1) = 0, want -2
=== RUN   TestAddLarge
--- PASS: TestAddLarge (0.00s)
FAIL
FAIL	github.com/student/calculator	0.045s`

	result := parser.Parse(output)

	if result.Total != 3 {
		t.Errorf("Expected 3 tests, got %d", result.Total)
	}
	if result.Passed != 2 {
		t.Errorf("Expected 2 passed, got %d", result.Passed)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", result.Failed)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(result.Failures))
	}
	if result.Failures[0].Test != "TestAddNegative" {
		t.Errorf("Expected 'TestAddNegative', got '%s'", result.Failures[0].Test)
	}
}

func TestParse_Subtests(t *testing.T) {
	parser := NewParser()
	output := `=== RUN   TestAdd
=== RUN   TestAdd/zeros
=== RUN   TestAdd/two_plus_two
--- FAIL: TestAdd (0.00s)
    --- PASS: TestAdd/zeros (0.00s)
    --- FAIL: TestAdd/two_plus_two (0.00s)
        calculator_test.go:31: Add(2, 2) = 22, want 4
FAIL
FAIL	github.com/student/calculator	0.019s`

	result := parser.Parse(output)

	if result.Total != 3 {
		t.Errorf("Expected 3 RUN lines, got %d", result.Total)
	}
	if result.Failed != 2 {
		t.Errorf("Expected parent and subtest failures, got %d", result.Failed)
	}

	var names []string
	for _, f := range result.Failures {
		names = append(names, f.Test)
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "TestAdd/two_plus_two") {
		t.Errorf("Expected subtest failure recorded, got: %s", joined)
	}
}

func TestParse_BuildFailure(t *testing.T) {
	parser := NewParser()
	output := `# github.com/student/calculator [build failed]
./calculator.go:8:2: undefined: result
FAIL	github.com/student/calculator [build failed]`

	result := parser.Parse(output)

	if !result.HasFailures {
		t.Errorf("Expected build failure to count as failure")
	}
	if len(result.Failures) == 0 {
		t.Fatalf("Expected at least one failure")
	}
	if result.Failures[0].Test != "BUILD" {
		t.Errorf("Expected BUILD failure, got '%s'", result.Failures[0].Test)
	}
	if result.Failures[0].Package != "github.com/student/calculator" {
		t.Errorf("Expected package name, got '%s'", result.Failures[0].Package)
	}
}

func TestParse_Panic(t *testing.T) {
	parser := NewParser()
	output := `=== RUN   TestAdd
--- FAIL: TestAdd (0.00s)
panic: runtime error: integer divide by zero [recovered]
	panic: runtime error: integer divide by zero

goroutine 18 [running]:
testing.tRunner.func1.2({0x5227a0, 0x62f0b0})
FAIL	github.com/student/calculator	0.011s`

	result := parser.Parse(output)

	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(result.Failures))
	}
	if !result.Failures[0].IsPanic {
		t.Errorf("Expected failure to be marked as panic")
	}
	if result.Failures[0].Test != "TestAdd" {
		t.Errorf("Expected 'TestAdd', got '%s'", result.Failures[0].Test)
	}
}

func TestParse_EmptyOutput(t *testing.T) {
	parser := NewParser()
	result := parser.Parse("")

	if result.HasFailures {
		t.Errorf("Empty output should have no failures")
	}
	if result.Total != 0 {
		t.Errorf("Expected 0 tests, got %d", result.Total)
	}
}

func TestSummary_AllPassing(t *testing.T) {
	parser := NewParser()
	result := parser.Parse(`=== RUN   TestAdd
--- PASS: TestAdd (0.00s)
PASS
ok  	github.com/student/calculator	0.020s`)

	summary := parser.Summary(result)
	if summary != "All tests passed" {
		t.Errorf("Expected 'All tests passed', got: %s", summary)
	}
}

func TestSummary_WithFailures(t *testing.T) {
	parser := NewParser()
	result := parser.Parse(`=== RUN   TestAdd
--- FAIL: TestAdd (0.00s)
    calculator_test.go:14: Add(0, 0) = 1, want 0
FAIL
FAIL	github.com/student/calculator	0.031s`)

	summary := parser.Summary(result)

	if !strings.Contains(summary, "TestAdd") {
		t.Errorf("Summary should name the failed test: %s", summary)
	}
	if !strings.Contains(summary, "Location: calculator_test.go:14") {
		t.Errorf("Summary should include location: %s", summary)
	}
	if !strings.Contains(summary, "Total failed: 1") {
		t.Errorf("Summary should include failed count: %s", summary)
	}
}

func TestSummary_TruncatesLongMessages(t *testing.T) {
	parser := NewParser()
	result := &ParseResult{
		HasFailures: true,
		Failed:      1,
		Failures: []Failure{
			{Test: "TestAdd", Message: strings.Repeat("x", maxMessageLength+100)},
		},
	}

	summary := parser.Summary(result)
	if !strings.Contains(summary, "...") {
		t.Errorf("Expected truncation marker in summary")
	}
	if strings.Contains(summary, strings.Repeat("x", maxMessageLength+1)) {
		t.Errorf("Message should have been truncated")
	}
}
