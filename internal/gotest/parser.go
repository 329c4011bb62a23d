// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package gotest executes a submission's Go test suite and parses the
// verbose output into structured results the grader can score.
package gotest

import (
	"fmt"
	"regexp"
	"strings"
)

// Minimum number of matched groups for error location detection
const minLocationMatches = 3

// Maximum failure message length before truncation
const maxMessageLength = 500

// Failure is one failed test extracted from go test output.
type Failure struct {
	// Test is the name of the failed test (e.g. "TestAdd")
	Test string

	// Package is the Go package where the test failed
	Package string

	// Message contains the failure output
	Message string

	// IsPanic indicates the test crashed rather than failed an assertion
	IsPanic bool

	// File and Line locate the failing assertion when detectable
	File string
	Line string
}

// ParseResult summarizes one go test -v run.
type ParseResult struct {
	Failures    []Failure
	HasFailures bool

	// Total counts === RUN lines; Passed and Failed count --- PASS/FAIL markers
	Total  int
	Passed int
	Failed int

	// RawFailureOutput contains only the failure lines, with PASS and timing
	// noise stripped
	RawFailureOutput string
}

// Parser extracts failures from go test -v output.
type Parser struct {
	patterns *patterns
}

// patterns caches compiled regexes for reuse across runs.
type patterns struct {
	runLine   *regexp.Regexp
	contLine  *regexp.Regexp
	passTest  *regexp.Regexp
	failTest  *regexp.Regexp
	failPkg   *regexp.Regexp
	okPass    *regexp.Regexp
	panicLine *regexp.Regexp
	location  *regexp.Regexp
	timing    *regexp.Regexp
	coverage  *regexp.Regexp
	buildFail *regexp.Regexp
}

// NewParser creates a Parser with compiled patterns.
func NewParser() *Parser {
	return &Parser{patterns: &patterns{
		runLine:   regexp.MustCompile(`^=== RUN\s+`),
		contLine:  regexp.MustCompile(`^=== (CONT|PAUSE|NAME)\s+`),
		passTest:  regexp.MustCompile(`^\s*--- PASS:`),
		failTest:  regexp.MustCompile(`^\s*--- FAIL:\s*(\S+)`),
		failPkg:   regexp.MustCompile(`^FAIL\s+(\S+)`),
		okPass:    regexp.MustCompile(`^(ok|PASS)(\s|$)`),
		panicLine: regexp.MustCompile(`^panic:`),
		location:  regexp.MustCompile(`^\s*([^:\s]+\.go):(\d+):\s*(.*)$`),
		timing:    regexp.MustCompile(`\s+\d+\.\d+s$`),
		coverage:  regexp.MustCompile(`coverage:`),
		buildFail: regexp.MustCompile(`^#\s+(\S+)`),
	}}
}

// parseState holds mutable state while walking the output lines.
type parseState struct {
	result       *ParseResult
	failureLines []string
	current      int
	inBlock      bool
}

// Parse walks go test -v output and extracts counts and failures. Build
// failures surface as a Failure with Test set to "BUILD".
func (p *Parser) Parse(raw string) *ParseResult {
	st := &parseState{
		result:  &ParseResult{Failures: []Failure{}},
		current: -1,
	}

	for _, line := range strings.Split(raw, "\n") {
		p.parseLine(st, line)
	}

	for i := range st.result.Failures {
		st.result.Failures[i].Message = strings.TrimSpace(st.result.Failures[i].Message)
	}
	st.result.HasFailures = len(st.result.Failures) > 0 || st.result.Failed > 0
	st.result.RawFailureOutput = strings.Join(st.failureLines, "\n")
	return st.result
}

func (p *Parser) parseLine(st *parseState, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		st.inBlock = false
		return
	}

	pt := p.patterns
	switch {
	case pt.runLine.MatchString(line):
		st.result.Total++
		return
	case pt.contLine.MatchString(line) || pt.coverage.MatchString(line):
		return
	case pt.passTest.MatchString(line):
		st.result.Passed++
		st.inBlock = false
		return
	case pt.okPass.MatchString(line), trimmed == "FAIL":
		st.inBlock = false
		return
	}

	if matches := pt.buildFail.FindStringSubmatch(line); len(matches) > 1 {
		st.result.Failures = append(st.result.Failures, Failure{Test: "BUILD", Package: matches[1]})
		st.current = len(st.result.Failures) - 1
		st.inBlock = true
		st.failureLines = append(st.failureLines, line)
		return
	}

	if matches := pt.failTest.FindStringSubmatch(line); len(matches) > 1 {
		st.result.Failed++
		// A panic seen before its --- FAIL marker gets named here.
		if st.current >= 0 && st.result.Failures[st.current].IsPanic &&
			st.result.Failures[st.current].Test == "unknown" {
			st.result.Failures[st.current].Test = matches[1]
		} else {
			st.result.Failures = append(st.result.Failures, Failure{Test: matches[1]})
			st.current = len(st.result.Failures) - 1
		}
		st.inBlock = true
		if !pt.timing.MatchString(line) {
			st.failureLines = append(st.failureLines, line)
		}
		return
	}

	if matches := pt.failPkg.FindStringSubmatch(line); len(matches) > 1 {
		if st.current >= 0 && st.result.Failures[st.current].Package == "" &&
			st.result.Failures[st.current].Test != "BUILD" {
			st.result.Failures[st.current].Package = matches[1]
		}
		if !pt.timing.MatchString(line) {
			st.failureLines = append(st.failureLines, line)
		}
		st.inBlock = false
		return
	}

	if pt.panicLine.MatchString(line) {
		if st.current < 0 {
			st.result.Failures = append(st.result.Failures, Failure{Test: "unknown", IsPanic: true})
			st.current = len(st.result.Failures) - 1
		} else {
			st.result.Failures[st.current].IsPanic = true
		}
		st.failureLines = append(st.failureLines, line)
		st.inBlock = true
		return
	}

	if matches := pt.location.FindStringSubmatch(line); len(matches) > minLocationMatches {
		if st.current >= 0 {
			st.result.Failures[st.current].File = matches[1]
			st.result.Failures[st.current].Line = matches[2]
			if matches[3] != "" {
				p.appendMessage(st, matches[3])
			}
		}
		st.failureLines = append(st.failureLines, line)
		st.inBlock = true
		return
	}

	if st.inBlock && !pt.timing.MatchString(line) {
		st.failureLines = append(st.failureLines, line)
		if st.current >= 0 {
			p.appendMessage(st, trimmed)
		}
	}
}

func (p *Parser) appendMessage(st *parseState, msg string) {
	failure := &st.result.Failures[st.current]
	if failure.Message != "" {
		failure.Message += "\n"
	}
	failure.Message += msg
}

// Summary returns a concise failure listing suitable for student feedback.
func (p *Parser) Summary(result *ParseResult) string {
	if !result.HasFailures {
		return "All tests passed"
	}

	var summary strings.Builder
	summary.WriteString("Test Failures:\n")

	for _, failure := range result.Failures {
		if failure.Test == "BUILD" {
			summary.WriteString(fmt.Sprintf("\n❌ Build failed in package: %s\n", failure.Package))
			continue
		}

		summary.WriteString(fmt.Sprintf("\n❌ %s", failure.Test))
		if failure.Package != "" {
			summary.WriteString(fmt.Sprintf(" (package: %s)", failure.Package))
		}
		if failure.IsPanic {
			summary.WriteString(" [PANIC]")
		}
		summary.WriteString("\n")

		if failure.File != "" && failure.Line != "" {
			summary.WriteString(fmt.Sprintf("   Location: %s:%s\n", failure.File, failure.Line))
		}
		if failure.Message != "" {
			msg := failure.Message
			if len(msg) > maxMessageLength {
				msg = msg[:maxMessageLength] + "..."
			}
			summary.WriteString(fmt.Sprintf("   %s\n", msg))
		}
	}

	if result.Failed > 0 {
		summary.WriteString(fmt.Sprintf("\nTotal failed: %d\n", result.Failed))
	}

	return summary.String()
}
