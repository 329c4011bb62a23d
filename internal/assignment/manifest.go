// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package assignment loads and validates assignment manifests. A manifest is
// a YAML file describing one gradable assignment: the cases to evaluate, the
// files a submission must include, and the pipeline steps that prepare it.
package assignment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/illinois/autograding/internal/grading"
)

const (
	defaultCasePoints     = 10
	defaultTimeoutSeconds = 300
)

// Manifest represents one assignment definition.
type Manifest struct {
	Assignment     string     `yaml:"assignment"`
	Description    string     `yaml:"description"`
	Operation      string     `yaml:"operation"`
	RequiredFiles  []string   `yaml:"required_files"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	Cases          []CaseSpec `yaml:"cases"`
	Steps          []StepSpec `yaml:"steps"`
}

// CaseSpec is one fixed input/expected-output pair.
type CaseSpec struct {
	Name   string `yaml:"name"`
	A      int    `yaml:"a"`
	B      int    `yaml:"b"`
	Want   int    `yaml:"want"`
	Points int    `yaml:"points"`
}

// StepSpec is one pipeline step. Needs lists step names that must complete
// before this step runs.
type StepSpec struct {
	Name  string   `yaml:"name"`
	Run   string   `yaml:"run"`
	Needs []string `yaml:"needs"`
}

// Load reads and parses a manifest file. Missing point weights and timeouts
// are filled with defaults; the assignment name defaults to the file stem.
func Load(path string) (*Manifest, error) {
	// #nosec G304 - manifest paths come from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if m.Assignment == "" {
		base := filepath.Base(path)
		m.Assignment = base[:len(base)-len(filepath.Ext(base))]
	}
	if m.TimeoutSeconds == 0 {
		m.TimeoutSeconds = defaultTimeoutSeconds
	}
	for i := range m.Cases {
		if m.Cases[i].Points == 0 {
			m.Cases[i].Points = defaultCasePoints
		}
	}

	return &m, nil
}

// LoadDir loads every .yaml/.yml manifest in a directory, sorted by
// assignment name.
func LoadDir(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory %s: %w", dir, err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Assignment < manifests[j].Assignment
	})
	return manifests, nil
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if m.Assignment == "" {
		return fmt.Errorf("assignment name is required")
	}
	if len(m.Cases) == 0 {
		return fmt.Errorf("assignment %q has no cases", m.Assignment)
	}

	caseNames := make(map[string]bool, len(m.Cases))
	for _, c := range m.Cases {
		if c.Name == "" {
			return fmt.Errorf("assignment %q has a case with no name", m.Assignment)
		}
		if caseNames[c.Name] {
			return fmt.Errorf("assignment %q has duplicate case %q", m.Assignment, c.Name)
		}
		caseNames[c.Name] = true
	}

	stepNames := make(map[string]bool, len(m.Steps))
	for _, s := range m.Steps {
		if s.Name == "" {
			return fmt.Errorf("assignment %q has a step with no name", m.Assignment)
		}
		if stepNames[s.Name] {
			return fmt.Errorf("assignment %q has duplicate step %q", m.Assignment, s.Name)
		}
		stepNames[s.Name] = true
	}
	for _, s := range m.Steps {
		for _, need := range s.Needs {
			if !stepNames[need] {
				return fmt.Errorf("step %q needs unknown step %q", s.Name, need)
			}
		}
	}

	return nil
}

// Suite converts the manifest cases into a runnable grading suite.
func (m *Manifest) Suite() grading.Suite {
	cases := make([]grading.Case, len(m.Cases))
	for i, c := range m.Cases {
		cases[i] = grading.Case{
			Name:   c.Name,
			A:      c.A,
			B:      c.B,
			Want:   c.Want,
			Points: c.Points,
		}
	}
	return grading.Suite{
		Assignment: m.Assignment,
		Operation:  m.Operation,
		Cases:      cases,
	}
}
