// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package steps plans the execution order of assignment pipeline steps.
// Steps form a dependency graph; the plan is a flat order that is safe to
// execute, with independent steps eligible to run concurrently.
package steps

import (
	"fmt"

	"github.com/gammazero/toposort"

	"github.com/illinois/autograding/internal/assignment"
)

// Plan is a dependency-safe execution order over named steps.
type Plan struct {
	// Order lists step names so that every step appears after its needs.
	Order []string

	specs map[string]assignment.StepSpec
}

// BuildPlan performs a topological sort of the manifest steps.
// Returns an error when a step needs an unknown step or the graph has a cycle.
func BuildPlan(steps []assignment.StepSpec) (*Plan, error) {
	plan := &Plan{
		Order: make([]string, 0, len(steps)),
		specs: make(map[string]assignment.StepSpec, len(steps)),
	}
	if len(steps) == 0 {
		return plan, nil
	}

	for _, s := range steps {
		plan.specs[s.Name] = s
	}

	edges := make([]toposort.Edge, 0)
	for _, s := range steps {
		for _, need := range s.Needs {
			if _, ok := plan.specs[need]; !ok {
				return nil, fmt.Errorf("step %q needs unknown step %q", s.Name, need)
			}
			edges = append(edges, toposort.Edge{need, s.Name})
		}
	}

	// No dependencies: keep manifest order
	if len(edges) == 0 {
		for _, s := range steps {
			plan.Order = append(plan.Order, s.Name)
		}
		return plan, nil
	}

	sortedNodes, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("cycle detected in step graph: %w", err)
	}

	inSorted := make(map[string]bool, len(sortedNodes))
	for _, node := range sortedNodes {
		name := node.(string)
		inSorted[name] = true
		plan.Order = append(plan.Order, name)
	}

	// Steps outside the dependency graph keep manifest order at the end
	for _, s := range steps {
		if !inSorted[s.Name] {
			plan.Order = append(plan.Order, s.Name)
		}
	}

	return plan, nil
}

// Step returns the spec for a planned step name.
func (p *Plan) Step(name string) (assignment.StepSpec, bool) {
	s, ok := p.specs[name]
	return s, ok
}

// Ready returns steps that have not started and whose needs are all done.
func (p *Plan) Ready(done, started map[string]bool) []string {
	var ready []string
	for _, name := range p.Order {
		if done[name] || started[name] {
			continue
		}
		spec := p.specs[name]
		blocked := false
		for _, need := range spec.Needs {
			if !done[need] {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, name)
		}
	}
	return ready
}

// DefaultSteps is the preparation pipeline used when a manifest defines no
// steps: check out the submission, then verify required files. Grading always
// runs after the step pipeline completes.
func DefaultSteps() []assignment.StepSpec {
	return []assignment.StepSpec{
		{Name: "checkout"},
		{Name: "verify", Needs: []string{"checkout"}},
	}
}
