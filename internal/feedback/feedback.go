// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package feedback turns failed grading reports into natural-language hints
// for students by prompting a local opencode server.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/sst/opencode-sdk-go"
	"github.com/sst/opencode-sdk-go/option"

	"github.com/illinois/autograding/internal/grading"
)

// Generator produces hint text for a grading report.
type Generator interface {
	Generate(ctx context.Context, report *grading.Report) (string, error)
}

// Client implements Generator against an opencode serve instance.
type Client struct {
	sdk   *opencode.Client
	model string
}

// NewClient connects to the opencode server at baseURL. The model is
// optional; empty uses the server default.
func NewClient(baseURL, model string) *Client {
	sdk := opencode.NewClient(
		option.WithBaseURL(baseURL),
		// No API key needed for local connections
	)

	return &Client{
		sdk:   sdk,
		model: model,
	}
}

// BuildPrompt renders the report into the instruction sent to the model.
// Exported so prompts can be inspected without a running server.
func BuildPrompt(report *grading.Report) string {
	var b strings.Builder

	b.WriteString("You are a teaching assistant for an introductory programming course.\n")
	b.WriteString("A student's submission failed some autograder cases. Write a short, ")
	b.WriteString("encouraging hint that points at the mistake without giving the solution away.\n\n")

	fmt.Fprintf(&b, "Assignment: %s\n", report.Assignment)
	fmt.Fprintf(&b, "Result: %d/%d cases passed\n\n", report.Passed, report.Total)

	b.WriteString("Failed cases:\n")
	for _, o := range report.Outcomes {
		if o.Passed {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", o.Message)
	}

	return b.String()
}

// Generate asks the model for a hint. Passing reports need no hint and
// return empty text without contacting the server.
func (c *Client) Generate(ctx context.Context, report *grading.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report cannot be nil")
	}
	if report.IsPassing() {
		return "", nil
	}

	session, err := c.sdk.Session.New(ctx, opencode.SessionNewParams{
		Title: opencode.F(fmt.Sprintf("feedback: %s %s", report.Assignment, report.RunID)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	parts := []opencode.SessionPromptParamsPartUnion{
		opencode.TextPartInputParam{
			Type: opencode.F(opencode.TextPartInputTypeText),
			Text: opencode.F(BuildPrompt(report)),
		},
	}

	params := opencode.SessionPromptParams{
		Parts: opencode.F(parts),
	}
	if c.model != "" {
		params.Model = opencode.F(opencode.SessionPromptParamsModel{
			ModelID: opencode.F(c.model),
		})
	}

	message, err := c.sdk.Session.Prompt(ctx, session.ID, params)
	if err != nil {
		return "", fmt.Errorf("failed to send prompt: %w", err)
	}

	var text strings.Builder
	for _, part := range message.Parts {
		if part.Type == opencode.PartTypeText {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("model returned no text parts")
	}
	return strings.TrimSpace(text.String()), nil
}

// Disabled is a Generator that produces no feedback. Used when no opencode
// server is configured.
type Disabled struct{}

// Generate implements Generator.
func (Disabled) Generate(_ context.Context, _ *grading.Report) (string, error) {
	return "", nil
}
