// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package ghstatus publishes grading results to GitHub as commit statuses
// and pull request comments.
package ghstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/illinois/autograding/internal/grading"
)

const (
	defaultAPIURL = "https://api.github.com"

	// statusContext labels our statuses in the GitHub checks UI
	statusContext = "autograding"

	// GitHub rejects status descriptions longer than 140 characters
	maxDescriptionLength = 140
)

// States accepted by the commit status API.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// Publisher posts grading outcomes to a commit or pull request.
type Publisher interface {
	PublishReport(ctx context.Context, sha string, report *grading.Report) error
	SetStatus(ctx context.Context, sha, state, description string) error
	CommentReport(ctx context.Context, prNumber int, report *grading.Report) error
}

// Client implements Publisher against the GitHub REST API.
type Client struct {
	token      string
	repository string // "owner/name"
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a GitHub client for the given repository.
// An empty baseURL targets github.com; set it for Enterprise installs.
func NewClient(token, repository, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return &Client{
		token:      token,
		repository: repository,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// status is the commit status API payload.
type status struct {
	State       string `json:"state"`
	Description string `json:"description"`
	Context     string `json:"context"`
	TargetURL   string `json:"target_url,omitempty"`
}

// comment is the issue comment API payload.
type comment struct {
	Body string `json:"body"`
}

// PublishReport posts a commit status summarizing a grading run.
func (c *Client) PublishReport(ctx context.Context, sha string, report *grading.Report) error {
	if sha == "" {
		return fmt.Errorf("commit sha cannot be empty")
	}
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	state := StateFailure
	if report.IsPassing() {
		state = StateSuccess
	}
	description := fmt.Sprintf("%d/%d cases passed, %d/%d points (%.0f%%)",
		report.Passed, report.Total, report.PointsEarned, report.PointsPossible, report.Score())

	return c.SetStatus(ctx, sha, state, description)
}

// SetStatus posts one commit status. Descriptions are truncated to the API
// limit rather than rejected.
func (c *Client) SetStatus(ctx context.Context, sha, state, description string) error {
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength-3] + "..."
	}

	url := fmt.Sprintf("%s/repos/%s/statuses/%s", c.baseURL, c.repository, sha)
	payload := status{
		State:       state,
		Description: description,
		Context:     statusContext,
	}
	return c.post(ctx, url, payload)
}

// CommentReport posts the rendered report as a pull request comment.
func (c *Client) CommentReport(ctx context.Context, prNumber int, report *grading.Report) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", c.baseURL, c.repository, prNumber)
	payload := comment{
		Body: fmt.Sprintf("```\n%s```\n", report.Render()),
	}
	return c.post(ctx, url, payload)
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error: %d - %s", resp.StatusCode, string(body))
	}
	return nil
}
