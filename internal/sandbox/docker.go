// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package sandbox runs submission tests inside a Docker container so
// untrusted student code never executes directly on the grading host.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	defaultImage = "golang:1.25"

	// submissionMount is where the submission is bind-mounted in the container
	submissionMount = "/submission"

	// stopTimeout is the grace period when stopping a container
	stopTimeout = 10 * time.Second

	// Resource caps for student code
	memoryLimitBytes = 2 << 30 // 2 GiB
	nanoCPUs         = 2e9     // 2 CPUs
)

// Result is the outcome of one sandboxed run.
type Result struct {
	// Output is the combined stdout/stderr of the container
	Output string

	// ExitCode is the container's exit status; 0 means the tests passed
	ExitCode int64

	Duration time.Duration
}

// Runner manages the container lifecycle for grading runs.
type Runner struct {
	client *client.Client
	image  string
}

// NewRunner creates a sandbox runner using the ambient Docker environment.
// An empty image uses the default Go toolchain image.
func NewRunner(img string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if img == "" {
		img = defaultImage
	}
	return &Runner{client: cli, image: img}, nil
}

// Close closes the Docker client connection.
func (r *Runner) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// RunTests executes `go <args>` against the submission directory inside a
// container with the network disabled and resource caps applied. The exit
// code is reported in the result; the error covers sandbox failures only.
func (r *Runner) RunTests(ctx context.Context, submissionDir string, args []string) (*Result, error) {
	if submissionDir == "" {
		return nil, fmt.Errorf("submission directory cannot be empty")
	}

	start := time.Now()

	id, err := r.createContainer(ctx, submissionDir, args)
	if err != nil {
		return nil, err
	}
	// Cleanup runs on a fresh context so a cancelled grade still removes
	// its container.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = r.stopAndRemove(cleanupCtx, id)
	}()

	if err := r.client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", id, err)
	}

	exitCode, err := r.waitForExit(ctx, id)
	if err != nil {
		return nil, err
	}

	output, err := r.containerOutput(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Result{
		Output:   output,
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}

// createContainer creates the grading container, pulling the image first if
// it is not available locally.
func (r *Runner) createContainer(ctx context.Context, submissionDir string, args []string) (string, error) {
	cfg := &container.Config{
		Image:           r.image,
		Cmd:             append([]string{"go"}, args...),
		WorkingDir:      submissionMount,
		NetworkDisabled: true,
		Env:             []string{"CGO_ENABLED=0", "GOPATH=/tmp/gopath"},
	}
	hostCfg := &container.HostConfig{
		// Read-only mount: the submission the host sees stays untouched no
		// matter what the tests do. Build artifacts land in GOPATH/GOCACHE
		// inside the container.
		Binds: []string{submissionDir + ":" + submissionMount + ":ro"},
		Resources: container.Resources{
			Memory:   memoryLimitBytes,
			NanoCPUs: nanoCPUs,
		},
	}

	created, err := r.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err == nil {
		return created.ID, nil
	}
	if !client.IsErrNotFound(err) {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	// Image missing locally: pull and retry once
	reader, pullErr := r.client.ImagePull(ctx, r.image, image.PullOptions{})
	if pullErr != nil {
		return "", fmt.Errorf("failed to pull image %s: %w", r.image, pullErr)
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	created, err = r.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container after pull: %w", err)
	}
	return created.ID, nil
}

func (r *Runner) waitForExit(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := r.client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return 0, fmt.Errorf("container %s failed: %s", id, status.Error.Message)
		}
		return status.StatusCode, nil
	case err := <-errCh:
		return 0, fmt.Errorf("failed waiting for container %s: %w", id, err)
	case <-ctx.Done():
		return 0, fmt.Errorf("grading run cancelled: %w", ctx.Err())
	}
}

// containerOutput demultiplexes the container's log streams.
func (r *Runner) containerOutput(ctx context.Context, id string) (string, error) {
	logs, err := r.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get logs for container %s: %w", id, err)
	}
	defer func() {
		_ = logs.Close()
	}()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, logs); err != nil {
		return "", fmt.Errorf("failed to read container output: %w", err)
	}
	return buf.String(), nil
}

// stopAndRemove stops and removes a container. Idempotent: a container that
// is already gone is not an error.
func (r *Runner) stopAndRemove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	timeout := int(stopTimeout.Seconds())
	_ = r.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})

	err := r.client.ContainerRemove(ctx, id, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}
