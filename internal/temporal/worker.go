package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// DefaultTaskQueue is the queue grading workers poll when none is configured.
const DefaultTaskQueue = "autograding"

// WorkerOptions contains configuration for Worker.
type WorkerOptions struct {
	// HostPort is the Temporal frontend address (default: local server).
	HostPort string
	// TaskQueue is the task queue name for this worker.
	TaskQueue string
	// Namespace is the Temporal namespace (default: "default").
	Namespace string
	// MaxConcurrent is max concurrent task pollers (default: 10).
	MaxConcurrent int
}

// Worker manages the Temporal client and worker lifecycle for grading runs.
type Worker struct {
	client  client.Client
	worker  worker.Worker
	opts    WorkerOptions
	started bool
	mu      sync.RWMutex
}

// NewWorker dials Temporal and prepares a worker with the grading workflow
// and activities registered. Options are validated before dialing so a bad
// configuration fails without a round trip to the server.
func NewWorker(ctx context.Context, opts WorkerOptions, activities *Activities) (*Worker, error) {
	if opts.TaskQueue == "" {
		return nil, errors.New("task queue is required")
	}
	if activities == nil {
		return nil, errors.New("activities are required")
	}
	opts = applyWorkerDefaults(opts)

	c, err := client.Dial(client.Options{
		HostPort:  opts.HostPort,
		Namespace: opts.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	w := worker.New(c, opts.TaskQueue, worker.Options{
		MaxConcurrentActivityTaskPollers: opts.MaxConcurrent,
		MaxConcurrentWorkflowTaskPollers: opts.MaxConcurrent,
	})
	w.RegisterWorkflow(GradeWorkflow)
	w.RegisterActivity(activities)

	return &Worker{
		client: c,
		worker: w,
		opts:   opts,
	}, nil
}

func applyWorkerDefaults(opts WorkerOptions) WorkerOptions {
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	return opts
}

// Start begins polling for grading tasks.
// Idempotent: calling Start multiple times is safe.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}
	if w.worker == nil {
		return errors.New("worker not initialized")
	}

	if err := w.worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	w.started = true
	return nil
}

// Stop gracefully shuts down the worker.
// Idempotent: calling Stop multiple times is safe.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}

	w.worker.Stop()
	w.started = false
	return nil
}

// Client exposes the underlying Temporal client so callers can start
// workflows or query runs through the same connection.
func (w *Worker) Client() client.Client {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.client
}

// Close stops the worker and closes the client connection.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		w.worker.Stop()
		w.started = false
	}
	if w.client != nil {
		w.client.Close()
	}
	return nil
}

// ExecuteGrade starts a grading workflow on the given task queue and returns
// the running handle.
func ExecuteGrade(ctx context.Context, c client.Client, taskQueue string, req GradeRequest) (client.WorkflowRun, error) {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}

	name := req.Assignment
	if name == "" {
		name = "manifest"
	}
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("grade-%s-%s", name, uuid.NewString()),
		TaskQueue: taskQueue,
	}
	return c.ExecuteWorkflow(ctx, opts, GradeWorkflow, req)
}
