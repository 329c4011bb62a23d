package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewWorker_MissingTaskQueue verifies validation happens before dialing.
func TestNewWorker_MissingTaskQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := NewWorker(ctx, WorkerOptions{Namespace: "default"}, &Activities{})
	assert.Error(t, err)
	assert.Nil(t, w)
	assert.Contains(t, err.Error(), "task queue")
}

// TestNewWorker_MissingActivities verifies a worker cannot be built without
// its activity dependencies.
func TestNewWorker_MissingActivities(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := NewWorker(ctx, WorkerOptions{TaskQueue: "grading"}, nil)
	assert.Error(t, err)
	assert.Nil(t, w)
	assert.Contains(t, err.Error(), "activities are required")
}

func TestApplyWorkerDefaults(t *testing.T) {
	opts := applyWorkerDefaults(WorkerOptions{TaskQueue: "grading"})
	assert.Equal(t, "default", opts.Namespace)
	assert.Equal(t, 10, opts.MaxConcurrent)

	opts = applyWorkerDefaults(WorkerOptions{
		TaskQueue:     "grading",
		Namespace:     "courses",
		MaxConcurrent: 4,
	})
	assert.Equal(t, "courses", opts.Namespace)
	assert.Equal(t, 4, opts.MaxConcurrent)
}

// TestWorker_StartStop verifies lifecycle methods are idempotent.
// Skipped when no Temporal server is reachable.
func TestWorker_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping StartStop test that requires Temporal server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	w, err := NewWorker(ctx, WorkerOptions{TaskQueue: "grading-test"}, &Activities{})
	if err != nil {
		t.Skipf("temporal server not available: %v", err)
	}

	require.NotNil(t, w)
	require.False(t, w.started)

	// Stop without start is a no-op
	require.NoError(t, w.Stop(ctx))
	require.NoError(t, w.Close())
}
