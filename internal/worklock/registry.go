// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package worklock serializes grading runs over submission directories.
// Running two `go test` invocations in the same checkout at once corrupts
// build artifacts, so each run claims its directory before grading and
// releases it afterwards. Claims expire by TTL so a crashed run cannot
// strand a directory.
package worklock

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL bounds how long a claim survives without renewal. It must
// stay longer than any single grading timeout.
const DefaultTTL = 30 * time.Minute

// Lock records one in-flight grading run's claim on a submission directory.
type Lock struct {
	Dir        string
	Holder     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// ErrNotFound is returned when releasing or renewing a directory that holds
// no active claim.
var ErrNotFound = errors.New("no claim on directory")

// ErrNotHolder is returned when a run tries to release a claim it does not hold.
var ErrNotHolder = errors.New("claim held by another run")

// ConflictError reports that a directory is already claimed by another run.
type ConflictError struct {
	Dir    string
	Holder string
	Since  time.Time
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("submission %s is already being graded by run %s", e.Dir, e.Holder)
}

// Registry tracks directory claims for one worker process.
type Registry struct {
	mu    sync.Mutex
	ttl   time.Duration
	locks map[string]Lock
}

// NewRegistry creates a registry. A zero ttl uses DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:   ttl,
		locks: make(map[string]Lock),
	}
}

// Acquire claims dir for holder. Re-acquiring a claim the same holder already
// owns renews it, so a retried grading attempt does not deadlock against
// itself. A live claim by another holder yields a ConflictError.
func (r *Registry) Acquire(dir, holder string) (Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := filepath.Clean(dir)
	now := time.Now()

	if existing, ok := r.locks[key]; ok && existing.ExpiresAt.After(now) && existing.Holder != holder {
		return Lock{}, &ConflictError{
			Dir:    key,
			Holder: existing.Holder,
			Since:  existing.AcquiredAt,
		}
	}

	lock := Lock{
		Dir:        key,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(r.ttl),
	}
	r.locks[key] = lock
	return lock, nil
}

// Renew extends the claim on dir. Long grading runs renew from their
// heartbeat loop so the claim outlives the work.
func (r *Registry) Renew(dir, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := filepath.Clean(dir)
	now := time.Now()

	existing, ok := r.locks[key]
	if !ok || !existing.ExpiresAt.After(now) {
		return ErrNotFound
	}
	if existing.Holder != holder {
		return ErrNotHolder
	}

	existing.ExpiresAt = now.Add(r.ttl)
	r.locks[key] = existing
	return nil
}

// Release drops the claim on dir. Only the holding run may release it.
func (r *Registry) Release(dir, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := filepath.Clean(dir)
	existing, ok := r.locks[key]
	if !ok {
		return ErrNotFound
	}
	if existing.Holder != holder {
		return ErrNotHolder
	}

	delete(r.locks, key)
	return nil
}

// Active reports the live claim on dir, if any.
func (r *Registry) Active(dir string) (Lock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[filepath.Clean(dir)]
	if !ok || !existing.ExpiresAt.After(time.Now()) {
		return Lock{}, false
	}
	return existing, true
}

// Sweep removes expired claims and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, lock := range r.locks {
		if !lock.ExpiresAt.After(now) {
			delete(r.locks, key)
			removed++
		}
	}
	return removed
}
