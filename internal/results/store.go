// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package results persists grading reports in a local Badger database so
// runs can be reviewed after the fact and served over the results API.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/illinois/autograding/internal/grading"
)

// ErrNotFound is returned when no report exists for a run ID.
var ErrNotFound = errors.New("run not found")

// Key layout:
//
//	run/<run_id>                     -> report JSON
//	assignment/<name>/<run_id>       -> run_id
//
// The second key is an index so one assignment's history is a prefix scan.
const (
	runKeyPrefix   = "run/"
	indexKeyPrefix = "assignment/"
)

// Store persists grading reports.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the report database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	// Badger's default logger writes straight to stderr and drowns the CLI
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway store that lives only in memory.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory results database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(runID string) []byte {
	return []byte(runKeyPrefix + runID)
}

func indexKey(assignment, runID string) []byte {
	return []byte(indexKeyPrefix + assignment + "/" + runID)
}

// Save persists a report under its run ID and indexes it by assignment.
func (s *Store) Save(report *grading.Report) error {
	if report.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.RunID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(report.RunID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(report.Assignment, report.RunID), []byte(report.RunID))
	})
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.RunID, err)
	}
	return nil
}

// Get loads one report by run ID.
func (s *Store) Get(runID string) (*grading.Report, error) {
	var report grading.Report

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(runID))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(val, &report)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", runID, err)
	}
	return &report, nil
}

// ListByAssignment returns an assignment's reports, newest first.
// A limit of 0 returns everything.
func (s *Store) ListByAssignment(assignment string, limit int) ([]*grading.Report, error) {
	var runIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(indexKeyPrefix + assignment + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			runIDs = append(runIDs, string(val))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs for %s: %w", assignment, err)
	}

	reports := make([]*grading.Report, 0, len(runIDs))
	for _, id := range runIDs {
		report, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// Latest returns an assignment's most recent report.
func (s *Store) Latest(assignment string) (*grading.Report, error) {
	reports, err := s.ListByAssignment(assignment, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: no runs for assignment %s", ErrNotFound, assignment)
	}
	return reports[0], nil
}
