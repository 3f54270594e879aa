// Package runjournal persists completed workflow steps in a WAL so a run can
// be audited (and streamed to the dashboard) after the fact.
package runjournal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/lendo/internal/domain"
)

const (
	defaultJournalDir   = "./wal/run"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	stepKeyPrefix       = "step_"
)

// WALStore persists step records in a WAL for audit/streaming purposes.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed step journal under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "run_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes the step record to WAL. Callers must ensure record.Step is set.
func (s *WALStore) Append(record domain.StepRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("run journal is not initialized")
	}
	if record.Step == "" {
		return errors.New("step record step name is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal step record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, stepKeyPrefix+record.Step, payload)
}

// RecordsAfter returns all step records written after the provided WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]domain.StepRecordEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("run journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]domain.StepRecordEntry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, stepKeyPrefix) {
			continue
		}
		var record domain.StepRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode step record")
		}
		entries = append(entries, domain.StepRecordEntry{
			Index:  idx,
			Record: record,
		})
	}

	return entries, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("run journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
