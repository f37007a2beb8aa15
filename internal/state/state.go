// Package state provides the persistent last-build record for each output
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/types"
	"github.com/cherry/cherry/pkg/utils"
)

// Dir is the directory, next to the artifacts, that holds the records
const Dir = ".cherry"

// BuildRecord describes the last build written to an output base name
type BuildRecord struct {
	Output        string            `json:"output"`
	Manifest      string            `json:"manifest"`
	Mode          types.BuildMode   `json:"mode"`
	Status        types.BuildStatus `json:"status"`
	BuildID       string            `json:"buildId"`
	LastBuildTime time.Time         `json:"lastBuildTime"`
	BuildDuration time.Duration     `json:"buildDuration,omitempty"`
	BuildCount    int               `json:"buildCount"`
	FailureCount  int               `json:"failureCount"`
	LastError     string            `json:"lastError,omitempty"`
	ProcessID     int               `json:"processId"`
}

// Store reads and writes build records as JSON files
type Store struct {
	logger logger.Logger
	mu     sync.Mutex
}

// NewStore creates a new record store
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{logger: log}
}

// Path returns the record file for the given output base name
func (s *Store) Path(output string) string {
	return filepath.Join(filepath.Dir(output), Dir, filepath.Base(output)+".json")
}

// Load returns the record for output, or nil when none was written
func (s *Store) Load(output string) (*BuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(output)
}

// Record stores the outcome of a build, carrying over the counters of the
// previous record for the same output.
func (s *Store) Record(rec BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.load(rec.Output)
	if err != nil {
		s.logger.Warn("Discarding unreadable build record",
			logger.WithField("output", rec.Output),
			logger.WithField("error", err))
		prev = nil
	}
	if prev != nil {
		rec.BuildCount = prev.BuildCount
		rec.FailureCount = prev.FailureCount
	}
	if rec.Status == types.BuildStatusFailed {
		rec.FailureCount++
	} else {
		rec.BuildCount++
		rec.LastError = ""
	}
	if rec.LastBuildTime.IsZero() {
		rec.LastBuildTime = time.Now()
	}
	rec.ProcessID = os.Getpid()

	return s.save(&rec)
}

// Remove deletes the record for output and the record directory once empty
func (s *Store) Remove(output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(output)
	if _, err := utils.RemoveIfExists(path); err != nil {
		return fmt.Errorf("failed to remove build record: %w", err)
	}

	// Fails harmlessly while other records remain.
	_ = os.Remove(filepath.Dir(path))
	return nil
}

func (s *Store) load(output string) (*BuildRecord, error) {
	data, err := os.ReadFile(s.Path(output))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read build record: %w", err)
	}

	var rec BuildRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse build record: %w", err)
	}
	return &rec, nil
}

func (s *Store) save(rec *BuildRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build record: %w", err)
	}
	if err := utils.WriteFile(s.Path(rec.Output), data); err != nil {
		return fmt.Errorf("failed to write build record: %w", err)
	}
	s.logger.Debug("Saved build record",
		logger.WithField("output", rec.Output),
		logger.WithField("mode", rec.Mode))
	return nil
}
