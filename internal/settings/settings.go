// Package settings persists operator-toggled runtime settings. The
// only setting today is the auto-response switch, stored as a small
// JSON file so it survives restarts without a schema migration.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/pkg/logger"
)

type fileState struct {
	Enabled bool `json:"enabled"`
}

// Store holds the auto-response flag, mirrored to a JSON file.
type Store struct {
	path   string
	logger *logger.Logger

	mu      sync.RWMutex
	enabled bool
}

// Open loads the store from path. A missing file means disabled; a
// corrupt file is treated the same and logged.
func Open(path string, log *logger.Logger) (*Store, error) {
	s := &Store{path: path, logger: log}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn("settings: ignoring corrupt settings file",
			zap.String("path", path),
			zap.Error(err),
		)
		return s, nil
	}

	s.enabled = state.Enabled
	return s, nil
}

// Enabled reports whether auto-response is on.
func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled flips the flag and persists it. The in-memory value is
// updated even if the write fails, so the running process honors the
// operator's choice either way.
func (s *Store) SetEnabled(enabled bool) error {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	data, err := json.Marshal(fileState{Enabled: enabled})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}

	s.logger.Info("auto-response setting changed", zap.Bool("enabled", enabled))
	return nil
}
