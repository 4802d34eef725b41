// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package incident

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/validation"
)

func (s *Store) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}
	return s.loadLocked()
}

// loadLocked reads the index from disk. A missing file is created empty.
// Unreadable JSON is logged and treated as an empty index, and individual
// entries that fail validation are skipped.
func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.incidents = make(map[string]*detection.Incident)
		if err := s.saveLocked(); err != nil {
			return err
		}
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logging.Warn().Err(err).Str("path", s.path).Msg("Incident index unreadable, starting empty")
		raw = nil
	}

	index := make(map[string]*detection.Incident, len(raw))
	skipped := 0
	for _, item := range raw {
		var inc detection.Incident
		if err := json.Unmarshal(item, &inc); err != nil {
			skipped++
			continue
		}
		if verr := validation.ValidateStruct(&inc); verr != nil {
			skipped++
			continue
		}
		if inc.Status == "" {
			inc.Status = detection.StatusOpen
		}
		index[inc.IncidentID] = &inc
	}
	if skipped > 0 {
		logging.Warn().Int("skipped", skipped).Str("path", s.path).Msg("Skipped invalid incidents while loading")
	}

	s.incidents = index
	s.loaded = true
	logging.Info().Int("incidents", len(index)).Str("path", s.path).Msg("Incident index loaded")
	return nil
}

// saveLocked writes the whole index, sorted by ID, to a temp file in the
// target directory and renames it into place.
func (s *Store) saveLocked() error {
	items := make([]*detection.Incident, 0, len(s.incidents))
	for _, id := range s.sortedIDsLocked() {
		items = append(items, s.incidents[id])
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort after a failed write
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
