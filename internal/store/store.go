// Package store persists the produced record sets: one pretty-printed JSON
// envelope per source under the datasets directory, plus raw downloaded
// publications under downloads. Envelopes are the only read/write format;
// nothing else in the pipeline touches the disk layout directly.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"opodata/internal/config"
	apperrors "opodata/internal/errors"
	"opodata/pkg/contracts/domain"
)

// Store reads and writes envelopes within the configured directory layout.
type Store struct {
	paths  *config.Paths
	logger *slog.Logger
}

// New creates a store over the directory layout.
func New(paths *config.Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{paths: paths, logger: logger.With(slog.String("component", "store"))}
}

// WriteEnvelope persists one per-source or merged record set. Output is
// indented: the files are diffed and read by people, not just machines.
func (s *Store) WriteEnvelope(source string, envelope domain.Envelope) error {
	return s.writeJSON(s.paths.DatasetPath(source), envelope)
}

// ReadEnvelope loads one previously produced record set.
func (s *Store) ReadEnvelope(source string) (*domain.Envelope, error) {
	path := s.paths.DatasetPath(source)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("dataset " + source)
		}
		return nil, apperrors.NewStorageError("failed to read dataset", err).
			WithContext("path", path)
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, apperrors.NewParsingError("dataset did not decode", err).
			WithContext("path", path)
	}
	return &envelope, nil
}

// WriteTierEnvelope persists the tier-history record set.
func (s *Store) WriteTierEnvelope(envelope domain.TierEnvelope) error {
	return s.writeJSON(s.paths.DatasetPath("tier_history"), envelope)
}

// ReadTierEnvelope loads the tier-history record set.
func (s *Store) ReadTierEnvelope() (*domain.TierEnvelope, error) {
	path := s.paths.DatasetPath("tier_history")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("tier history dataset")
		}
		return nil, apperrors.NewStorageError("failed to read tier history", err).
			WithContext("path", path)
	}

	var envelope domain.TierEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, apperrors.NewParsingError("tier history did not decode", err).
			WithContext("path", path)
	}
	return &envelope, nil
}

// WriteDownload stores one fetched publication verbatim.
func (s *Store) WriteDownload(name string, data []byte) (string, error) {
	path := s.paths.DownloadPath(name)
	if err := s.writeBytes(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadDownload loads one previously fetched publication.
func (s *Store) ReadDownload(name string) ([]byte, error) {
	path := s.paths.DownloadPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("download " + name)
		}
		return nil, apperrors.NewStorageError("failed to read download", err).
			WithContext("path", path)
	}
	return data, nil
}

// WriteSnapshot stores one archival page capture.
func (s *Store) WriteSnapshot(name string, data []byte) (string, error) {
	path := s.paths.SnapshotPath(name)
	if err := s.writeBytes(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to encode dataset", err).
			WithContext("path", path)
	}
	return s.writeBytes(path, append(data, '\n'))
}

func (s *Store) writeBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).
			WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError("failed to write file", err).
			WithContext("path", path)
	}

	s.logger.Info("wrote file",
		slog.String("path", path),
		slog.Int("size_bytes", len(data)))
	return nil
}
