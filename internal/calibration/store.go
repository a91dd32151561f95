package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileStore persists calibration parameters as a small JSON file
// (calibration_params.json). A missing file is not an error; it means no fit
// has happened yet and the identity parameters apply.
type FileStore struct {
	path   string
	logger *logrus.Logger
}

// NewFileStore builds a store writing to the given path.
func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the stored parameters, falling back to the identity defaults
// when no file exists yet.
func (s *FileStore) Load() (Params, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("path", s.path).Info("No calibration file found, using default parameters")
			return DefaultParams(), nil
		}
		return DefaultParams(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	params := DefaultParams()
	if err := json.Unmarshal(data, &params); err != nil {
		return DefaultParams(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"slope":     params.Slope,
		"intercept": params.Intercept,
		"samples":   params.Samples,
	}).Info("Loaded calibration parameters")
	return params, nil
}

// Save writes the parameters via a temp file and rename so a crash mid-write
// never leaves a torn file behind.
func (s *FileStore) Save(params Params) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calibration parameters: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "calibration-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp calibration file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write calibration file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close calibration file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace calibration file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":      s.path,
		"slope":     params.Slope,
		"intercept": params.Intercept,
	}).Info("Saved calibration parameters")
	return nil
}
