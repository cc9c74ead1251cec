// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-alpr/config"
	"github.com/nvr-ai/go-alpr/models/dfine"
	"github.com/nvr-ai/go-alpr/models/model"
	"github.com/nvr-ai/go-alpr/models/remote"
)

// NewModel creates a model instance for the configured backend.
//
// Arguments:
//   - cfg: The model section of the configuration.
//
// Returns:
//   - model.Model: A ready model. The caller must Close it.
//   - error: If the backend is unknown or the model cannot be created.
//
// Example:
//
// ```go
//
//	cfg := config.Default()
//	detector, err := models.NewModel(cfg.Detector)
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
//	defer detector.Close()
//
// ```
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "model %q", cfg.Name)
	}

	switch cfg.Backend {
	case model.BackendONNX:
		m, err := dfine.NewModel(dfine.Options{
			Path:      cfg.Path,
			Library:   cfg.Library,
			InputSize: cfg.InputSize(),
			Threads:   cfg.Threads,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "model %q", cfg.Name)
		}
		return m, nil
	case model.BackendRemote:
		m, err := remote.NewModel(remote.Options{
			URL:       cfg.URL,
			Timeout:   cfg.Timeout,
			InputSize: cfg.InputSize(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "model %q", cfg.Name)
		}
		return m, nil
	default:
		return nil, errors.Errorf("unsupported model backend: %s", cfg.Backend)
	}
}
