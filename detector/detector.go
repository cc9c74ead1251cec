// Package detector - adapts models to the plate pipeline: one model finds the
// plate in a frame, another finds the characters in the plate crop.
package detector

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/logger"
	"github.com/nvr-ai/go-alpr/models/model"
	"github.com/nvr-ai/go-alpr/models/model/preprocess"
	"github.com/nvr-ai/go-alpr/models/postprocess"
)

// runner preprocesses a batch, runs the model and converts its outputs.
type runner struct {
	model model.Model
	pre   *preprocess.Preprocessor
	log   *zap.Logger
}

func newRunner(name string, m model.Model, log *zap.Logger) (runner, error) {
	if m == nil {
		return runner{}, errors.Errorf("%s: nil model", name)
	}
	size := m.InputSize()
	pre, err := preprocess.NewPreprocessor(preprocess.Config{Name: name, InputWidth: size.X, InputHeight: size.Y})
	if err != nil {
		return runner{}, err
	}
	return runner{model: m, pre: pre, log: logger.Or(log).Named(name)}, nil
}

func (r runner) run(ctx context.Context, imgs []image.Image) ([][]postprocess.Result, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	batch, sizes, err := r.pre.Batch(imgs)
	if err != nil {
		return nil, err
	}
	outputs, err := r.model.Infer(ctx, batch, sizes)
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}
	if len(outputs) != len(imgs) {
		return nil, errors.Errorf("model returned %d outputs for %d images", len(outputs), len(imgs))
	}

	results := make([][]postprocess.Result, len(outputs))
	for i, out := range outputs {
		results[i] = postprocess.FromOutput(out)
	}
	return results, nil
}

// PlateDetector locates at most one plate per image.
type PlateDetector struct {
	runner
	threshold float32
}

// NewPlateDetector wraps m. Only boxes scoring strictly above threshold are considered.
func NewPlateDetector(m model.Model, threshold float32, log *zap.Logger) (*PlateDetector, error) {
	r, err := newRunner("detector", m, log)
	if err != nil {
		return nil, err
	}
	return &PlateDetector{runner: r, threshold: threshold}, nil
}

// Detect returns the plate box in img as ltrb_abs, or nil when there is none.
func (d *PlateDetector) Detect(ctx context.Context, img image.Image) (*boxes.Box, error) {
	plates, err := d.DetectBatch(ctx, []image.Image{img})
	if err != nil {
		return nil, err
	}
	return plates[0], nil
}

// DetectBatch runs one inference for all imgs. Entry i is nil when image i
// has no plate.
func (d *PlateDetector) DetectBatch(ctx context.Context, imgs []image.Image) ([]*boxes.Box, error) {
	results, err := d.run(ctx, imgs)
	if err != nil {
		return nil, err
	}

	plates := make([]*boxes.Box, len(results))
	for i, rs := range results {
		best, ok := postprocess.SelectPlate(rs, d.threshold)
		if !ok {
			d.log.Debug("no plate", zap.Int("index", i), zap.Int("candidates", len(rs)))
			continue
		}
		box := best.Box
		plates[i] = &box
	}
	return plates, nil
}

// Close releases the model.
func (d *PlateDetector) Close() error {
	return d.model.Close()
}
