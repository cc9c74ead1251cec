package detector

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/config"
	"github.com/nvr-ai/go-alpr/images"
	"github.com/nvr-ai/go-alpr/logger"
	"github.com/nvr-ai/go-alpr/models"
	"github.com/nvr-ai/go-alpr/plate"
)

// Pipeline reads plates: detect, crop, recognize, assemble.
type Pipeline struct {
	Detector   *PlateDetector
	Recognizer *SymbolRecognizer
	Logger     *zap.Logger
}

// NewDetector builds a plate detector from its configuration section.
func NewDetector(cfg config.ModelConfig, log *zap.Logger) (*PlateDetector, error) {
	m, err := models.NewModel(cfg)
	if err != nil {
		return nil, err
	}
	d, err := NewPlateDetector(m, cfg.Threshold, log)
	if err != nil {
		m.Close()
		return nil, err
	}
	return d, nil
}

// NewRecognizer builds a symbol recognizer from its configuration section.
func NewRecognizer(cfg config.ModelConfig, log *zap.Logger) (*SymbolRecognizer, error) {
	m, err := models.NewModel(cfg)
	if err != nil {
		return nil, err
	}
	r, err := NewSymbolRecognizer(m, cfg.Threshold, cfg.NMS, log)
	if err != nil {
		m.Close()
		return nil, err
	}
	return r, nil
}

// NewPipeline loads both models of cfg.
func NewPipeline(cfg config.Config, log *zap.Logger) (*Pipeline, error) {
	d, err := NewDetector(cfg.Detector, log)
	if err != nil {
		return nil, errors.Wrap(err, "detector")
	}
	r, err := NewRecognizer(cfg.Recognizer, log)
	if err != nil {
		d.Close()
		return nil, errors.Wrap(err, "recognizer")
	}
	return &Pipeline{Detector: d, Recognizer: r, Logger: log}, nil
}

// Read returns the plate in img, or nil when no plate is found. A plate
// whose characters cannot be recognized comes back with no symbols.
func (p *Pipeline) Read(ctx context.Context, img image.Image) (*plate.Plate, error) {
	plates, err := p.ReadBatch(ctx, []image.Image{img})
	if err != nil {
		return nil, err
	}
	return plates[0], nil
}

// ReadBatch reads the plates of several images with one inference per model.
func (p *Pipeline) ReadBatch(ctx context.Context, imgs []image.Image) ([]*plate.Plate, error) {
	log := logger.Or(p.Logger)

	rects, err := p.Detector.DetectBatch(ctx, imgs)
	if err != nil {
		return nil, errors.Wrap(err, "detect")
	}

	plates := make([]*plate.Plate, len(imgs))
	var crops []image.Image
	var owners []int
	for i, rect := range rects {
		if rect == nil {
			continue
		}
		crop, err := images.Crop(imgs[i], *rect)
		if err != nil {
			log.Debug("plate box outside image", zap.Int("index", i), zap.Error(err))
			continue
		}
		plates[i] = &plate.Plate{Rect: *rect}
		crops = append(crops, crop)
		owners = append(owners, i)
	}
	if len(crops) == 0 {
		return plates, nil
	}

	symbols, err := p.Recognizer.RecognizeBatch(ctx, crops)
	if err != nil {
		return nil, errors.Wrap(err, "recognize")
	}
	for j, i := range owners {
		plates[i].Symbols = symbols[j]
	}
	return plates, nil
}

// Close releases both models.
func (p *Pipeline) Close() error {
	derr := p.Detector.Close()
	rerr := p.Recognizer.Close()
	if derr != nil {
		return derr
	}
	return rerr
}
