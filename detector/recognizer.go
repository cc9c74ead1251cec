package detector

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/models/model"
	"github.com/nvr-ai/go-alpr/models/postprocess"
	"github.com/nvr-ai/go-alpr/plate"
)

// SymbolRecognizer finds the characters of a cropped plate.
type SymbolRecognizer struct {
	runner
	threshold float32
	nms       *postprocess.NMSConfig
}

// NewSymbolRecognizer wraps m. Boxes scoring strictly above threshold are
// kept. A positive nmsIoU suppresses overlapping boxes of the same class.
func NewSymbolRecognizer(m model.Model, threshold, nmsIoU float32, log *zap.Logger) (*SymbolRecognizer, error) {
	r, err := newRunner("recognizer", m, log)
	if err != nil {
		return nil, err
	}
	return &SymbolRecognizer{
		runner:    r,
		threshold: threshold,
		nms:       &postprocess.NMSConfig{IoUThreshold: nmsIoU, ClassAware: true},
	}, nil
}

// Recognize returns the symbols of img in reading order, or nil when no box
// is confident.
func (r *SymbolRecognizer) Recognize(ctx context.Context, img image.Image) ([]plate.Symbol, error) {
	symbols, err := r.RecognizeBatch(ctx, []image.Image{img})
	if err != nil {
		return nil, err
	}
	return symbols[0], nil
}

// RecognizeBatch runs one inference for all imgs.
func (r *SymbolRecognizer) RecognizeBatch(ctx context.Context, imgs []image.Image) ([][]plate.Symbol, error) {
	results, err := r.run(ctx, imgs)
	if err != nil {
		return nil, err
	}

	out := make([][]plate.Symbol, len(results))
	for i, rs := range results {
		out[i] = r.symbols(rs)
		if out[i] == nil {
			r.log.Debug("no symbols", zap.Int("index", i), zap.Int("candidates", len(rs)))
		}
	}
	return out, nil
}

func (r *SymbolRecognizer) symbols(results []postprocess.Result) []plate.Symbol {
	confident := postprocess.ApplyGreedyNMS(postprocess.Confident(results, r.threshold), r.nms)
	if len(confident) == 0 {
		return nil
	}

	symbols := make([]plate.Symbol, len(confident))
	for i, res := range confident {
		symbols[i] = plate.Symbol{ID: res.Class, Rect: res.Box, Score: res.Score}
	}
	return plate.Sequence(symbols)
}

// Close releases the model.
func (r *SymbolRecognizer) Close() error {
	return r.model.Close()
}
