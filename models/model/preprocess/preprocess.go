// Package preprocess turns decoded images into model input tensors.
package preprocess

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Config describes the input a model expects.
type Config struct {
	// Name of the model for log messages.
	Name string `json:"name" yaml:"name"`
	// InputWidth is the expected width of the model input.
	InputWidth int `json:"input_width" yaml:"input_width"`
	// InputHeight is the expected height of the model input.
	InputHeight int `json:"input_height" yaml:"input_height"`
}

// Preprocessor stretches images to the model input size, scales pixels to
// [0, 1] and lays them out as a [B, 3, H, W] float32 tensor.
//
// Aspect ratio is not kept. Models trained on stretched inputs expect that.
type Preprocessor struct {
	config Config
	// Interpolation used when resizing. Bilinear unless set.
	Interpolation resize.InterpolationFunction
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The model input configuration.
//
// Returns:
// - A configured Preprocessor instance.
// - error if the input size is not positive.
//
// @example
//
//	p, err := NewPreprocessor(Config{Name: "detector", InputWidth: 640, InputHeight: 640})
func NewPreprocessor(config Config) (*Preprocessor, error) {
	if config.InputWidth <= 0 || config.InputHeight <= 0 {
		return nil, errors.Errorf("invalid input size %dx%d for %q", config.InputWidth, config.InputHeight, config.Name)
	}
	return &Preprocessor{config: config, Interpolation: resize.Bilinear}, nil
}

// Size returns the model input size.
func (p *Preprocessor) Size() image.Point {
	return image.Pt(p.config.InputWidth, p.config.InputHeight)
}

// Batch preprocesses imgs into one tensor.
//
// Arguments:
// - imgs: Decoded images of any size.
//
// Returns:
// - The [len(imgs), 3, H, W] input tensor.
// - The original size of each image, as the model needs it to scale boxes back.
// - error if imgs is empty.
func (p *Preprocessor) Batch(imgs []image.Image) (*tensor.Dense, []image.Point, error) {
	if len(imgs) == 0 {
		return nil, nil, errors.New("empty batch")
	}

	w, h := p.config.InputWidth, p.config.InputHeight
	plane := 3 * w * h
	data := make([]float32, len(imgs)*plane)
	sizes := make([]image.Point, len(imgs))

	var wg sync.WaitGroup
	for i, img := range imgs {
		sizes[i] = img.Bounds().Size()

		wg.Add(1)
		go func(i int, img image.Image) {
			defer wg.Done()
			resized := resize.Resize(uint(w), uint(h), dropAlpha(img), p.Interpolation)
			fillCHW(data[i*plane:(i+1)*plane], resized, w, h)
		}(i, img)
	}
	wg.Wait()

	batch := tensor.New(
		tensor.WithShape(len(imgs), 3, h, w),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	)
	return batch, sizes, nil
}

// dropAlpha returns img with straight colors and full opacity, so transparent
// pixels keep their color instead of being premultiplied towards black.
func dropAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	flat := imaging.Clone(img)
	for i := 3; i < len(flat.Pix); i += 4 {
		flat.Pix[i] = 0xff
	}
	return flat
}

// fillCHW writes the red, green and blue planes of img into dst, scaled to [0, 1].
func fillCHW(dst []float32, img image.Image, w, h int) {
	b := img.Bounds()
	area := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			dst[i] = float32(r) / 0xffff
			dst[area+i] = float32(g) / 0xffff
			dst[2*area+i] = float32(bl) / 0xffff
		}
	}
}
