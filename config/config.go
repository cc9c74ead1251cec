// Package config - YAML configuration for the plate pipeline.
package config

import (
	"image"
	"image/color"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-alpr/models/model"
)

// ModelConfig selects and tunes one model.
type ModelConfig struct {
	// Name of the model for log messages.
	Name string `json:"name" yaml:"name"`
	// Backend is "onnx" or "remote".
	Backend model.Backend `json:"backend" yaml:"backend"`
	// Path is the .onnx file for the onnx backend.
	Path string `json:"path" yaml:"path"`
	// Library is the ONNX Runtime shared library. Empty picks a per-platform default.
	Library string `json:"library" yaml:"library"`
	// URL is the service address for the remote backend.
	URL string `json:"url" yaml:"url"`
	// InputWidth and InputHeight are the size images are stretched to.
	InputWidth  int `json:"input_width" yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`
	// Threshold is the strict lower bound on confidence.
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// NMS is the IoU above which overlapping boxes are suppressed. Zero disables it.
	NMS float32 `json:"nms" yaml:"nms"`
	// Threads sets ONNX Runtime intra-op parallelism. Zero lets it decide.
	Threads int `json:"threads" yaml:"threads"`
	// Timeout bounds one remote request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// InputSize returns the model input as a point.
func (m ModelConfig) InputSize() image.Point {
	return image.Pt(m.InputWidth, m.InputHeight)
}

// DrawConfig controls annotated output images.
type DrawConfig struct {
	// Color is a hex color such as "#ff0000".
	Color string `json:"color" yaml:"color"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// Config is the whole configuration file.
type Config struct {
	Detector   ModelConfig  `json:"detector" yaml:"detector"`
	Recognizer ModelConfig  `json:"recognizer" yaml:"recognizer"`
	Batch      int          `json:"batch" yaml:"batch"`
	Workers    int          `json:"workers" yaml:"workers"`
	Alphabet   string       `json:"alphabet" yaml:"alphabet"`
	Draw       DrawConfig   `json:"draw" yaml:"draw"`
	Log        LogConfig    `json:"log" yaml:"log"`
	Server     ServerConfig `json:"server" yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Detector: ModelConfig{
			Name:        "plate_detection",
			Backend:     model.BackendONNX,
			Path:        "models/plate_detection.onnx",
			InputWidth:  640,
			InputHeight: 640,
			Threshold:   0.9,
			Timeout:     30 * time.Second,
		},
		Recognizer: ModelConfig{
			Name:        "plate_recognition",
			Backend:     model.BackendONNX,
			Path:        "models/plate_recognition.onnx",
			InputWidth:  256,
			InputHeight: 256,
			Threshold:   0.5,
			Timeout:     30 * time.Second,
		},
		Batch:    16,
		Workers:  4,
		Alphabet: "0123456789ABEKMHOPCTYX",
		Draw:     DrawConfig{Color: "#ff0000"},
		Log:      LogConfig{Level: "info"},
		Server:   ServerConfig{Addr: ":8080", MaxBodyBytes: 10 << 20},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return errors.Wrap(err, "detector")
	}
	if err := c.Recognizer.Validate(); err != nil {
		return errors.Wrap(err, "recognizer")
	}
	if c.Batch <= 0 {
		return errors.Errorf("batch must be positive, got %d", c.Batch)
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := c.Draw.RGBA(); err != nil {
		return err
	}
	return nil
}

// Validate checks a model section.
func (m ModelConfig) Validate() error {
	switch m.Backend {
	case model.BackendONNX:
		if m.Path == "" {
			return errors.New("onnx backend needs a path")
		}
	case model.BackendRemote:
		if m.URL == "" {
			return errors.New("remote backend needs a url")
		}
	default:
		return errors.Errorf("unknown backend %q", m.Backend)
	}
	if m.InputWidth <= 0 || m.InputHeight <= 0 {
		return errors.Errorf("invalid input size %dx%d", m.InputWidth, m.InputHeight)
	}
	if m.Threshold < 0 || m.Threshold >= 1 {
		return errors.Errorf("threshold must be in [0, 1), got %v", m.Threshold)
	}
	if m.NMS < 0 || m.NMS > 1 {
		return errors.Errorf("nms must be in [0, 1], got %v", m.NMS)
	}
	return nil
}

// RGBA parses the draw color.
func (d DrawConfig) RGBA() (color.Color, error) {
	c, err := colorful.Hex(d.Color)
	if err != nil {
		return nil, errors.Wrapf(err, "draw color %q", d.Color)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
