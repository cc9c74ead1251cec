// Package dfine - runs an exported D-FINE graph through ONNX Runtime.
//
// The graph is expected to include the D-FINE postprocessor, so it takes the
// batch and the original image sizes and returns final labels, boxes and scores.
package dfine

import (
	"context"
	"image"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-alpr/models/model"
)

var (
	envOnce sync.Once
	envErr  error
)

// Options configures a D-FINE session.
type Options struct {
	// Path is the .onnx file.
	Path string
	// Library is the ONNX Runtime shared library. Empty picks a per-platform default.
	Library string
	// InputSize is the square or rectangular size the graph was exported for.
	InputSize image.Point
	// Threads sets intra-op parallelism. Zero lets ONNX Runtime decide.
	Threads int
}

// Session is a loaded D-FINE graph. It implements model.Model.
type Session struct {
	session *ort.DynamicAdvancedSession
	size    image.Point
}

// NewModel loads the graph at opts.Path.
//
// Arguments:
//   - opts: Model file, runtime library and input size.
//
// Returns:
//   - *Session: A session ready for Infer.
//   - error: If the runtime cannot be initialized or the graph cannot be loaded.
//
// @example
//
//	m, err := dfine.NewModel(dfine.Options{Path: "plate_detection.onnx", InputSize: image.Pt(640, 640)})
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
func NewModel(opts Options) (*Session, error) {
	if opts.InputSize.X <= 0 || opts.InputSize.Y <= 0 {
		return nil, errors.Errorf("invalid input size %v", opts.InputSize)
	}
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, errors.Wrap(err, "model file")
	}
	if err := initEnvironment(opts.Library); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if opts.Threads > 0 {
		if err := options.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, errors.Wrap(err, "error setting intra-op threads")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.Path,
		[]string{model.InputImages, model.InputTargetSizes},
		[]string{model.OutputLabels, model.OutputBoxes, model.OutputScores},
		options,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Session{session: session, size: opts.InputSize}, nil
}

// InputSize returns the size batches must be resized to.
func (s *Session) InputSize() image.Point {
	return s.size
}

// Infer runs one batch. ONNX Runtime cannot be interrupted, so ctx is only
// checked before the run starts.
func (s *Session) Infer(ctx context.Context, batch *tensor.Dense, sizes []image.Point) ([]model.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := batch.Shape()
	if len(shape) != 4 || shape[0] != len(sizes) {
		return nil, errors.Errorf("batch shape %v does not match %d image sizes", shape, len(sizes))
	}
	data, ok := batch.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("batch must be float32, got %T", batch.Data())
	}

	images, err := ort.NewTensor(ort.NewShape(int64(shape[0]), int64(shape[1]), int64(shape[2]), int64(shape[3])), data)
	if err != nil {
		return nil, errors.Wrap(err, "error creating images tensor")
	}
	defer images.Destroy()

	targets, err := ort.NewTensor(ort.NewShape(int64(len(sizes)), 2), TargetSizes(sizes))
	if err != nil {
		return nil, errors.Wrap(err, "error creating target sizes tensor")
	}
	defer targets.Destroy()

	// Nil outputs are allocated by the runtime.
	outputs := []ort.Value{nil, nil, nil}
	if err := s.session.Run([]ort.Value{images, targets}, outputs); err != nil {
		return nil, errors.Wrap(err, "error running D-FINE session")
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	labels, ok := outputs[0].(*ort.Tensor[int64])
	if !ok {
		return nil, errors.Errorf("labels output has type %T", outputs[0])
	}
	boxes, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Errorf("boxes output has type %T", outputs[1])
	}
	scores, ok := outputs[2].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Errorf("scores output has type %T", outputs[2])
	}

	return Decode(labels.GetData(), boxes.GetData(), scores.GetData(), len(sizes))
}

// Close releases the native session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return errors.Wrap(err, "error destroying ORT session")
}

func initEnvironment(library string) error {
	envOnce.Do(func() {
		if library == "" {
			library = getSharedLibPath()
		}
		if _, err := os.Stat(library); err != nil {
			envErr = errors.Wrapf(err, "ONNX Runtime library not found at %s", library)
			return
		}
		ort.SetSharedLibraryPath(library)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return envErr
}

// getSharedLibPath returns the bundled runtime library for this platform.
func getSharedLibPath() string {
	if runtime.GOOS == "windows" {
		return "third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime_amd64.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "third_party/onnxruntime_arm64.so"
	}
	return "third_party/onnxruntime.so"
}
