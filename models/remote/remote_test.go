package remote

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-alpr/models/model"
)

func testBatch(n int) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(n, 3, 2, 2),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(make([]float32, n*3*2*2)),
	)
}

// TestInferRoundTrip validates the request encoding and response decoding of a predict call.
//
// Arguments:
//   - t: The testing context for assertions and error reporting.
func TestInferRoundTrip(t *testing.T) {
	var got PredictRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PredictPath, r.URL.Path)
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err, "Every request should carry a request id")

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PredictResponse{
			Labels: [][]int64{{0}, {}},
			Boxes:  [][][4]float32{{{1, 2, 3, 4}}, {}},
			Scores: [][]float32{{0.97}, {}},
		})
	}))
	defer server.Close()

	m, err := NewModel(Options{URL: server.URL + "/", InputSize: image.Pt(2, 2)})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, image.Pt(2, 2), m.InputSize())

	outputs, err := m.Infer(context.Background(), testBatch(2), []image.Point{{X: 640, Y: 480}, {X: 10, Y: 20}})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 2, 2}, got.Shape)
	assert.Len(t, got.Images, 24)
	assert.Equal(t, [][2]int64{{640, 480}, {10, 20}}, got.OrigTargetSizes)

	require.Len(t, outputs, 2)
	assert.Equal(t, model.Output{Labels: []int64{0}, Boxes: [][4]float32{{1, 2, 3, 4}}, Scores: []float32{0.97}}, outputs[0])
	assert.Equal(t, 0, outputs[1].Len(), "An image without detections should get an empty output")
}

func TestInferServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m, err := NewModel(Options{URL: server.URL, InputSize: image.Pt(2, 2)})
	require.NoError(t, err)

	_, err = m.Infer(context.Background(), testBatch(1), []image.Point{{X: 1, Y: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestInferRowMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"labels":[[1]],"boxes":[[[0,0,1,1]]],"scores":[[0.5]]}`))
	}))
	defer server.Close()

	m, err := NewModel(Options{URL: server.URL, InputSize: image.Pt(2, 2)})
	require.NoError(t, err)

	_, err = m.Infer(context.Background(), testBatch(2), []image.Point{{X: 1, Y: 1}, {X: 1, Y: 1}})
	assert.Error(t, err, "Fewer rows than images should be rejected")
}

func TestInferShapeMismatch(t *testing.T) {
	m, err := NewModel(Options{URL: "http://127.0.0.1:1", InputSize: image.Pt(2, 2)})
	require.NoError(t, err)

	_, err = m.Infer(context.Background(), testBatch(2), []image.Point{{X: 1, Y: 1}})
	assert.Error(t, err)
}

func TestNewModelValidation(t *testing.T) {
	_, err := NewModel(Options{InputSize: image.Pt(2, 2)})
	assert.Error(t, err)

	_, err = NewModel(Options{URL: "http://x", InputSize: image.Pt(0, 2)})
	assert.Error(t, err)
}
