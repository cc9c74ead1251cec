// Package remote - runs the detector on an inference service over HTTP.
package remote

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-alpr/models/model"
)

// PredictPath is the endpoint batches are posted to.
const PredictPath = "/predict"

// Options configures a remote model.
type Options struct {
	// URL is the base address of the service, e.g. "http://10.0.0.5:8000".
	URL string
	// Timeout bounds one request. Zero means 30s.
	Timeout time.Duration
	// InputSize is the size the service expects batches in.
	InputSize image.Point
}

// PredictRequest is the JSON body of a predict call. Images holds the batch
// flattened in [B, 3, H, W] order.
type PredictRequest struct {
	Shape           []int      `json:"shape"`
	Images          []float32  `json:"images"`
	OrigTargetSizes [][2]int64 `json:"orig_target_sizes"`
}

// PredictResponse mirrors the three outputs of the graph, one row per image.
type PredictResponse struct {
	Labels [][]int64      `json:"labels"`
	Boxes  [][][4]float32 `json:"boxes"`
	Scores [][]float32    `json:"scores"`
}

// Client implements model.Model against an inference service.
type Client struct {
	http *resty.Client
	size image.Point
}

// NewModel creates a client. No request is made until Infer.
func NewModel(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("remote model needs a URL")
	}
	if opts.InputSize.X <= 0 || opts.InputSize.Y <= 0 {
		return nil, errors.Errorf("invalid input size %v", opts.InputSize)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: client, size: opts.InputSize}, nil
}

// InputSize returns the size batches must be resized to.
func (c *Client) InputSize() image.Point {
	return c.size
}

// Infer posts the batch and decodes one Output per image.
func (c *Client) Infer(ctx context.Context, batch *tensor.Dense, sizes []image.Point) ([]model.Output, error) {
	shape := batch.Shape()
	if len(shape) != 4 || shape[0] != len(sizes) {
		return nil, errors.Errorf("batch shape %v does not match %d image sizes", shape, len(sizes))
	}
	data, ok := batch.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("batch must be float32, got %T", batch.Data())
	}

	req := PredictRequest{
		Shape:           []int(shape.Clone()),
		Images:          data,
		OrigTargetSizes: make([][2]int64, len(sizes)),
	}
	for i, s := range sizes {
		req.OrigTargetSizes[i] = [2]int64{int64(s.X), int64(s.Y)}
	}

	var body PredictResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetBody(req).
		SetResult(&body).
		Post(PredictPath)
	if err != nil {
		return nil, errors.Wrap(err, "predict request")
	}
	if resp.IsError() {
		return nil, errors.Errorf("predict returned %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}

	if len(body.Labels) != len(sizes) || len(body.Boxes) != len(sizes) || len(body.Scores) != len(sizes) {
		return nil, errors.Errorf("predict returned %d/%d/%d rows for %d images",
			len(body.Labels), len(body.Boxes), len(body.Scores), len(sizes))
	}

	outputs := make([]model.Output, len(sizes))
	for i := range outputs {
		outputs[i] = model.Output{Labels: body.Labels[i], Boxes: body.Boxes[i], Scores: body.Scores[i]}
	}
	return outputs, nil
}

// Close is a no-op. Idle connections are reclaimed by the transport.
func (c *Client) Close() error {
	return nil
}
