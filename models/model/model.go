// Package model - the contract between the plate pipeline and an object
// detection model.
package model

import (
	"context"
	"image"

	"gorgonia.org/tensor"
)

// Output holds the detections for one image of a batch. The three slices are
// parallel. Boxes are ltrb in pixels of the original image.
type Output struct {
	Labels []int64      `json:"labels"`
	Boxes  [][4]float32 `json:"boxes"`
	Scores []float32    `json:"scores"`
}

// Len returns the number of detections.
func (o Output) Len() int {
	return min(len(o.Labels), len(o.Boxes), len(o.Scores))
}

// Model is an opaque detector. It receives a [B, 3, H, W] float32 batch in
// [0, 1] and the original size of every image, and returns one Output per image.
type Model interface {
	Infer(ctx context.Context, batch *tensor.Dense, sizes []image.Point) ([]Output, error)
	// InputSize is the H and W the batch must be resized to.
	InputSize() image.Point
	Close() error
}
