// Package postprocess - turns raw model outputs into scored boxes and picks
// the ones the plate pipeline keeps.
package postprocess

import (
	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/models/model"
)

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result, ltrb_abs in original image pixels.
	Box boxes.Box
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}

// FromOutput converts one image's model output into results, in model order.
func FromOutput(out model.Output) []Result {
	n := out.Len()
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		b := out.Boxes[i]
		results[i] = Result{
			Box:   boxes.FromCoordinates(boxes.LTRBAbs, [4]float64{float64(b[0]), float64(b[1]), float64(b[2]), float64(b[3])}),
			Score: out.Scores[i],
			Class: int(out.Labels[i]),
		}
	}
	return results
}
