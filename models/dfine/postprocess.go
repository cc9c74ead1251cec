package dfine

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-alpr/models/model"
)

// TargetSizes flattens image sizes into the [B, 2] (width, height) input of
// the D-FINE postprocessor.
func TargetSizes(sizes []image.Point) []int64 {
	out := make([]int64, 0, 2*len(sizes))
	for _, s := range sizes {
		out = append(out, int64(s.X), int64(s.Y))
	}
	return out
}

// Decode splits the flat [B, Q], [B, Q, 4] and [B, Q] output buffers into one
// Output per image. Q is the number of object queries of the graph.
//
// Arguments:
//   - labels: Class ids, B*Q values.
//   - boxes: ltrb boxes in original image pixels, B*Q*4 values.
//   - scores: Confidences, B*Q values.
//   - batch: B.
//
// Returns:
//   - One Output per image, in batch order.
//   - error if the buffer lengths disagree.
func Decode(labels []int64, boxes []float32, scores []float32, batch int) ([]model.Output, error) {
	if batch <= 0 {
		return nil, errors.Errorf("invalid batch size %d", batch)
	}
	if len(labels)%batch != 0 {
		return nil, errors.Errorf("%d labels do not split into %d images", len(labels), batch)
	}
	queries := len(labels) / batch
	if len(scores) != len(labels) || len(boxes) != 4*len(labels) {
		return nil, errors.Errorf("output lengths disagree: %d labels, %d boxes, %d scores", len(labels), len(boxes), len(scores))
	}

	outputs := make([]model.Output, batch)
	for b := 0; b < batch; b++ {
		out := model.Output{
			Labels: make([]int64, queries),
			Boxes:  make([][4]float32, queries),
			Scores: make([]float32, queries),
		}
		for q := 0; q < queries; q++ {
			i := b*queries + q
			out.Labels[q] = labels[i]
			out.Scores[q] = scores[i]
			copy(out.Boxes[q][:], boxes[4*i:4*i+4])
		}
		outputs[b] = out
	}
	return outputs, nil
}
