package coco

import (
	"math"

	"github.com/pkg/errors"
)

// Split partitions d into a training and an evaluation dataset.
//
// The first floor(len(Images)*ratio) images, in their current order, go to the
// training set and the rest to the evaluation set. Each annotation follows the
// image it references. Both results share Info and the full Categories slice
// with d.
//
// Arguments:
//   - ratio: Fraction of images for training, within [0, 1].
//
// Returns:
//   - The training dataset.
//   - The evaluation dataset.
//   - An error if ratio is out of range.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, nil, errors.Errorf("split ratio %v outside [0, 1]", ratio)
	}

	n := int(math.Floor(float64(len(d.Images)) * ratio))

	train := &Dataset{
		Info:        d.Info,
		Images:      append(make([]Image, 0, n), d.Images[:n]...),
		Annotations: []Annotation{},
		Categories:  d.Categories,
	}
	eval := &Dataset{
		Info:        d.Info,
		Images:      append(make([]Image, 0, len(d.Images)-n), d.Images[n:]...),
		Annotations: []Annotation{},
		Categories:  d.Categories,
	}

	inTrain := make(map[int]struct{}, n)
	for _, img := range train.Images {
		inTrain[img.ID] = struct{}{}
	}

	for _, ann := range d.Annotations {
		if _, ok := inTrain[ann.ImageID]; ok {
			train.Annotations = append(train.Annotations, ann)
		} else {
			eval.Annotations = append(eval.Annotations, ann)
		}
	}

	return train, eval, nil
}
