package boxes

import "github.com/pkg/errors"

// ToScale converts b to scale s using the image dimensions.
//
// abs = rel * dimension and rel = abs / dimension, x coordinates against the
// width and y coordinates against the height. Both layouts scale the same way
// because every coordinate is either a position or an extent along one axis.
//
// Arguments:
//   - s: The target scale.
//   - imgW, imgH: Image dimensions in pixels. Only checked when the scale changes.
//
// Returns:
//   - The converted box.
//   - ErrInvalidImageSize if a conversion is needed and a dimension is not positive.
func (b Box) ToScale(s Scale, imgW, imgH int) (Box, error) {
	if b.Kind.Scale() == s {
		return b, nil
	}
	if imgW <= 0 || imgH <= 0 {
		return Box{}, errors.Wrapf(ErrInvalidImageSize, "%dx%d", imgW, imgH)
	}

	w, h := float64(imgW), float64(imgH)
	c := b.Coords
	out := Box{Kind: KindOf(s, b.Kind.Layout())}
	if s == Relative {
		out.Coords = [4]float64{c[0] / w, c[1] / h, c[2] / w, c[3] / h}
	} else {
		out.Coords = [4]float64{c[0] * w, c[1] * h, c[2] * w, c[3] * h}
	}
	return out, nil
}

// ToLayout converts b to layout l. The scale is left untouched.
func (b Box) ToLayout(l Layout) Box {
	if b.Kind.Layout() == l {
		return b
	}

	c := b.Coords
	out := Box{Kind: KindOf(b.Kind.Scale(), l)}
	if l == CornerCorner {
		out.Coords = [4]float64{c[0], c[1], c[0] + c[2], c[1] + c[3]}
	} else {
		out.Coords = [4]float64{c[0], c[1], c[2] - c[0], c[3] - c[1]}
	}
	return out
}

// To converts b to any of the four encodings.
//
// The scale conversion runs first and the layout conversion second. The
// opposite order gives the same values up to floating point rounding.
func (b Box) To(kind Kind, imgW, imgH int) (Box, error) {
	scaled, err := b.ToScale(kind.Scale(), imgW, imgH)
	if err != nil {
		return Box{}, err
	}
	return scaled.ToLayout(kind.Layout()), nil
}
