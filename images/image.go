// Package images - image file plumbing for the plate pipeline: decoding,
// cropping, drawing and batched directory loading.
package images

import (
	"image"
	"io"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nvr-ai/go-alpr/boxes"
)

// ImageFormat is a lower-case file extension without the dot.
type ImageFormat string

// ImageFormat constants
const (
	FormatJPEG ImageFormat = "jpeg"
	FormatJPG  ImageFormat = "jpg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatBMP  ImageFormat = "bmp"
	FormatWebP ImageFormat = "webp"
	FormatTIF  ImageFormat = "tif"
	FormatTIFF ImageFormat = "tiff"
)

// Formats lists every format IsImage accepts.
var Formats = []ImageFormat{FormatJPEG, FormatJPG, FormatPNG, FormatGIF, FormatBMP, FormatWebP, FormatTIF, FormatTIFF}

// FormatOf returns the format of a file name from its extension.
func FormatOf(name string) ImageFormat {
	return ImageFormat(strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")))
}

// IsImage reports whether name has one of the supported image extensions.
func IsImage(name string) bool {
	return HasFormat(name, Formats...)
}

// HasFormat reports whether name has one of the given formats, ignoring case.
func HasFormat(name string, formats ...ImageFormat) bool {
	f := FormatOf(name)
	for _, allowed := range formats {
		if f == allowed {
			return true
		}
	}
	return false
}

// DecodeSize reads only the header of an image file and returns its dimensions.
func DecodeSize(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, errors.Wrap(err, "open image")
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// Open decodes an image file.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filepath.Base(path))
	}
	return img, nil
}

// Decode reads an image from r, honouring EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}

// Save encodes img in the format implied by the extension of path.
func Save(path string, img image.Image) error {
	return errors.Wrapf(imaging.Save(img, path), "save %s", filepath.Base(path))
}

// Crop cuts an ltrb_abs or ltwh_abs box out of img. The box is clipped to the
// image bounds and an empty intersection is an error.
func Crop(img image.Image, box boxes.Box) (image.Image, error) {
	if box.Kind.Scale() != boxes.Absolute {
		return nil, errors.Errorf("crop needs an absolute box, got %s", box.Kind)
	}
	bounds := img.Bounds()
	rect := box.Rectangle().Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, errors.Errorf("crop %v outside image %v", box, bounds.Size())
	}
	return imaging.Crop(img, rect), nil
}
