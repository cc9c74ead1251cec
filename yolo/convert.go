package yolo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/coco"
	"github.com/nvr-ai/go-alpr/images"
	"github.com/nvr-ai/go-alpr/logger"
)

// BBoxCeiling is the most boxes a single image may carry. Annotation ids are
// imageIndex*BBoxCeiling + j, so the ceiling also keeps them unique.
const BBoxCeiling = 100

// ImageFormats are the image files picked up next to label files.
var ImageFormats = []images.ImageFormat{images.FormatJPG, images.FormatJPEG, images.FormatPNG, images.FormatGIF}

// BBoxCeilingExceededError aborts a conversion whose input looks corrupt.
type BBoxCeilingExceededError struct {
	Image   string
	Count   int
	Ceiling int
}

func (e *BBoxCeilingExceededError) Error() string {
	return fmt.Sprintf("too many bboxes (%d > %d): %s", e.Count, e.Ceiling, e.Image)
}

// EmptyItemError is returned under EmptyFail for an image whose label file has no boxes.
type EmptyItemError struct {
	Image string
}

func (e *EmptyItemError) Error() string {
	return "no bboxes found for: " + e.Image
}

// EmptyPolicy decides what happens to a matched image with zero boxes.
type EmptyPolicy int

const (
	// EmptySkip drops the item with a warning.
	EmptySkip EmptyPolicy = iota
	// EmptyFail aborts the conversion with an EmptyItemError.
	EmptyFail
)

// Options configures Convert.
type Options struct {
	// LabelDir holds one .txt label file per image.
	LabelDir string
	// ImageDir holds the images. It may equal LabelDir.
	ImageDir string
	// Source is the encoding of the label files.
	Source Format
	// Target is the box kind written into the dataset.
	Target boxes.Kind
	// Alphabet names categories by id. Empty names them by number.
	Alphabet string
	// Empty is the zero-box policy.
	Empty EmptyPolicy
	// Info is copied into the dataset. The zero value means coco.DefaultInfo().
	Info coco.Info
	// Logger receives skipped files. Nil discards them.
	Logger *zap.Logger
}

type item struct {
	image  string
	size   [2]int
	labels []boxes.AnnotatedBox
}

// Convert joins label files with images by file stem and builds a COCO dataset.
//
// Unreadable label files and images are skipped. An image with more than
// BBoxCeiling boxes aborts the whole conversion and no dataset is returned.
func Convert(opts Options) (*coco.Dataset, error) {
	log := logger.Or(opts.Logger)

	items, err := loadLabels(opts.LabelDir, opts.Source, log)
	if err != nil {
		return nil, err
	}
	if err := loadImageSizes(opts.ImageDir, items, log); err != nil {
		return nil, err
	}

	stems := make([]string, 0, len(items))
	for stem, it := range items {
		if it.image != "" {
			stems = append(stems, stem)
		}
	}
	sort.Strings(stems)

	var valid []*item
	for _, stem := range stems {
		it := items[stem]
		if len(it.labels) > BBoxCeiling {
			return nil, &BBoxCeilingExceededError{Image: it.image, Count: len(it.labels), Ceiling: BBoxCeiling}
		}
		if len(it.labels) == 0 {
			if opts.Empty == EmptyFail {
				return nil, &EmptyItemError{Image: it.image}
			}
			log.Warn("skipping image without bboxes", zap.String("image", it.image))
			continue
		}
		valid = append(valid, it)
	}

	info := opts.Info
	if info == (coco.Info{}) {
		info = coco.DefaultInfo()
	}
	dataset := &coco.Dataset{
		Info:        info,
		Images:      make([]coco.Image, 0, len(valid)),
		Annotations: []coco.Annotation{},
	}

	var classes []int
	for i, it := range valid {
		w, h := it.size[0], it.size[1]
		dataset.Images = append(dataset.Images, coco.Image{ID: i, FileName: it.image, Width: w, Height: h})

		for j, ann := range it.labels {
			box, err := ann.Box.To(opts.Target, w, h)
			if err != nil {
				return nil, errors.Wrapf(err, "convert %s", it.image)
			}
			dataset.Annotations = append(dataset.Annotations, coco.Annotation{
				ID:         i*BBoxCeiling + j,
				ImageID:    i,
				CategoryID: ann.Class,
				BBox:       coco.BBoxFrom(box),
				Area:       box.Area(),
			})
			classes = append(classes, ann.Class)
		}
	}
	dataset.Categories = coco.CategoriesFor(classes, opts.Alphabet)

	log.Info("converted labelled images",
		zap.Int("images", len(dataset.Images)),
		zap.Int("annotations", len(dataset.Annotations)),
		zap.Int("categories", len(dataset.Categories)))
	return dataset, nil
}

func loadLabels(dir string, format Format, log *zap.Logger) (map[string]*item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read label directory")
	}

	items := make(map[string]*item)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".txt") {
			continue
		}
		path := filepath.Join(dir, name)
		labels, err := ReadLabels(path, format)
		if err != nil {
			log.Warn("failed to load bboxes", zap.String("path", path), zap.Error(err))
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		items[stem] = &item{labels: labels}
	}
	return items, nil
}

func loadImageSizes(dir string, items map[string]*item, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "read image directory")
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !images.HasFormat(name, ImageFormats...) {
			continue
		}
		it, ok := items[strings.TrimSuffix(name, filepath.Ext(name))]
		if !ok || it.image != "" {
			continue
		}
		path := filepath.Join(dir, name)
		size, err := images.DecodeSize(path)
		if err != nil {
			log.Warn("failed to decode image size", zap.String("path", path), zap.Error(err))
			continue
		}
		if size.X <= 0 || size.Y <= 0 {
			log.Warn("skipping image with empty size", zap.String("path", path), zap.Int("width", size.X), zap.Int("height", size.Y))
			continue
		}
		it.image = name
		it.size = [2]int{size.X, size.Y}
	}
	return nil
}
