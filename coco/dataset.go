// Package coco - COCO detection dataset model and its JSON file format.
package coco

import (
	"encoding/json"
	"fmt"

	"github.com/nvr-ai/go-alpr/boxes"
)

// Info is the dataset metadata block.
type Info struct {
	Year        int    `json:"year"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// DefaultInfo is the metadata written by the YOLO converter.
func DefaultInfo() Info {
	return Info{Year: 2024, Version: "1.0.0", Description: "Description"}
}

// Image is one source image of the dataset.
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// BBox is the four annotation coordinates, stored as a flat JSON array.
//
// COCO defines the values as (left, top, width, height) in pixels. The
// converter can write any box encoding into the same four slots; the dataset
// does not record which one was used.
type BBox [4]float64

// BBoxFrom copies the coordinates of b.
func BBoxFrom(b boxes.Box) BBox {
	return BBox(b.Coordinates())
}

// Box interprets the coordinates as the given encoding.
func (b BBox) Box(kind boxes.Kind) boxes.Box {
	return boxes.FromCoordinates(kind, b)
}

// MarshalJSON writes the four values as an array.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64(b))
}

// UnmarshalJSON rejects arrays that do not hold exactly four numbers.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return &MalformedDatasetError{Reason: fmt.Sprintf("bbox: %v", err)}
	}
	if len(values) != 4 {
		return &MalformedDatasetError{Reason: fmt.Sprintf("bbox has %d values, want 4", len(values))}
	}
	copy(b[:], values)
	return nil
}

// Annotation is one labeled box on one image.
//
// Area is computed once when the annotation is created and stored. It is not
// re-derived from BBox on load.
type Annotation struct {
	ID         int     `json:"id"`
	ImageID    int     `json:"image_id"`
	CategoryID int     `json:"category_id"`
	BBox       BBox    `json:"bbox"`
	Area       float64 `json:"area"`
}

// Category maps a class id to its label.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Dataset is the root of a COCO detection file.
type Dataset struct {
	Info        Info         `json:"info"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Validate checks the referential invariants of d.
//
// Image ids and annotation ids must be unique and every annotation must point
// at an image of the dataset.
func (d *Dataset) Validate() error {
	images := make(map[int]struct{}, len(d.Images))
	for _, img := range d.Images {
		if _, dup := images[img.ID]; dup {
			return &MalformedDatasetError{Reason: fmt.Sprintf("duplicate image id %d", img.ID)}
		}
		images[img.ID] = struct{}{}
	}

	annotations := make(map[int]struct{}, len(d.Annotations))
	for _, ann := range d.Annotations {
		if _, dup := annotations[ann.ID]; dup {
			return &MalformedDatasetError{Reason: fmt.Sprintf("duplicate annotation id %d", ann.ID)}
		}
		annotations[ann.ID] = struct{}{}

		if _, ok := images[ann.ImageID]; !ok {
			return &MalformedDatasetError{
				Reason: fmt.Sprintf("annotation %d references missing image %d", ann.ID, ann.ImageID),
			}
		}
	}
	return nil
}
