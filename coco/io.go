package coco

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var requiredKeys = []string{"info", "images", "annotations", "categories"}

// Encode writes d as JSON. An indent of zero or less produces compact output.
func (d *Dataset) Encode(w io.Writer, indent int) error {
	enc := json.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(err, "encode dataset")
	}
	return nil
}

// Save writes d to path, replacing any existing file.
func (d *Dataset) Save(path string, indent int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create dataset file")
	}

	if err := d.Encode(f, indent); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close dataset file")
}

// Decode reconstructs a dataset from a JSON document.
//
// The four top level keys must be present and every bbox must hold four
// numbers. Any structural problem is reported as a *MalformedDatasetError and
// no partial dataset is returned.
func Decode(data []byte) (*Dataset, error) {
	if !gjson.ValidBytes(data) {
		return nil, &MalformedDatasetError{Reason: "invalid JSON"}
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &MalformedDatasetError{Reason: "top level is not an object"}
	}
	for i, value := range gjson.GetManyBytes(data, requiredKeys...) {
		if !value.Exists() {
			return nil, &MalformedDatasetError{Reason: "missing key " + requiredKeys[i]}
		}
	}

	if err := checkBBoxesPresent(gjson.GetBytes(data, "annotations")); err != nil {
		return nil, err
	}

	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		var malformed *MalformedDatasetError
		if errors.As(err, &malformed) {
			return nil, malformed
		}
		return nil, &MalformedDatasetError{Reason: err.Error()}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// checkBBoxesPresent catches annotations without a bbox key, which would
// otherwise decode as a zero box.
func checkBBoxesPresent(annotations gjson.Result) error {
	if !annotations.IsArray() {
		return nil
	}
	var err error
	i := 0
	annotations.ForEach(func(_, ann gjson.Result) bool {
		if ann.IsObject() && !ann.Get("bbox").Exists() {
			err = &MalformedDatasetError{Reason: fmt.Sprintf("annotation %d has no bbox", i)}
			return false
		}
		i++
		return true
	})
	return err
}

// Load reads and decodes the dataset file at path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read dataset file")
	}
	return Decode(data)
}
