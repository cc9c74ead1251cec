package yolo

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-alpr/boxes"
)

// ReadLabels loads every box of a label file. Blank lines are ignored and the
// first malformed line fails the whole file.
func ReadLabels(path string, format Format) ([]boxes.AnnotatedBox, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels")
	}
	defer f.Close()

	return DecodeLabels(f, format)
}

// DecodeLabels is ReadLabels over an open reader.
func DecodeLabels(r io.Reader, format Format) ([]boxes.AnnotatedBox, error) {
	var out []boxes.AnnotatedBox

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ann, err := format.Parse(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		out = append(out, ann)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	return out, nil
}

// WriteLabels writes one "class coords" line per box.
func WriteLabels(w io.Writer, anns []boxes.AnnotatedBox) error {
	bw := bufio.NewWriter(w)
	for _, ann := range anns {
		if _, err := bw.WriteString(ann.String() + "\n"); err != nil {
			return errors.Wrap(err, "write labels")
		}
	}
	return errors.Wrap(bw.Flush(), "write labels")
}

// SaveLabels creates path and writes anns to it.
func SaveLabels(path string, anns []boxes.AnnotatedBox) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create labels")
	}
	if err := WriteLabels(f, anns); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close labels")
}

// ReadClasses returns the class id of each line in order, ignoring coordinates.
func ReadClasses(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read classes")
	}

	var ids []int
	for n, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, &boxes.ParseError{Input: line, Reason: "line " + strconv.Itoa(n+1) + ": class id", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
