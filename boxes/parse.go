package boxes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FromString parses four whitespace separated numbers into a box of the given kind.
func FromString(kind Kind, s string) (Box, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return Box{}, &ParseError{
			Input:  s,
			Reason: fmt.Sprintf("expected 4 coordinates, got %d", len(fields)),
		}
	}

	var coords [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Box{}, &ParseError{Input: s, Reason: "invalid coordinate", Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Box{}, &ParseError{Input: s, Reason: "non-finite coordinate"}
		}
		coords[i] = v
	}
	return Box{Kind: kind, Coords: coords}, nil
}

// AnnotatedBox is a class id attached to a box, one line of a label file.
type AnnotatedBox struct {
	Class int
	Box   Box
}

// ParseAnnotatedBox parses "<class> <c1> <c2> <c3> <c4>".
//
// Exactly five space separated fields are accepted. Surrounding whitespace,
// including the line terminator, is ignored.
func ParseAnnotatedBox(line string, kind Kind) (AnnotatedBox, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) != 5 {
		return AnnotatedBox{}, &ParseError{
			Input:  trimmed,
			Reason: fmt.Sprintf("expected 5 fields, got %d", len(fields)),
		}
	}

	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return AnnotatedBox{}, &ParseError{Input: trimmed, Reason: "invalid class id", Err: err}
	}

	box, err := FromString(kind, strings.Join(fields[1:], " "))
	if err != nil {
		return AnnotatedBox{}, err
	}
	return AnnotatedBox{Class: class, Box: box}, nil
}

// String renders the label file line for a.
func (a AnnotatedBox) String() string {
	return strconv.Itoa(a.Class) + " " + a.Box.String()
}
