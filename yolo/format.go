package yolo

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-alpr/boxes"
)

// Format is the coordinate encoding of a label file: either the YOLO
// center+size relative encoding or one of the four box kinds.
type Format struct {
	center bool
	kind   boxes.Kind
}

// FormatCenter is the canonical YOLO encoding, "class cx cy w h".
var FormatCenter = Format{center: true, kind: boxes.LTWHRel}

// FormatOf returns the format whose lines hold boxes of kind k verbatim.
func FormatOf(k boxes.Kind) Format {
	return Format{kind: k}
}

// ParseFormat accepts "yolo" or any box kind name such as "ltrb_abs".
func ParseFormat(s string) (Format, error) {
	if strings.EqualFold(strings.TrimSpace(s), "yolo") {
		return FormatCenter, nil
	}
	k, err := boxes.ParseKind(s)
	if err != nil {
		return Format{}, errors.Wrap(err, "label format")
	}
	return FormatOf(k), nil
}

// Kind is the box kind lines are decoded into.
func (f Format) Kind() boxes.Kind {
	return f.kind
}

func (f Format) String() string {
	if f.center {
		return "yolo"
	}
	return f.kind.String()
}

// Parse decodes one label line. Center lines come back as ltwh_rel boxes.
func (f Format) Parse(line string) (boxes.AnnotatedBox, error) {
	if f.center {
		b, err := ParseBBox(line)
		if err != nil {
			return boxes.AnnotatedBox{}, err
		}
		return b.Annotated(), nil
	}
	return boxes.ParseAnnotatedBox(line, f.kind)
}
