// Package plate assembles recognized character boxes into plate strings.
package plate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nvr-ai/go-alpr/boxes"
)

// Alphabets of plate glyphs. Position i of either string is symbol id i; the
// letters are the ones whose shapes coincide in both scripts.
const (
	Latin    = "0123456789ABEKMHOPCTYX"
	Cyrillic = "0123456789АВЕКМНОРСТУХ"
)

var (
	latin    = []rune(Latin)
	cyrillic = []rune(Cyrillic)
)

// UnknownCharacterError is returned for a glyph outside both alphabets.
type UnknownCharacterError struct {
	Char rune
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.Char)
}

// SymbolID maps a glyph to its symbol id. Lookup is case-insensitive and
// tries the Cyrillic alphabet before the Latin one.
func SymbolID(c rune) (int, error) {
	c = unicode.ToUpper(c)
	if i := indexRune(cyrillic, c); i >= 0 {
		return i, nil
	}
	if i := indexRune(latin, c); i >= 0 {
		return i, nil
	}
	return 0, &UnknownCharacterError{Char: c}
}

// SymbolIDs maps every non-space glyph of s.
func SymbolIDs(s string) ([]int, error) {
	ids := make([]int, 0, len(s))
	for _, c := range s {
		if unicode.IsSpace(c) {
			continue
		}
		id, err := SymbolID(c)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Char returns the Latin glyph for id, or '?' when id is out of range.
func Char(id int) rune {
	if id < 0 || id >= len(latin) {
		return '?'
	}
	return latin[id]
}

func indexRune(alphabet []rune, c rune) int {
	for i, r := range alphabet {
		if r == c {
			return i
		}
	}
	return -1
}

// Symbol is one recognized glyph.
type Symbol struct {
	ID int
	// Rect is an ltrb_abs box in the coordinates of the plate crop.
	Rect  boxes.Box
	Score float32
}

func (s Symbol) String() string {
	return string(Char(s.ID))
}

// Plate is a located plate with its symbols in reading order.
type Plate struct {
	// Rect is an ltrb_abs box in the coordinates of the full image.
	Rect    boxes.Box
	Symbols []Symbol
}

func (p Plate) String() string {
	var sb strings.Builder
	for _, s := range p.Symbols {
		sb.WriteRune(Char(s.ID))
	}
	return sb.String()
}

// IDs returns the symbol ids in order.
func (p Plate) IDs() []int {
	ids := make([]int, len(p.Symbols))
	for i, s := range p.Symbols {
		ids[i] = s.ID
	}
	return ids
}
