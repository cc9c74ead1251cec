package plate

import (
	"regexp"
	"sort"
	"strings"
)

// Sequence returns symbols in reading order: ascending left edge, ties
// broken by ascending top edge, remaining ties kept in input order.
//
// Plates are read as a single line. Two-row plates come out column by column.
func Sequence(symbols []Symbol) []Symbol {
	out := make([]Symbol, len(symbols))
	copy(out, symbols)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Rect, out[j].Rect
		if a.Left() != b.Left() {
			return a.Left() < b.Left()
		}
		return a.Top() < b.Top()
	})
	return out
}

var groundTruth = regexp.MustCompile(`\[([^\]]+)\]`)

// GroundTruth extracts the symbol ids written in brackets in a file name, as
// in "car_17 [A 123 BC].txt". ok is false when the name carries no annotation.
func GroundTruth(name string) (ids []int, ok bool, err error) {
	m := groundTruth.FindStringSubmatch(name)
	if m == nil {
		return nil, false, nil
	}
	ids, err = SymbolIDs(strings.TrimSpace(m[1]))
	if err != nil {
		return nil, true, err
	}
	return ids, true, nil
}
