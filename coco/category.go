package coco

import (
	"sort"
	"strconv"
)

// CategoriesFor returns one category per distinct id, sorted by id.
//
// The name of id i is the i-th rune of alphabet. Ids outside the alphabet, and
// all ids when alphabet is empty, are named by their decimal form.
func CategoriesFor(ids []int, alphabet string) []Category {
	glyphs := []rune(alphabet)
	seen := make(map[int]struct{}, len(ids))
	categories := make([]Category, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		name := strconv.Itoa(id)
		if id >= 0 && id < len(glyphs) {
			name = string(glyphs[id])
		}
		categories = append(categories, Category{ID: id, Name: name})
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].ID < categories[j].ID
	})
	return categories
}
