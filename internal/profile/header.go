package profile

import (
	"fmt"
	"strings"

	"datalens/domain/dataset"
)

// NormalizeHeaders splits the raw header line by sep, trims and unquotes
// each cell, and disambiguates exact-string duplicates into unique stable
// keys. The first occurrence of a header keeps its name unsuffixed; repeats
// get an occurrence-index suffix. Position i of the returned key sequence
// always corresponds to position i of the original header sequence.
func NormalizeHeaders(headerLine string, sep rune) (originals []string, keys []string, mapping dataset.ColumnMapping) {
	cells := strings.Split(headerLine, string(sep))
	originals = make([]string, len(cells))
	keys = make([]string, len(cells))

	mapping = dataset.ColumnMapping{
		KeyToOriginal:   make(map[string]string, len(cells)),
		OriginalToKeys:  make(map[string][]string),
		DuplicateCounts: make(map[string]int),
	}

	occurrences := make(map[string]int, len(cells))
	used := make(map[string]bool, len(cells))

	for i, cell := range cells {
		name := unquoteCell(strings.TrimSpace(cell))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		originals[i] = name

		occurrences[name]++
		key := name
		if occurrences[name] > 1 {
			key = fmt.Sprintf("%s_%d", name, occurrences[name])
		}
		// A generated key can itself collide with a later literal
		// header; bump the suffix until the key is free.
		for used[key] {
			occurrences[name]++
			key = fmt.Sprintf("%s_%d", name, occurrences[name])
		}
		used[key] = true
		keys[i] = key

		mapping.KeyToOriginal[key] = name
		mapping.OriginalToKeys[name] = append(mapping.OriginalToKeys[name], key)
	}

	for name, ks := range mapping.OriginalToKeys {
		if len(ks) > 1 {
			mapping.DuplicateCounts[name] = len(ks)
		}
	}

	return originals, keys, mapping
}

// unquoteCell strips one pair of matching leading/trailing quote
// characters. Mismatched or lone quotes are kept as-is.
func unquoteCell(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
