package util

import (
	"sort"
)

func MapKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// SortedStringKeys returns the keys of m in ascending order, so that anything
// rendered or persisted from a map comes out stable.
func SortedStringKeys[V any](m map[string]V) []string {
	keys := MapKeys(m)
	sort.Strings(keys)
	return keys
}
