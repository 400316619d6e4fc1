package util

import "sort"

// SortedCopy returns a sorted copy of the slice, leaving the input alone.
// Used to build stable cache and single-flight keys.
func SortedCopy(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	return out
}

// ShortID truncates an id for log output.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// MapKeys returns the keys of a map. Order is not guaranteed.
func MapKeys[K comparable, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
