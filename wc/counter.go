package wc

import "sort"

// Counter maps a normalized word to its number of occurrences.
type Counter map[string]uint64

// Entry is one (word, count) pair of a Top-K result.
type Entry struct {
	Word  string `json:"word"`
	Count uint64 `json:"count"`
}

// Merge adds every count of src into dst.
func Merge(dst, src Counter) {
	for word, n := range src {
		dst[word] += n
	}
}

// Total returns the sum of all counts.
func (c Counter) Total() uint64 {
	var total uint64
	for _, n := range c {
		total += n
	}
	return total
}

// TopK returns at most n entries of c sorted by descending count.
// The order of entries with equal counts is not defined.
func TopK(c Counter, n int) []Entry {
	if n <= 0 || len(c) == 0 {
		return []Entry{}
	}
	entries := make([]Entry, 0, len(c))
	for word, count := range c {
		entries = append(entries, Entry{Word: word, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
