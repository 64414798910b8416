// Package leaderboard ranks climb-name words, emojis, setters and video
// uploaders by how often they occur.
package leaderboard

import (
	"sort"
	"strings"

	"github.com/forPelevin/gomoji"
)

// Entry is one ranked key and its count.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Board is a ranked list of entries with the grand total of counts.
type Board struct {
	Entries []Entry
	Total   int
}

// New ranks entries by count, most frequent first, breaking ties by key.
// Entries sharing a key are merged.
func New(entries []Entry) Board {
	merged := make(map[string]int, len(entries))
	for _, e := range entries {
		merged[e.Key] += e.Count
	}
	return fromCounts(merged)
}

func fromCounts(counts map[string]int) Board {
	b := Board{Entries: make([]Entry, 0, len(counts))}
	for k, n := range counts {
		b.Entries = append(b.Entries, Entry{Key: k, Count: n})
		b.Total += n
	}
	sort.Slice(b.Entries, func(i, j int) bool {
		if b.Entries[i].Count != b.Entries[j].Count {
			return b.Entries[i].Count > b.Entries[j].Count
		}
		return b.Entries[i].Key < b.Entries[j].Key
	})
	return b
}

// Top returns at most n leading entries.
func (b Board) Top(n int) []Entry {
	if n < 0 || n > len(b.Entries) {
		n = len(b.Entries)
	}
	return b.Entries[:n]
}

// Percent is the share of the total held by e, in the range 0-100.
func (b Board) Percent(e Entry) float64 {
	if b.Total == 0 {
		return 0
	}
	return 100 * float64(e.Count) / float64(b.Total)
}

// Words counts the lower-cased whitespace-separated words of names after
// removing emojis.
func Words(names []string) Board {
	counts := make(map[string]int)
	for _, name := range names {
		for _, w := range strings.Fields(gomoji.RemoveEmojis(name)) {
			counts[strings.ToLower(w)]++
		}
	}
	return fromCounts(counts)
}

// Emojis counts every emoji occurring in names.
func Emojis(names []string) Board {
	counts := make(map[string]int)
	for _, name := range names {
		for _, e := range gomoji.FindAll(name) {
			counts[e.Character]++
		}
	}
	return fromCounts(counts)
}
