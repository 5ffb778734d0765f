package archive

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// searchText is the string an entry is matched against.
func (e Entry) searchText() string {
	return strings.Join([]string{e.Author, e.Title, e.Filename, e.ItemID}, " ")
}

// Search returns the entries whose author, title, file name or id fuzzily
// contain query, closest matches first. Ties keep file order. An empty
// query returns entries unchanged.
func Search(entries []Entry, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	targets := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = e.searchText()
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	matched := make([]Entry, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, entries[r.OriginalIndex])
	}
	return matched
}
