package history

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// SortType selects how Group orders entries.
type SortType string

const (
	SortDate SortType = "date"
	SortTerm SortType = "term"
)

// ParseSort maps the view's sort selector onto a SortType.
func ParseSort(s string) (SortType, error) {
	switch SortType(strings.ToLower(strings.TrimSpace(s))) {
	case SortDate, "":
		return SortDate, nil
	case SortTerm:
		return SortTerm, nil
	default:
		return "", fmt.Errorf("unknown history sort %q", s)
	}
}

// Group is a run of entries sharing the same query and date.
type Group struct {
	Key     string  `json:"key" msgpack:"key"`
	Entries []Entry `json:"entries" msgpack:"entries"`
}

// GroupKey is the composite key entries are grouped under.
func GroupKey(e Entry) string {
	return e.Query + " " + e.Date
}

// GroupEntries filters entries by a case-sensitive query prefix, sorts them stably and
// groups them by GroupKey. Groups come out in order of first appearance after sorting.
func GroupEntries(entries []Entry, sortType SortType, filterPrefix string) []Group {
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Query, filterPrefix) {
			filtered = append(filtered, e)
		}
	}

	switch sortType {
	case SortTerm:
		slices.SortStableFunc(filtered, func(a, b Entry) int {
			return strings.Compare(a.Query, b.Query)
		})
	default:
		stamps := make(map[string]time.Time, len(filtered))
		for _, e := range filtered {
			if _, ok := stamps[e.Date]; !ok {
				stamps[e.Date] = ParseDate(e.Date)
			}
		}
		slices.SortStableFunc(filtered, func(a, b Entry) int {
			return stamps[b.Date].Compare(stamps[a.Date])
		})
	}

	var groups []Group
	index := make(map[string]int)
	for _, e := range filtered {
		key := GroupKey(e)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"1/2/2006, 15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate reads an entry timestamp. Unknown shapes give the zero time, which
// sorts after every real date when ordering newest first.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
