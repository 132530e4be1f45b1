package utils

// SeenFilter drops repeated tokens while keeping the order of first appearance.
// Not safe for concurrent use.
type SeenFilter struct {
	seen map[string]struct{}
}

// NewSeenFilter creates a filter that treats every word in exclude as already seen.
func NewSeenFilter(exclude ...string) *SeenFilter {
	seen := make(map[string]struct{}, len(exclude))
	for _, w := range exclude {
		seen[w] = struct{}{}
	}
	return &SeenFilter{seen: seen}
}

// ShouldInclude reports whether word is new, and marks it as seen.
func (f *SeenFilter) ShouldInclude(word string) bool {
	if _, ok := f.seen[word]; ok {
		return false
	}
	f.seen[word] = struct{}{}
	return true
}

// Len returns how many distinct words the filter has accepted or excluded.
func (f *SeenFilter) Len() int {
	return len(f.seen)
}
