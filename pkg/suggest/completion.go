package suggest

// DefaultMaxSuggestions caps a merged suggestion batch.
const DefaultMaxSuggestions = 10

// Completer merges the relevance and global indices for one prefix.
type Completer struct {
	relevance PrefixIndex
	global    PrefixIndex
	max       int
}

// NewCompleter wires the two indices. A max below 1 falls back to DefaultMaxSuggestions.
func NewCompleter(relevance, global PrefixIndex, max int) *Completer {
	if max < 1 {
		max = DefaultMaxSuggestions
	}
	return &Completer{
		relevance: relevance,
		global:    global,
		max:       max,
	}
}

// Complete returns relevance matches followed by dictionary matches for prefix,
// truncated to the cap. Duplicates across the two indices are kept.
func (c *Completer) Complete(prefix string) []Entry {
	if prefix == "" {
		return nil
	}

	suggestions := make([]Entry, 0, c.max)
	for _, idx := range []PrefixIndex{c.relevance, c.global} {
		if idx == nil {
			continue
		}
		for entry := range idx.Search(prefix) {
			if len(suggestions) >= c.max {
				return suggestions
			}
			suggestions = append(suggestions, entry)
		}
	}
	return suggestions
}

// MaxSuggestions returns the configured cap.
func (c *Completer) MaxSuggestions() int {
	return c.max
}

// Stats returns statistics about the loaded indices
func (c *Completer) Stats() map[string]int {
	stats := map[string]int{
		"maxSuggestions": c.max,
	}
	if c.global != nil {
		stats["globalTerms"] = c.global.Len()
	}
	if c.relevance != nil {
		stats["relevanceTerms"] = c.relevance.Len()
	}
	return stats
}
