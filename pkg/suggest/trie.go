package suggest

import (
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/bastiangx/educate/pkg/dictionary"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Index is a PrefixIndex backed by a patricia trie. Keys are folded to lower case
// so matching is case-insensitive; entries keep the spelling they were added with.
type Index struct {
	name string
	trie *patricia.Trie
	next int
	mu   sync.RWMutex
}

type indexItem struct {
	key string
	seq int
}

var _ PrefixIndex = (*Index)(nil)

// NewIndex creates an empty index. name only shows up in logs.
func NewIndex(name string) *Index {
	return &Index{
		name: name,
		trie: patricia.NewTrie(),
	}
}

// NewGlobalIndex builds the dictionary index. It is filled here, once, and
// never written to afterwards.
func NewGlobalIndex(dict *dictionary.Store) *Index {
	idx := NewIndex("global")
	for _, word := range dict.Words() {
		idx.Add(word)
	}
	log.Debugf("global index built with %d terms", idx.Len())
	return idx
}

// NewRelevanceIndex creates the per-user index fed from query history.
func NewRelevanceIndex() *Index {
	return NewIndex("relevance")
}

// AddQueries splits each query on whitespace and adds every term to idx.
func AddQueries(idx PrefixIndex, queries ...string) {
	for _, q := range queries {
		for _, term := range strings.Fields(q) {
			idx.Add(term)
		}
	}
}

func (ix *Index) Add(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	key := patricia.Prefix(strings.ToLower(term))

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.trie.Insert(key, indexItem{key: term, seq: ix.next}) {
		ix.next++
	}
}

func (ix *Index) Search(prefix string) iter.Seq[Entry] {
	lowerPrefix := strings.ToLower(prefix)

	return func(yield func(Entry) bool) {
		if lowerPrefix == "" {
			return
		}
		for _, it := range ix.collect(lowerPrefix) {
			if !yield(Entry{Key: it.key}) {
				return
			}
		}
	}
}

func (ix *Index) collect(lowerPrefix string) []indexItem {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var items []indexItem
	err := ix.trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		it, ok := item.(indexItem)
		if !ok {
			log.Errorf("Unknown item type: %T for word %s", item, p)
			return nil
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting %s trie subtree: %v", ix.name, err)
		return nil
	}

	// trie order is lexicographic, entries are ranked by insertion
	slices.SortFunc(items, func(a, b indexItem) int {
		return a.seq - b.seq
	})
	return items
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.next
}
