// Package fuzzy corrects typos by nearest-neighbour edit distance over the session dictionary.
package fuzzy

import (
	"strings"

	"github.com/bastiangx/educate/pkg/dictionary"
)

// Corrector maps a term to its closest dictionary term.
// It holds no mutable state and is safe for concurrent use.
type Corrector struct {
	dict *dictionary.Store
}

// NewCorrector creates a corrector over dict.
func NewCorrector(dict *dictionary.Store) *Corrector {
	return &Corrector{dict: dict}
}

// Correct returns term unchanged when it is a dictionary member, otherwise the
// first term in dictionary order at minimum Levenshtein distance.
// An empty term or dictionary leaves the input as is.
func (c *Corrector) Correct(term string) string {
	if term == "" || c.dict.Len() == 0 || c.dict.Contains(term) {
		return term
	}

	input := []rune(term)
	best := term
	bestDist := -1
	for _, candidate := range c.dict.Words() {
		dist := levenshteinRunes(input, []rune(candidate), bestDist)
		if bestDist < 0 || dist < bestDist {
			best = candidate
			bestDist = dist
			if dist == 1 {
				// nothing but an exact member beats 1, and members returned early
				break
			}
		}
	}
	return best
}

// CorrectQuery corrects every whitespace-delimited term of query and joins
// the results with single spaces.
func (c *Corrector) CorrectQuery(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = c.Correct(term)
	}
	return strings.Join(terms, " ")
}

// levenshteinDistance returns the edit distance between a and b.
func levenshteinDistance(a, b string) int {
	return levenshteinRunes([]rune(a), []rune(b), -1)
}

// levenshteinRunes computes the distance with a two-row table. When bound is
// non-negative and every cell of a row already exceeds it, the scan stops and
// returns a value greater than bound.
func levenshteinRunes(a, b []rune, bound int) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if bound >= 0 && abs(len(a)-len(b)) > bound {
		return bound + 1
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if bound >= 0 && rowMin > bound {
			return bound + 1
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
