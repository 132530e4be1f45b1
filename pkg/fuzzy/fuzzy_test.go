package fuzzy

import (
	"fmt"
	"testing"

	"github.com/bastiangx/educate/pkg/dictionary"
	"github.com/stretchr/testify/assert"
)

var vocabulary = []string{
	"apple", "banana", "orange", "pear", "grape",
	"there", "their", "the",
	"university", "international", "algorithm", "function", "variable",
	"word2vec", "user-name",
}

// check if our lev distance impl returns correct distance int
func TestLevenshteinDistance(t *testing.T) {
	testCases := []struct {
		a        string
		b        string
		expected int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "a", 1},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"book", "back", 2},
		{"book", "books", 1},
		{"hello", "hallo", 1},
		{"naïve", "naive", 1},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s→%s", tc.a, tc.b), func(t *testing.T) {
			assert.Equal(t, tc.expected, levenshteinDistance(tc.a, tc.b))
			assert.Equal(t, tc.expected, levenshteinDistance(tc.b, tc.a))
		})
	}
}

func TestCorrect(t *testing.T) {
	c := NewCorrector(dictionary.New(vocabulary))

	testCases := []struct {
		input    string
		expected string
		desc     string
	}{
		{"apple", "apple", "exact match"},
		{"appl", "apple", "missing character at end"},
		{"aple", "apple", "missing character in middle"},
		{"appke", "apple", "substitution"},
		{"applez", "apple", "extra character"},
		{"orunge", "orange", "vowel substitution"},
		{"univeristy", "university", "transposition in longer word"},
		{"internationl", "international", "missing letter"},
		{"algrithm", "algorithm", "missing vowel"},
		{"wrd2vec", "word2vec", "word with numbers"},
		{"user-nme", "user-name", "hyphenated word"},
		// "ther" is one edit from "there", "their"(2) and "the"; scan order decides
		{"ther", "there", "tie broken by dictionary order"},
		{"Apple", "apple", "case counts as an edit"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Correct(tc.input))
		})
	}
}

func TestCorrectReturnsMinimumDistanceMember(t *testing.T) {
	dict := dictionary.New(vocabulary)
	c := NewCorrector(dict)

	for _, input := range []string{"xyzabc", "zzzzzzzzz", "bnana", "graep", "q", "funtcion", "variabel"} {
		got := c.Correct(input)
		assert.True(t, dict.Contains(got), "%q corrected to non-member %q", input, got)

		want := levenshteinDistance(input, got)
		for _, w := range dict.Words() {
			assert.GreaterOrEqual(t, levenshteinDistance(input, w), want, "%q: %q is closer than %q", input, w, got)
		}
	}
}

func TestCorrectIsIdempotent(t *testing.T) {
	c := NewCorrector(dictionary.New(vocabulary))
	for _, input := range []string{"aple", "thr", "internashunal", "pear"} {
		once := c.Correct(input)
		assert.Equal(t, once, c.Correct(input))
		assert.Equal(t, once, c.Correct(once))
	}
}

func TestEmptyDictionary(t *testing.T) {
	c := NewCorrector(dictionary.Empty())
	assert.Equal(t, "test", c.Correct("test"))
	assert.Equal(t, "", NewCorrector(dictionary.New(vocabulary)).Correct(""))
}

func TestCorrectQuery(t *testing.T) {
	c := NewCorrector(dictionary.New(vocabulary))
	assert.Equal(t, "apple banana", c.CorrectQuery("aple  bananna"))
	assert.Equal(t, "", c.CorrectQuery("   "))
	assert.Equal(t, "the algorithm", c.CorrectQuery("\tthe algoritm "))
}

func BenchmarkCorrect(b *testing.B) {
	words := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	c := NewCorrector(dictionary.New(words))

	b.ResetTimer()
	inputs := []string{"wrd123", "word1", "wordd2", "woord3", "wird4"}
	for i := 0; i < b.N; i++ {
		c.Correct(inputs[i%len(inputs)])
	}
}

// correction is case sensitive even though completion folds case
func TestCorrectKeepsCaseVariants(t *testing.T) {
	c := NewCorrector(dictionary.New([]string{"go", "Go"}))
	assert.Equal(t, "Go", c.Correct("Go"))
	assert.Equal(t, "go", c.Correct("go"))
	assert.Equal(t, "Go", c.Correct("GO"))
}
