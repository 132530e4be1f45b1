// Package settings holds the search configuration: its derivation rules,
// validation and the persisted session state.
package settings

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"
)

// IndexType names the server-side index structure.
type IndexType string

const (
	IndexDocumentTerm IndexType = "Document-Term"
	IndexInverted     IndexType = "Inverted"
	IndexBTree        IndexType = "B-Tree"
)

// SearchMethod names the ranking method run against an index.
type SearchMethod string

const (
	// MethodNone is the explicit "no valid method" state of an index type
	// that has no methods.
	MethodNone                SearchMethod = ""
	MethodWord2Vec            SearchMethod = "Word2Vec-clustering"
	MethodDoc2Vec             SearchMethod = "Doc2Vec-clustering"
	MethodSentenceTransformer SearchMethod = "SentenceTransformer-clustering"
	MethodTFIDF               SearchMethod = "TF-IDF ranking"
)

// Engines the meta search knows about.
const (
	EngineGoogle     = "Google"
	EngineDuckDuckGo = "DuckDuckGo"
)

// ErrInvalidCombination reports a search method the index type does not allow.
var ErrInvalidCombination = errors.New("search method not valid for index type")

var allowed = map[IndexType][]SearchMethod{
	IndexDocumentTerm: {MethodWord2Vec, MethodDoc2Vec, MethodSentenceTransformer},
	IndexInverted:     {MethodTFIDF},
	IndexBTree:        {},
}

// IndexTypes lists the known index types in display order.
func IndexTypes() []IndexType {
	return []IndexType{IndexDocumentTerm, IndexInverted, IndexBTree}
}

// AllowedMethods returns the methods valid for t. B-Tree and unknown types
// have none.
func AllowedMethods(t IndexType) []SearchMethod {
	return slices.Clone(allowed[t])
}

// FirstMethod is the method selected after switching to t, MethodNone if t has none.
func FirstMethod(t IndexType) SearchMethod {
	if m := allowed[t]; len(m) > 0 {
		return m[0]
	}
	return MethodNone
}

// SearchParams is the part of the configuration sent with every search.
type SearchParams struct {
	CrawlDepth    int             `json:"crawl_depth" msgpack:"crawl_depth" validate:"min=1,max=255"`
	NumberOfSeeds int             `json:"number_of_seeds" msgpack:"number_of_seeds" validate:"min=1,max=255"`
	SearchMethod  SearchMethod    `json:"search_method" msgpack:"search_method"`
	Browsers      map[string]bool `json:"browsers" msgpack:"browsers"`
	IndexType     IndexType       `json:"index_type" msgpack:"index_type" validate:"oneof=Document-Term Inverted B-Tree"`
	Q             string          `json:"q" msgpack:"q"`
}

// SearchConfiguration is the full per-session configuration.
type SearchConfiguration struct {
	SearchParams    SearchParams `json:"search_params" msgpack:"search_params"`
	Autosuggest     bool         `json:"autosuggest" msgpack:"autosuggest"`
	QueryCorrection bool         `json:"query_correction" msgpack:"query_correction"`
}

// Defaults returns the configuration a new session starts with.
func Defaults() SearchConfiguration {
	return SearchConfiguration{
		SearchParams: SearchParams{
			CrawlDepth:    1,
			NumberOfSeeds: 30,
			SearchMethod:  MethodWord2Vec,
			Browsers:      map[string]bool{EngineGoogle: true, EngineDuckDuckGo: false},
			IndexType:     IndexDocumentTerm,
		},
		Autosuggest:     true,
		QueryCorrection: true,
	}
}

// Clone returns a copy that shares nothing with c.
func (c SearchConfiguration) Clone() SearchConfiguration {
	c.SearchParams.Browsers = maps.Clone(c.SearchParams.Browsers)
	return c
}

// WithQuery returns a copy of c with q stamped in.
func (c SearchConfiguration) WithQuery(q string) SearchConfiguration {
	out := c.Clone()
	out.SearchParams.Q = q
	return out
}

var validate = validator.New()

// Validate checks field ranges and the index type / search method coupling.
func Validate(c SearchConfiguration) error {
	if err := validate.Struct(c.SearchParams); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return checkMethod(c.SearchParams.IndexType, c.SearchParams.SearchMethod)
}

func checkMethod(t IndexType, m SearchMethod) error {
	methods := allowed[t]
	if len(methods) == 0 {
		if m != MethodNone {
			return fmt.Errorf("%w: %s has no methods, got %q", ErrInvalidCombination, t, m)
		}
		return nil
	}
	if !slices.Contains(methods, m) {
		return fmt.Errorf("%w: %q not in %v for %s", ErrInvalidCombination, m, methods, t)
	}
	return nil
}

// Normalize repairs what it can: an unknown index type falls back to the
// default, a method outside the allowed set is replaced by the first valid
// one, and numeric fields are clamped. It reports whether c changed.
func Normalize(c *SearchConfiguration) bool {
	changed := false
	def := Defaults()
	p := &c.SearchParams

	if _, ok := allowed[p.IndexType]; !ok {
		p.IndexType = def.SearchParams.IndexType
		changed = true
	}
	if checkMethod(p.IndexType, p.SearchMethod) != nil {
		p.SearchMethod = FirstMethod(p.IndexType)
		changed = true
	}
	if p.CrawlDepth < 1 || p.CrawlDepth > 255 {
		p.CrawlDepth = def.SearchParams.CrawlDepth
		changed = true
	}
	if p.NumberOfSeeds < 1 || p.NumberOfSeeds > 255 {
		p.NumberOfSeeds = def.SearchParams.NumberOfSeeds
		changed = true
	}
	if p.Browsers == nil {
		p.Browsers = def.SearchParams.Browsers
		changed = true
	}
	return changed
}
