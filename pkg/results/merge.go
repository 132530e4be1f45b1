package results

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Metrics describes one dispatch. It is recomputed per search.
type Metrics struct {
	Indexed   int   `json:"indexed" msgpack:"indexed"`
	Ranked    int   `json:"ranked" msgpack:"ranked"`
	ElapsedMs int64 `json:"elapsedMs" msgpack:"elapsedMs"`
}

// Batch is the merged outcome of one response.
type Batch struct {
	Results []Result
	Metrics Metrics
	// Skipped counts elements with a tag Merge does not know.
	Skipped int
}

// Merge flattens elements into results in arrival order. IDs start at 1 and
// advance once per result of either kind. Counters come from the last Search
// element seen and default to 0. A nil policy leaves text untouched.
func Merge(elements []Element, policy *bluemonday.Policy) Batch {
	var b Batch
	id := 0
	next := func() int {
		id++
		return id
	}

	for _, e := range elements {
		switch {
		case e.Meta != nil:
			b.Results = append(b.Results, Meta{
				Header: Header{ID: next(), URL: e.Meta.URL, Title: clean(e.Meta.Title, policy)},
				Engine: e.Meta.Engine,
				Images: e.Meta.Images,
			})
		case e.Search != nil:
			for _, doc := range e.Search.Results {
				content := doc.Content
				if content == "" {
					content = doc.Description
				}
				b.Results = append(b.Results, Local{
					Header:  Header{ID: next(), URL: doc.URL, Title: clean(doc.Title, policy)},
					Content: clean(content, policy),
				})
			}
			b.Metrics.Indexed = e.Search.Indexed
			b.Metrics.Ranked = len(e.Search.Results)
		default:
			b.Skipped++
		}
	}
	return b
}

func clean(s string, p *bluemonday.Policy) string {
	if p == nil || s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}
