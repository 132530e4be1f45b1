package results

import (
	"encoding/json"
	"fmt"
)

// Tags used by the server to mark each element of the results array.
const (
	TagMetaSearch = "MetaSearch"
	TagSearch     = "Search"
)

// MetaPayload is the body of a MetaSearch element.
type MetaPayload struct {
	URL    string   `json:"url"`
	Title  string   `json:"title"`
	Engine string   `json:"engine"`
	Images []string `json:"images"`
}

// Document is one ranked document inside a Search element.
type Document struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// SearchPayload is the body of a Search element.
type SearchPayload struct {
	Indexed int        `json:"indexed"`
	Results []Document `json:"results"`
}

// Element is one tagged entry of the ranked-results response. Exactly one of
// Meta and Search is set for a known tag; Tag records what the server sent.
type Element struct {
	Tag    string
	Meta   *MetaPayload
	Search *SearchPayload
}

// Known reports whether the element carried a tag Merge understands.
func (e Element) Known() bool {
	return e.Meta != nil || e.Search != nil
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("result element is not a tagged object: %w", err)
	}

	*e = Element{}
	if raw, ok := tagged[TagMetaSearch]; ok {
		e.Tag = TagMetaSearch
		var p MetaPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode %s element: %w", TagMetaSearch, err)
		}
		e.Meta = &p
		return nil
	}
	if raw, ok := tagged[TagSearch]; ok {
		e.Tag = TagSearch
		var p SearchPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode %s element: %w", TagSearch, err)
		}
		e.Search = &p
		return nil
	}
	for tag := range tagged {
		e.Tag = tag
		break
	}
	return nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	switch {
	case e.Meta != nil:
		return json.Marshal(map[string]*MetaPayload{TagMetaSearch: e.Meta})
	case e.Search != nil:
		return json.Marshal(map[string]*SearchPayload{TagSearch: e.Search})
	default:
		return []byte("{}"), nil
	}
}
